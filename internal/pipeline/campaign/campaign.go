// Package campaign runs a named filter-and-allocate pass over one snapshot.
package campaign

import (
	"errors"
	"fmt"
	"strings"

	apperrors "recruit-workers/internal/common/errors"
	"recruit-workers/internal/models"
	"recruit-workers/internal/pipeline/allocation"
	"recruit-workers/internal/pipeline/filter"
)

var priorities = map[string]bool{
	"low":    true,
	"normal": true,
	"high":   true,
	"urgent": true,
}

// DefaultPriority applies when a campaign names none.
const DefaultPriority = "normal"

// Spec is a campaign definition as submitted by a manager.
type Spec struct {
	Name               string                    `json:"name" yaml:"name"`
	Priority           string                    `json:"priority,omitempty" yaml:"priority,omitempty"`
	Criteria           models.FilterCriteria     `json:"criteria" yaml:"criteria"`
	Mode               models.AllocationMode     `json:"mode" yaml:"mode"`
	Targets            []models.AllocationTarget `json:"targets" yaml:"targets"`
	MaxPerEmployeeTeam int                       `json:"maxPerEmployeeTeam,omitempty" yaml:"maxPerEmployeeTeam,omitempty"`
	MaxTotal           int                       `json:"maxTotal,omitempty" yaml:"maxTotal,omitempty"`
}

// Result is a planned, uncommitted campaign.
type Result struct {
	Spec          Spec              `json:"spec"`
	EligibleCount int               `json:"eligibleCount"`
	Allocation    allocation.Result `json:"allocation"`
}

// Normalize trims the name and fills the default priority, then validates
// the priority and the filter criteria.
func Normalize(spec Spec, defaultPriority string) (Spec, error) {
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Name == "" {
		return spec, apperrors.NewValidationError("campaignName", "campaign name is required")
	}

	spec.Priority = strings.ToLower(strings.TrimSpace(spec.Priority))
	if spec.Priority == "" {
		spec.Priority = defaultPriority
	}
	if spec.Priority == "" {
		spec.Priority = DefaultPriority
	}
	if !priorities[spec.Priority] {
		return spec, apperrors.NewValidationError("priority",
			fmt.Sprintf("unknown priority %q, expected low, normal, high or urgent", spec.Priority))
	}

	if err := models.Validate(spec.Criteria); err != nil {
		field := "criteria"
		var fe *models.FieldError
		if errors.As(err, &fe) {
			field = "criteria." + fe.Field
		}
		return spec, apperrors.NewValidationError(field, err.Error())
	}
	return spec, nil
}

// Plan validates spec against snapshot, removes already-assigned candidates,
// filters the rest and allocates them. It writes nothing.
func Plan(snapshot models.Snapshot, spec Spec) (Result, error) {
	return PlanWithDefaults(snapshot, spec, DefaultPriority)
}

// PlanWithDefaults is Plan with a configured default priority.
func PlanWithDefaults(snapshot models.Snapshot, spec Spec, defaultPriority string) (Result, error) {
	spec, err := Normalize(spec, defaultPriority)
	if err != nil {
		return Result{}, err
	}
	if err := checkTargets(snapshot.Employees, spec.Targets); err != nil {
		return Result{}, err
	}

	pool := filter.ExcludeAssigned(snapshot.ActiveCandidates, snapshot.Assignments)
	pool = filter.Filter(pool, spec.Criteria)

	alloc, err := allocation.Allocate(pool, allocation.Request{
		Mode:     spec.Mode,
		Targets:  spec.Targets,
		TeamCap:  spec.MaxPerEmployeeTeam,
		MaxTotal: spec.MaxTotal,
		Campaign: allocation.Campaign{Name: spec.Name, Priority: spec.Priority},
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Spec: spec, EligibleCount: len(pool), Allocation: alloc}, nil
}

func checkTargets(employees []models.Employee, targets []models.AllocationTarget) error {
	known := make(map[string]bool, len(employees))
	for _, e := range employees {
		known[e.ID] = true
	}
	for i, t := range targets {
		if t.EmployeeID != "" && !known[t.EmployeeID] {
			return apperrors.NewRecordValidationError("targets", i,
				fmt.Sprintf("employee %q does not exist", t.EmployeeID))
		}
	}
	return nil
}
