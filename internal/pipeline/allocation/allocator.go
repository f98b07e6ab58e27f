// Package allocation splits a filtered, unassigned candidate pool across
// employees.
//
// Candidates are consumed strictly in pool order and handed out as
// sequential, non-overlapping slices in target order. There is no
// rebalancing: with uneven caps, or a pool smaller than the sum of caps, the
// first targets fill up and later ones receive fewer or none. That
// unevenness is the intended behavior.
package allocation

import (
	"fmt"

	apperrors "recruit-workers/internal/common/errors"
	"recruit-workers/internal/models"
)

// Campaign is the metadata written into each assignment's notes.
type Campaign struct {
	Name     string `json:"name" yaml:"name"`
	Priority string `json:"priority" yaml:"priority"`
}

// Request describes one allocation call.
type Request struct {
	Mode    models.AllocationMode
	Targets []models.AllocationTarget
	// TeamCap is applied to every target in team mode, replacing their own caps.
	TeamCap int
	// MaxTotal bounds the number of assignments across all targets. Zero means no bound.
	MaxTotal int
	Campaign Campaign
}

// Result is the allocation outcome. Assignments are ordered by target then pool order.
type Result struct {
	Assignments     []models.Assignment `json:"assignments"`
	UnassignedCount int                 `json:"unassignedCount"`
	PerEmployee     map[string]int      `json:"perEmployee"`
}

// Allocate assigns candidates from pool. It performs no lookup of existing
// assignments: pool must already exclude assigned candidates.
func Allocate(pool []models.CandidateRecord, req Request) (Result, error) {
	if err := validate(pool, req); err != nil {
		return Result{}, err
	}

	res := Result{
		Assignments: make([]models.Assignment, 0, len(pool)),
		PerEmployee: make(map[string]int, len(req.Targets)),
	}

	next := 0
	for _, target := range req.Targets {
		limit := effectiveCap(req, target)
		if _, ok := res.PerEmployee[target.EmployeeID]; !ok {
			res.PerEmployee[target.EmployeeID] = 0
		}

		take := min(limit, len(pool)-next)
		if req.MaxTotal > 0 {
			take = min(take, req.MaxTotal-len(res.Assignments))
		}
		if take <= 0 {
			continue
		}

		note := notes(req, limit)
		for _, c := range pool[next : next+take] {
			res.Assignments = append(res.Assignments, models.Assignment{
				EmployeeID:  target.EmployeeID,
				CandidateID: c.ID,
				Status:      models.AssignmentPending,
				Notes:       note,
			})
		}
		res.PerEmployee[target.EmployeeID] += take
		next += take
	}

	res.UnassignedCount = len(pool) - len(res.Assignments)
	return res, nil
}

func validate(pool []models.CandidateRecord, req Request) error {
	if len(req.Targets) == 0 {
		return apperrors.NewValidationError("targets", "at least one target employee must be selected")
	}
	for i, t := range req.Targets {
		if t.EmployeeID == "" {
			return apperrors.NewRecordValidationError("targets", i, "target employee id is required")
		}
	}
	switch req.Mode {
	case models.ModeSingle:
		if len(req.Targets) != 1 {
			return apperrors.NewValidationError("targets",
				fmt.Sprintf("single mode takes exactly one target, got %d", len(req.Targets)))
		}
	case models.ModeCustom, models.ModeTeam:
	default:
		return apperrors.NewValidationError("mode",
			fmt.Sprintf("unknown allocation mode %q, expected single, custom or team", req.Mode))
	}
	if len(pool) == 0 {
		return apperrors.NewValidationError("candidates", "no unassigned candidates match the criteria")
	}
	if req.MaxTotal < 0 {
		return apperrors.NewValidationError("maxTotal", "maxTotal must not be negative")
	}
	return nil
}

// effectiveCap returns the cap a target is allocated under. A cap at or
// below zero yields no candidates for that target and is not an error.
func effectiveCap(req Request, t models.AllocationTarget) int {
	limit := t.Cap
	if req.Mode == models.ModeTeam {
		limit = req.TeamCap
	}
	if limit < 0 {
		return 0
	}
	return limit
}

func notes(req Request, limit int) string {
	priority := req.Campaign.Priority
	if priority == "" {
		priority = "normal"
	}
	n := fmt.Sprintf("Campaign: %s | Priority: %s", req.Campaign.Name, priority)
	if req.Mode == models.ModeCustom || req.Mode == models.ModeTeam {
		n += fmt.Sprintf(" | Cap: %d", limit)
	}
	return n
}
