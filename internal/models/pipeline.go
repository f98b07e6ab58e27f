// internal/models/pipeline.go
package models

import "time"

// MatchSource tags which data set a duplicate was found in.
type MatchSource string

const (
	SourceActive  MatchSource = "inActiveCandidates"
	SourceHistory MatchSource = "inHistory"
)

// DuplicateMatch pairs an incoming record with the persisted rows it collides with.
// Active is set for SourceActive matches; History holds every archive entry
// sharing the identity key.
type DuplicateMatch struct {
	Incoming CandidateRecord  `json:"incoming"`
	Source   MatchSource      `json:"source"`
	Active   *CandidateRecord `json:"active,omitempty"`
	History  []HistoryRecord  `json:"history,omitempty"`
}

// ResolutionPolicy decides how duplicates are reconciled.
type ResolutionPolicy string

const (
	PolicySkip    ResolutionPolicy = "skip"
	PolicyMerge   ResolutionPolicy = "merge"
	PolicyReplace ResolutionPolicy = "replace"
)

// Valid reports whether p is one of the known policies.
func (p ResolutionPolicy) Valid() bool {
	switch p {
	case PolicySkip, PolicyMerge, PolicyReplace:
		return true
	}
	return false
}

// Replacement retires an active row and inserts its successor.
type Replacement struct {
	Retired   CandidateRecord `json:"retired"`
	Insert    CandidateRecord `json:"insert"`
	DeletedAt time.Time       `json:"deletedAt"`
}

// ResolutionPlan is the full write set for one upload. It must be committed
// atomically and exactly once.
type ResolutionPlan struct {
	Inserts  []CandidateRecord `json:"inserts"`
	Updates  []CandidateRecord `json:"updates"`
	Replaces []Replacement     `json:"replaces"`
	History  []HistoryRecord   `json:"history"`
	Skipped  []CandidateRecord `json:"skipped"`
}

// Empty reports whether the plan writes nothing.
func (p ResolutionPlan) Empty() bool {
	return len(p.Inserts) == 0 && len(p.Updates) == 0 && len(p.Replaces) == 0 && len(p.History) == 0
}

// CommitResult reports what a plan commit wrote.
type CommitResult struct {
	Inserted        int `json:"inserted"`
	Updated         int `json:"updated"`
	Replaced        int `json:"replaced"`
	HistoryAppended int `json:"historyAppended"`
}

// FilterCriteria is a conjunctive candidate predicate. Zero values never exclude.
type FilterCriteria struct {
	AgeMin          *int   `json:"ageMin,omitempty" yaml:"ageMin,omitempty" validate:"omitempty,gte=0"`
	AgeMax          *int   `json:"ageMax,omitempty" yaml:"ageMax,omitempty" validate:"omitempty,gte=0"`
	Address         string `json:"address,omitempty" yaml:"address,omitempty"`
	City            string `json:"city,omitempty" yaml:"city,omitempty"`
	Company         string `json:"company,omitempty" yaml:"company,omitempty"`
	Position        string `json:"position,omitempty" yaml:"position,omitempty"`
	Education       string `json:"education,omitempty" yaml:"education,omitempty"`
	ExperienceLevel string `json:"experienceLevel,omitempty" yaml:"experienceLevel,omitempty"`
	PhonePrefix     string `json:"phonePrefix,omitempty" yaml:"phonePrefix,omitempty"`
}

// AllocationMode selects how a pool is split across employees.
type AllocationMode string

const (
	ModeSingle AllocationMode = "single"
	ModeCustom AllocationMode = "custom"
	ModeTeam   AllocationMode = "team"
)

type AllocationTarget struct {
	EmployeeID string `json:"employeeId" yaml:"employeeId" validate:"required"`
	Cap        int    `json:"cap" yaml:"cap"`
}

// Snapshot is one consistent read of persisted state, taken once per invocation.
type Snapshot struct {
	ActiveCandidates []CandidateRecord `json:"activeCandidates"`
	History          []HistoryRecord   `json:"history"`
	Assignments      []Assignment      `json:"assignments"`
	Employees        []Employee        `json:"employees"`
}
