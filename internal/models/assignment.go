// internal/models/assignment.go
package models

import "time"

type Employee struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Position string `json:"position,omitempty"`
}

type AssignmentStatus string

const (
	AssignmentPending    AssignmentStatus = "pending"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
)

// Assignment links one candidate to one employee. A candidate holds at most
// one assignment.
type Assignment struct {
	ID          string           `json:"id,omitempty"`
	EmployeeID  string           `json:"employeeId" validate:"required"`
	CandidateID string           `json:"candidateId" validate:"required"`
	Status      AssignmentStatus `json:"status" validate:"oneof=pending in_progress completed"`
	Notes       string           `json:"notes,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}
