// Package store is the persistence collaborator of the intake and campaign
// pipeline: snapshot reads and atomic commits.
package store

import (
	"context"
	"errors"

	"recruit-workers/internal/models"
)

// ErrConflict is returned when a commit finds the persisted state changed
// underneath the plan (a row to update or retire is gone, or a candidate is
// already assigned). The caller must re-run detection on fresh data.
var ErrConflict = errors.New("persisted state changed since the snapshot was read")

// Store reads consistent snapshots and applies plans atomically.
type Store interface {
	ListActiveCandidates(ctx context.Context) ([]models.CandidateRecord, error)
	ListHistory(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryRecord, error)
	ListAssignments(ctx context.Context) ([]models.Assignment, error)
	ListEmployees(ctx context.Context) ([]models.Employee, error)

	// Snapshot reads active candidates, the full history, assignments and
	// employees as one consistent view.
	Snapshot(ctx context.Context) (models.Snapshot, error)

	// CommitResolutionPlan applies every write of plan or none of them.
	CommitResolutionPlan(ctx context.Context, plan models.ResolutionPlan) (models.CommitResult, error)

	// CommitAssignments inserts every assignment or none of them and returns
	// the stored rows with ids and timestamps filled.
	CommitAssignments(ctx context.Context, assignments []models.Assignment) ([]models.Assignment, error)
}
