// internal/store/memory.go
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"recruit-workers/internal/models"
	"recruit-workers/internal/pipeline/identity"
)

// MemoryStore is an in-process Store used by dry runs and tests. Commits are
// validated in full before anything is applied.
type MemoryStore struct {
	mu          sync.RWMutex
	candidates  []models.CandidateRecord
	history     []models.HistoryRecord
	assignments []models.Assignment
	employees   []models.Employee

	now   func() time.Time
	newID func() string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// NewMemoryStoreFromSnapshot seeds a store with a copy of snap.
func NewMemoryStoreFromSnapshot(snap models.Snapshot) *MemoryStore {
	s := NewMemoryStore()
	s.candidates = append(s.candidates, snap.ActiveCandidates...)
	s.history = append(s.history, snap.History...)
	s.assignments = append(s.assignments, snap.Assignments...)
	s.employees = append(s.employees, snap.Employees...)
	return s
}

// AddEmployees registers read-only employees.
func (s *MemoryStore) AddEmployees(employees ...models.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees = append(s.employees, employees...)
}

func (s *MemoryStore) ListActiveCandidates(_ context.Context) ([]models.CandidateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CandidateRecord{}, s.candidates...), nil
}

func (s *MemoryStore) ListHistory(_ context.Context, filter models.HistoryFilter) ([]models.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	phone := identity.NormalizePhone(filter.Phone)
	out := []models.HistoryRecord{}
	for _, h := range s.history {
		if phone != "" && identity.NormalizePhone(h.Phone) != phone {
			continue
		}
		if filter.UploadedBy != "" && h.UploadedBy != filter.UploadedBy {
			continue
		}
		if filter.ActiveOnly && !h.IsActive {
			continue
		}
		out = append(out, h)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) ListAssignments(_ context.Context) ([]models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Assignment{}, s.assignments...), nil
}

func (s *MemoryStore) ListEmployees(_ context.Context) ([]models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Employee{}, s.employees...), nil
}

func (s *MemoryStore) Snapshot(_ context.Context) (models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Snapshot{
		ActiveCandidates: append([]models.CandidateRecord{}, s.candidates...),
		History:          append([]models.HistoryRecord{}, s.history...),
		Assignments:      append([]models.Assignment{}, s.assignments...),
		Employees:        append([]models.Employee{}, s.employees...),
	}, nil
}

func (s *MemoryStore) CommitResolutionPlan(_ context.Context, plan models.ResolutionPlan) (models.CommitResult, error) {
	if plan.Empty() {
		return models.CommitResult{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index := make(map[string]int, len(s.candidates))
	for i, c := range s.candidates {
		index[c.ID] = i
	}
	for _, upd := range plan.Updates {
		if _, ok := index[upd.ID]; !ok {
			return models.CommitResult{}, fmt.Errorf("update candidate %s: %w", upd.ID, ErrConflict)
		}
	}
	for _, rep := range plan.Replaces {
		if _, ok := index[rep.Retired.ID]; !ok {
			return models.CommitResult{}, fmt.Errorf("retire candidate %s: %w", rep.Retired.ID, ErrConflict)
		}
	}

	// validated; apply
	for _, upd := range plan.Updates {
		s.candidates[index[upd.ID]] = upd
	}

	retired := make(map[string]time.Time, len(plan.Replaces))
	for _, rep := range plan.Replaces {
		retired[rep.Retired.ID] = rep.DeletedAt
	}
	if len(retired) > 0 {
		kept := s.candidates[:0]
		for _, c := range s.candidates {
			if _, gone := retired[c.ID]; !gone {
				kept = append(kept, c)
			}
		}
		s.candidates = kept

		for _, rep := range plan.Replaces {
			s.archive(rep)
		}
	}

	for _, ins := range plan.Inserts {
		s.candidates = append(s.candidates, s.withID(ins))
	}
	for _, rep := range plan.Replaces {
		s.candidates = append(s.candidates, s.withID(rep.Insert))
	}
	for _, h := range plan.History {
		if h.ID == "" {
			h.ID = s.newID()
		}
		s.history = append(s.history, h)
	}

	return models.CommitResult{
		Inserted:        len(plan.Inserts),
		Updated:         len(plan.Updates),
		Replaced:        len(plan.Replaces),
		HistoryAppended: len(plan.History),
	}, nil
}

// archive flips the active history entries of a retired candidate, writing
// a deleted entry when none exists.
func (s *MemoryStore) archive(rep models.Replacement) {
	flipped := false
	for i := range s.history {
		h := &s.history[i]
		if h.CandidateID == rep.Retired.ID && h.IsActive {
			deletedAt := rep.DeletedAt
			h.IsActive = false
			h.DeletedAt = &deletedAt
			flipped = true
		}
	}
	if flipped {
		return
	}
	entry := models.NewHistoryRecord(rep.Retired, "", rep.DeletedAt)
	entry.ID = s.newID()
	entry.IsActive = false
	deletedAt := rep.DeletedAt
	entry.DeletedAt = &deletedAt
	s.history = append(s.history, entry)
}

func (s *MemoryStore) withID(c models.CandidateRecord) models.CandidateRecord {
	if c.ID == "" {
		c.ID = s.newID()
	}
	return c
}

func (s *MemoryStore) CommitAssignments(_ context.Context, assignments []models.Assignment) ([]models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := make(map[string]bool, len(s.assignments)+len(assignments))
	for _, a := range s.assignments {
		taken[a.CandidateID] = true
	}

	now := s.now()
	stored := make([]models.Assignment, len(assignments))
	for i, a := range assignments {
		if taken[a.CandidateID] {
			return nil, fmt.Errorf("assign candidate %s: %w", a.CandidateID, ErrConflict)
		}
		taken[a.CandidateID] = true

		if a.ID == "" {
			a.ID = s.newID()
		}
		if a.Status == "" {
			a.Status = models.AssignmentPending
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		stored[i] = a
	}

	s.assignments = append(s.assignments, stored...)
	return append([]models.Assignment{}, stored...), nil
}
