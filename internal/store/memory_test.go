package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruit-workers/internal/models"
	"recruit-workers/internal/pipeline/duplicates"
	"recruit-workers/internal/pipeline/resolution"
)

// upload runs detect, resolve and commit the way the intake workers do.
func upload(t *testing.T, s Store, batch []models.CandidateRecord, policy models.ResolutionPolicy) models.CommitResult {
	t.Helper()
	ctx := context.Background()

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	det := duplicates.Detect(batch, snap.ActiveCandidates, snap.History)

	plan, err := resolution.Resolve(batch, policy, det.Matches(), resolution.Options{UploadedBy: "mgr"})
	require.NoError(t, err)

	res, err := s.CommitResolutionPlan(ctx, plan)
	require.NoError(t, err)
	return res
}

func TestMemoryStore_MergeScenario(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	upload(t, s, []models.CandidateRecord{{Name: "A", Phone: "0101"}}, models.PolicyMerge)
	res := upload(t, s, []models.CandidateRecord{{Name: "A", Phone: "0101", Company: "Acme"}}, models.PolicyMerge)
	assert.Equal(t, 1, res.Updated)

	active, err := s.ListActiveCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Acme", active[0].Company)

	history, err := s.ListHistory(ctx, models.HistoryFilter{Phone: "0101"})
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestMemoryStore_ReplaceRetiresAndKeepsActiveCount(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	upload(t, s, []models.CandidateRecord{{Name: "A", Phone: "0101"}, {Name: "B", Phone: "0202"}}, models.PolicySkip)
	before, _ := s.ListActiveCandidates(ctx)
	var oldID string
	for _, c := range before {
		if c.Phone == "0101" {
			oldID = c.ID
		}
	}

	res := upload(t, s, []models.CandidateRecord{{Name: "A2", Phone: "01-01"}}, models.PolicyReplace)
	assert.Equal(t, 1, res.Replaced)

	after, _ := s.ListActiveCandidates(ctx)
	assert.Len(t, after, len(before))
	for _, c := range after {
		assert.NotEqual(t, oldID, c.ID)
	}

	history, _ := s.ListHistory(ctx, models.HistoryFilter{Phone: "0101"})
	require.Len(t, history, 2)
	assert.False(t, history[0].IsActive)
	assert.NotNil(t, history[0].DeletedAt)
	assert.True(t, history[1].IsActive)

	activeOnly, _ := s.ListHistory(ctx, models.HistoryFilter{Phone: "0101", ActiveOnly: true})
	assert.Len(t, activeOnly, 1)
}

func TestMemoryStore_SoftDeletedPhoneStillFlagged(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	upload(t, s, []models.CandidateRecord{{Name: "A", Phone: "0101"}}, models.PolicySkip)
	upload(t, s, []models.CandidateRecord{{Name: "A", Phone: "0101"}}, models.PolicyReplace)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	det := duplicates.Detect([]models.CandidateRecord{{Name: "A", Phone: "0101"}}, snap.ActiveCandidates, snap.History)
	assert.Len(t, det.DuplicatesInActive, 1)
}

func TestMemoryStore_RetireWithoutHistoryWritesArchiveEntry(t *testing.T) {
	s := NewMemoryStoreFromSnapshot(models.Snapshot{
		ActiveCandidates: []models.CandidateRecord{{ID: "legacy", Name: "L", Phone: "0900"}},
	})
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.CommitResolutionPlan(context.Background(), models.ResolutionPlan{
		Replaces: []models.Replacement{{
			Retired:   models.CandidateRecord{ID: "legacy", Name: "L", Phone: "0900"},
			Insert:    models.CandidateRecord{ID: "fresh", Name: "L2", Phone: "0900"},
			DeletedAt: at,
		}},
	})
	require.NoError(t, err)

	history, _ := s.ListHistory(context.Background(), models.HistoryFilter{})
	require.Len(t, history, 1)
	assert.Equal(t, "legacy", history[0].CandidateID)
	assert.False(t, history[0].IsActive)
	assert.Equal(t, at, *history[0].DeletedAt)
}

func TestMemoryStore_CommitIsAllOrNothing(t *testing.T) {
	s := NewMemoryStoreFromSnapshot(models.Snapshot{
		ActiveCandidates: []models.CandidateRecord{{ID: "c1", Name: "A", Phone: "1"}},
	})
	ctx := context.Background()

	_, err := s.CommitResolutionPlan(ctx, models.ResolutionPlan{
		Inserts: []models.CandidateRecord{{ID: "n1", Name: "N", Phone: "2"}},
		Updates: []models.CandidateRecord{{ID: "missing", Name: "X", Phone: "3"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))

	active, _ := s.ListActiveCandidates(ctx)
	assert.Len(t, active, 1, "nothing applied")
}

func TestMemoryStore_CommitAssignments(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	stored, err := s.CommitAssignments(ctx, []models.Assignment{
		{EmployeeID: "e1", CandidateID: "c1"},
		{EmployeeID: "e2", CandidateID: "c2"},
	})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.NotEmpty(t, stored[0].ID)
	assert.Equal(t, models.AssignmentPending, stored[0].Status)

	_, err = s.CommitAssignments(ctx, []models.Assignment{
		{EmployeeID: "e3", CandidateID: "c3"},
		{EmployeeID: "e3", CandidateID: "c1"},
	})
	assert.True(t, errors.Is(err, ErrConflict))

	all, _ := s.ListAssignments(ctx)
	assert.Len(t, all, 2, "conflicting batch wrote nothing")
}

func TestMemoryStore_HistoryFilters(t *testing.T) {
	s := NewMemoryStoreFromSnapshot(models.Snapshot{
		History: []models.HistoryRecord{
			{ID: "1", Phone: "0101", UploadedBy: "a", IsActive: true},
			{ID: "2", Phone: "0202", UploadedBy: "b", IsActive: true},
			{ID: "3", Phone: "0303", UploadedBy: "a", IsActive: false},
		},
	})
	ctx := context.Background()

	byUploader, _ := s.ListHistory(ctx, models.HistoryFilter{UploadedBy: "a"})
	assert.Len(t, byUploader, 2)

	limited, _ := s.ListHistory(ctx, models.HistoryFilter{Limit: 1})
	require.Len(t, limited, 1)
	assert.Equal(t, "1", limited[0].ID)
}
