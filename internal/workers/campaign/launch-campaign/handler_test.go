package launchcampaign

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "recruit-workers/internal/common/errors"
	"recruit-workers/internal/common/logger"
	"recruit-workers/internal/common/observability"
	"recruit-workers/internal/models"
	"recruit-workers/internal/notify"
	"recruit-workers/internal/store"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishCampaignLaunched(ctx context.Context, event notify.CampaignLaunched) (string, error) {
	args := m.Called(ctx, event)
	return args.String(0), args.Error(1)
}

type conflictStore struct {
	*store.MemoryStore
}

func (conflictStore) CommitAssignments(context.Context, []models.Assignment) ([]models.Assignment, error) {
	return nil, store.ErrConflict
}

func seed(n int) *store.MemoryStore {
	snap := models.Snapshot{
		Employees: []models.Employee{{ID: "e1", FullName: "One"}, {ID: "e2", FullName: "Two"}},
	}
	for i := 1; i <= n; i++ {
		snap.ActiveCandidates = append(snap.ActiveCandidates, models.CandidateRecord{
			ID:      fmt.Sprintf("c%d", i),
			Name:    fmt.Sprintf("Candidate %d", i),
			Phone:   fmt.Sprintf("010%d", i),
			Address: "Cairo",
		})
	}
	return store.NewMemoryStoreFromSnapshot(snap)
}

func newHandler(t *testing.T, st store.Store, pub EventPublisher) *Handler {
	h := NewHandler(DefaultConfig(), st, pub, observability.Noop(), logger.NewTestLogger(t))
	h.newID = func() string { return "camp-1" }
	return h
}

func TestHandler_Execute_Modes(t *testing.T) {
	tests := []struct {
		name           string
		input          Input
		wantAssigned   int
		wantUnassigned int
		wantPer        map[string]int
	}{
		{
			name: "custom caps fill targets in order",
			input: Input{
				CampaignName: "Spring",
				Mode:         models.ModeCustom,
				Targets:      []models.AllocationTarget{{EmployeeID: "e1", Cap: 2}, {EmployeeID: "e2", Cap: 2}},
			},
			wantAssigned:   4,
			wantUnassigned: 1,
			wantPer:        map[string]int{"e1": 2, "e2": 2},
		},
		{
			name: "team cap overrides target caps",
			input: Input{
				CampaignName:       "Spring",
				Mode:               models.ModeTeam,
				Targets:            []models.AllocationTarget{{EmployeeID: "e1", Cap: 10}, {EmployeeID: "e2", Cap: 10}},
				MaxPerEmployeeTeam: 1,
			},
			wantAssigned:   2,
			wantUnassigned: 3,
			wantPer:        map[string]int{"e1": 1, "e2": 1},
		},
		{
			name: "max total bounds the campaign",
			input: Input{
				CampaignName: "Spring",
				Mode:         models.ModeCustom,
				Targets:      []models.AllocationTarget{{EmployeeID: "e1", Cap: 3}, {EmployeeID: "e2", Cap: 3}},
				MaxTotal:     4,
			},
			wantAssigned:   4,
			wantUnassigned: 1,
			wantPer:        map[string]int{"e1": 3, "e2": 1},
		},
		{
			name: "uneven pool leaves later targets short",
			input: Input{
				CampaignName: "Spring",
				Mode:         models.ModeCustom,
				Targets:      []models.AllocationTarget{{EmployeeID: "e1", Cap: 5}, {EmployeeID: "e2", Cap: 5}},
			},
			wantAssigned:   5,
			wantUnassigned: 0,
			wantPer:        map[string]int{"e1": 5, "e2": 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := seed(5)
			h := newHandler(t, st, nil)

			out, err := h.Execute(context.Background(), &tt.input)
			require.NoError(t, err)
			assert.Equal(t, "camp-1", out.CampaignID)
			assert.Equal(t, "normal", out.Priority)
			assert.Equal(t, 5, out.EligibleCount)
			assert.Equal(t, tt.wantAssigned, out.AssignedCount)
			assert.Equal(t, tt.wantUnassigned, out.UnassignedCount)
			assert.Equal(t, tt.wantPer, out.PerEmployee)
			assert.False(t, out.EventPublished)

			stored, _ := st.ListAssignments(context.Background())
			assert.Len(t, stored, tt.wantAssigned)
		})
	}
}

func TestHandler_Execute_SecondLaunchSkipsAssigned(t *testing.T) {
	st := seed(3)
	h := newHandler(t, st, nil)
	input := Input{
		CampaignName: "Wave",
		Priority:     "HIGH",
		Mode:         models.ModeSingle,
		Targets:      []models.AllocationTarget{{EmployeeID: "e1", Cap: 2}},
	}

	first, err := h.Execute(context.Background(), &input)
	require.NoError(t, err)
	assert.Equal(t, 2, first.AssignedCount)
	assert.Equal(t, "high", first.Priority)

	second, err := h.Execute(context.Background(), &input)
	require.NoError(t, err)
	assert.Equal(t, 1, second.EligibleCount)
	assert.Equal(t, 1, second.AssignedCount)

	_, err = h.Execute(context.Background(), &input)
	require.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed), "pool exhausted")

	stored, _ := st.ListAssignments(context.Background())
	require.Len(t, stored, 3)
	assert.Equal(t, "Campaign: Wave | Priority: high", stored[0].Notes)
}

func TestHandler_Execute_Publishes(t *testing.T) {
	t.Run("published", func(t *testing.T) {
		pub := new(MockPublisher)
		pub.On("PublishCampaignLaunched", mock.Anything, mock.MatchedBy(func(e notify.CampaignLaunched) bool {
			return e.CampaignID == "camp-1" && e.AssignedCount == 1 && e.LaunchedBy == "mgr" && e.Mode == "single"
		})).Return("msg-1", nil)

		h := newHandler(t, seed(1), pub)
		out, err := h.Execute(context.Background(), &Input{
			CampaignName: "Solo",
			Mode:         models.ModeSingle,
			Targets:      []models.AllocationTarget{{EmployeeID: "e2", Cap: 1}},
			LaunchedBy:   "mgr",
		})
		require.NoError(t, err)
		assert.True(t, out.EventPublished)
		pub.AssertExpectations(t)
	})

	t.Run("publish failure keeps the commit", func(t *testing.T) {
		pub := new(MockPublisher)
		pub.On("PublishCampaignLaunched", mock.Anything, mock.Anything).Return("", errors.New("throttled"))

		st := seed(1)
		h := newHandler(t, st, pub)
		out, err := h.Execute(context.Background(), &Input{
			CampaignName: "Solo",
			Mode:         models.ModeSingle,
			Targets:      []models.AllocationTarget{{EmployeeID: "e2", Cap: 1}},
		})
		require.NoError(t, err)
		assert.False(t, out.EventPublished)

		stored, _ := st.ListAssignments(context.Background())
		assert.Len(t, stored, 1)
	})
}

func intPtr(i int) *int { return &i }

func TestHandler_Execute_Errors(t *testing.T) {
	valid := Input{
		CampaignName: "X",
		Mode:         models.ModeCustom,
		Targets:      []models.AllocationTarget{{EmployeeID: "e1", Cap: 1}},
	}

	tests := []struct {
		name      string
		mutate    func(in *Input)
		wantCode  apperrors.ErrorCode
		wantField string
	}{
		{name: "blank name", mutate: func(in *Input) { in.CampaignName = "  " }, wantCode: apperrors.ErrCodeValidationFailed, wantField: "campaignName"},
		{name: "unknown priority", mutate: func(in *Input) { in.Priority = "asap" }, wantCode: apperrors.ErrCodeValidationFailed, wantField: "priority"},
		{name: "unknown employee", mutate: func(in *Input) { in.Targets[0].EmployeeID = "ghost" }, wantCode: apperrors.ErrCodeValidationFailed, wantField: "targets"},
		{name: "unknown mode", mutate: func(in *Input) { in.Mode = "random" }, wantCode: apperrors.ErrCodeValidationFailed, wantField: "mode"},
		{name: "no match", mutate: func(in *Input) { in.Criteria.City = "Alexandria" }, wantCode: apperrors.ErrCodeValidationFailed, wantField: "candidates"},
		{name: "negative age min", mutate: func(in *Input) { in.Criteria.AgeMin = intPtr(-1) }, wantCode: apperrors.ErrCodeValidationFailed, wantField: "criteria.ageMin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			in.Targets = append([]models.AllocationTarget{}, valid.Targets...)
			tt.mutate(&in)

			st := seed(2)
			_, err := newHandler(t, st, nil).Execute(context.Background(), &in)
			stdErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.wantField, stdErr.Field)

			stored, _ := st.ListAssignments(context.Background())
			assert.Empty(t, stored)
		})
	}
}

func TestHandler_Execute_CommitConflict(t *testing.T) {
	h := newHandler(t, conflictStore{seed(2)}, nil)
	_, err := h.Execute(context.Background(), &Input{
		CampaignName: "X",
		Mode:         models.ModeSingle,
		Targets:      []models.AllocationTarget{{EmployeeID: "e1", Cap: 2}},
	})
	require.True(t, apperrors.HasCode(err, apperrors.ErrCodeCommitFailed))
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestConfigFromApp_Defaults(t *testing.T) {
	cfg := ConfigFromApp(nil)
	assert.Equal(t, "normal", cfg.DefaultPriority)
	assert.NoError(t, cfg.Validate())
}
