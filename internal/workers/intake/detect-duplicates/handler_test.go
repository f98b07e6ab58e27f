package detectduplicates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "recruit-workers/internal/common/errors"
	"recruit-workers/internal/common/logger"
	"recruit-workers/internal/common/observability"
	"recruit-workers/internal/models"
	"recruit-workers/internal/staging"
	"recruit-workers/internal/store"
)

type failingStore struct {
	store.Store
}

func (failingStore) Snapshot(context.Context) (models.Snapshot, error) {
	return models.Snapshot{}, errors.New("connection reset by peer")
}

func setup(t *testing.T, st store.Store) (*Handler, *staging.Store) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := logger.NewTestLogger(t)
	stage := staging.NewStore(rdb, time.Hour, log)
	return NewHandler(DefaultConfig(), stage, st, observability.Noop(), log), stage
}

func stageBatch(t *testing.T, stage *staging.Store, records ...models.CandidateRecord) string {
	staged, err := stage.Put(context.Background(), staging.StagedUpload{UploadedBy: "mgr", Records: records})
	require.NoError(t, err)
	return staged.UploadID
}

func TestHandler_Execute(t *testing.T) {
	deleted := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := store.NewMemoryStoreFromSnapshot(models.Snapshot{
		ActiveCandidates: []models.CandidateRecord{{ID: "c1", Name: "Ana", Phone: "555-0101"}},
		History: []models.HistoryRecord{
			{ID: "h1", CandidateID: "c1", Name: "Ana", Phone: "555-0101", IsActive: true},
			{ID: "h2", CandidateID: "c9", Name: "Old Ben", Phone: "0202", IsActive: false, DeletedAt: &deleted},
		},
	})
	h, stage := setup(t, st)

	id := stageBatch(t, stage,
		models.CandidateRecord{Name: "Ana D", Phone: "+555 0101"},
		models.CandidateRecord{Name: "Ben", Phone: "02-02"},
		models.CandidateRecord{Name: "Cara", Phone: "0303"},
	)

	out, err := h.Execute(context.Background(), &Input{UploadID: id})
	require.NoError(t, err)
	assert.True(t, out.DuplicatesFound)
	assert.Equal(t, 1, out.NewCount)
	assert.Equal(t, 1, out.DuplicatesInActive)
	assert.Equal(t, 1, out.DuplicatesInHistory)
	assert.Empty(t, out.ResolutionPolicy, "a policy must be chosen")

	require.Len(t, out.Duplicates, 2)
	assert.Equal(t, models.SourceActive, out.Duplicates[0].Source)
	assert.Equal(t, "c1", out.Duplicates[0].ExistingID)
	assert.Equal(t, models.SourceHistory, out.Duplicates[1].Source)
	assert.Equal(t, "Old Ben", out.Duplicates[1].ExistingName)
}

func TestHandler_Execute_NoDuplicatesPresetsSkip(t *testing.T) {
	h, stage := setup(t, store.NewMemoryStore())
	id := stageBatch(t, stage, models.CandidateRecord{Name: "A", Phone: "1"}, models.CandidateRecord{Name: "B", Phone: ""})

	out, err := h.Execute(context.Background(), &Input{UploadID: id})
	require.NoError(t, err)
	assert.False(t, out.DuplicatesFound)
	assert.Equal(t, 2, out.NewCount)
	assert.Equal(t, models.PolicySkip, out.ResolutionPolicy)
	assert.Empty(t, out.Duplicates)
}

func TestHandler_Execute_Errors(t *testing.T) {
	t.Run("unknown upload", func(t *testing.T) {
		h, _ := setup(t, store.NewMemoryStore())
		_, err := h.Execute(context.Background(), &Input{UploadID: "nope"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUploadNotFound))
	})

	t.Run("snapshot failure is retryable", func(t *testing.T) {
		h, stage := setup(t, failingStore{})
		id := stageBatch(t, stage, models.CandidateRecord{Name: "A", Phone: "1"})

		_, err := h.Execute(context.Background(), &Input{UploadID: id})
		require.True(t, apperrors.HasCode(err, apperrors.ErrCodeSnapshotReadFailed))
		stdErr, _ := apperrors.As(err)
		assert.True(t, stdErr.Retryable)
	})
}
