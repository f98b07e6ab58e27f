package parsecandidateupload

import (
	"context"
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
)

const upload = `Name,Phone,Age,Address,Company,Position,Education
Ana Diaz,+1 555 0101,31,12 Nile St Cairo,Acme,Sales,BCom
,555 0102,40,,,,
Ben Okafor,555-0103,,Lagos,,,
Cara Lin,,22,,,,
`

func createTestHandler(t *testing.T, cfg *Config) (*Handler, *staging.Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	if cfg == nil {
		cfg = DefaultConfig()
	}
	log := logger.NewTestLogger(t)
	stage := staging.NewStore(rdb, time.Hour, log)
	return NewHandler(cfg, stage, observability.Noop(), log), stage, mr
}

func TestHandler_Execute_Success(t *testing.T) {
	h, stage, _ := createTestHandler(t, nil)

	out, err := h.Execute(context.Background(), &Input{CSVContent: upload, UploadedBy: "mgr", FileName: "june.csv"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.UploadID)
	assert.Equal(t, 2, out.RowCount)
	assert.Equal(t, 2, out.DroppedRows)
	assert.Equal(t, "missing name", out.DroppedLines[0].Reason)
	assert.Equal(t, "missing phone", out.DroppedLines[1].Reason)

	staged, err := stage.Get(context.Background(), out.UploadID)
	require.NoError(t, err)
	assert.Equal(t, "mgr", staged.UploadedBy)
	assert.Equal(t, "june.csv", staged.FileName)
	require.Len(t, staged.Records, 2)
	assert.Equal(t, "Ana Diaz", staged.Records[0].Name)
	assert.Nil(t, staged.Records[1].Age)
}

func TestHandler_Execute_OutOfRangeAgeStagedAsMissing(t *testing.T) {
	h, stage, _ := createTestHandler(t, nil)
	csv := "Name,Phone,Age,Address,Company,Position,Education\nAna,0101,200,Cairo,,,\nBen,0102,45,Giza,,,\n"

	out, err := h.Execute(context.Background(), &Input{CSVContent: csv, UploadedBy: "mgr"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.RowCount)
	assert.Zero(t, out.DroppedRows)

	staged, err := stage.Get(context.Background(), out.UploadID)
	require.NoError(t, err)
	require.Len(t, staged.Records, 2)
	assert.Nil(t, staged.Records[0].Age)
	for _, rec := range staged.Records {
		assert.NoError(t, models.Validate(rec))
	}
}

func TestHandler_Execute_ValidationErrors(t *testing.T) {
	small := DefaultConfig()
	small.MaxBatchSize = 1

	tests := []struct {
		name    string
		cfg     *Config
		input   *Input
		wantMsg string
	}{
		{
			name:    "header only",
			input:   &Input{CSVContent: "Name,Phone,Age,Address,Company,Position,Education\n", UploadedBy: "mgr"},
			wantMsg: "no candidate rows",
		},
		{
			name:    "over batch limit",
			cfg:     small,
			input:   &Input{CSVContent: upload, UploadedBy: "mgr"},
			wantMsg: "limit is 1",
		},
		{
			name:    "missing uploader",
			input:   &Input{CSVContent: upload, UploadedBy: "  "},
			wantMsg: "uploadedBy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, mr := createTestHandler(t, tt.cfg)

			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Empty(t, mr.Keys(), "nothing staged")
		})
	}
}

func TestHandler_Execute_StagingUnavailable(t *testing.T) {
	h, _, mr := createTestHandler(t, nil)
	mr.Close()

	_, err := h.Execute(context.Background(), &Input{CSVContent: upload, UploadedBy: "mgr"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStagingFailed))
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.MaxBatchSize = 0
	assert.Error(t, cfg.Validate())
}
