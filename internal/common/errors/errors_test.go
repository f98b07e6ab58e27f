package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name          string
		err           *StandardError
		wantCode      string
		wantRetries   int
		wantField     interface{}
		wantRetryable bool
	}{
		{
			name:      "validation carries the offending field",
			err:       NewValidationError("targets", "at least one target is required"),
			wantCode:  "VALIDATION_FAILED",
			wantField: "targets",
		},
		{
			name:     "parsing maps onto validation boundary",
			err:      NewInputParsingError(fmt.Errorf("bad json")),
			wantCode: "VALIDATION_FAILED",
		},
		{
			name:     "commit failure is never retried",
			err:      NewCommitFailedError("commitResolutionPlan", fmt.Errorf("serialization failure")),
			wantCode: "COMMIT_FAILED",
		},
		{
			name:          "snapshot read is retried",
			err:           NewSnapshotReadFailedError("activeCandidates", fmt.Errorf("conn reset")),
			wantCode:      "SNAPSHOT_READ_FAILED",
			wantRetries:   3,
			wantRetryable: true,
		},
		{
			name:          "staging failure retried twice",
			err:           NewStagingFailedError("load", fmt.Errorf("timeout")),
			wantCode:      "STAGING_FAILED",
			wantRetries:   2,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)
			assert.Equal(t, tt.wantRetryable, bpmn.Retryable)
			assert.Equal(t, string(tt.err.Code), bpmn.ErrorVariables["originalErrorCode"])
			if tt.wantField != nil {
				assert.Equal(t, tt.wantField, bpmn.ErrorVariables["errorField"])
			}

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, tt.wantCode, vars["errorCode"])
			assert.Equal(t, tt.err.Message, vars["errorMessage"])
		})
	}
}

func TestRecordValidationError_Metadata(t *testing.T) {
	err := NewRecordValidationError("phone", 4, "phone is required")
	bpmn := ConvertToBPMNError(err)

	assert.Equal(t, "phone", err.Field)
	assert.Equal(t, 4, bpmn.ErrorVariables["recordIndex"])
	assert.Contains(t, err.Error(), "field: phone")
}

func TestAsAndHasCode_WrappedChain(t *testing.T) {
	base := NewCommitFailedError("commitAssignments", fmt.Errorf("unique violation"))
	wrapped := fmt.Errorf("launch campaign: %w", base)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, base, got)
	assert.True(t, HasCode(wrapped, ErrCodeCommitFailed))
	assert.False(t, HasCode(wrapped, ErrCodeValidationFailed))
	assert.False(t, HasCode(stderrors.New("plain"), ErrCodeCommitFailed))
}

func TestUnwrap_ExposesCause(t *testing.T) {
	cause := stderrors.New("redis down")
	err := NewStagingFailedError("save", cause)
	assert.True(t, stderrors.Is(err, cause))
}

func TestNormalize(t *testing.T) {
	std := NewUploadNotFoundError("u-1")
	assert.Same(t, std, Normalize(std))

	internal := Normalize(stderrors.New("nil map"))
	assert.Equal(t, ErrCodeInternal, internal.Code)
	assert.Equal(t, "nil map", internal.Details)
	assert.False(t, internal.Retryable)
}

func TestRetryDecision(t *testing.T) {
	snapshot := NewSnapshotReadFailedError("history", stderrors.New("x"))
	staging := NewStagingFailedError("load", stderrors.New("x"))
	commit := NewCommitFailedError("plan", stderrors.New("x"))

	tests := []struct {
		name          string
		err           *StandardError
		jobRetries    int32
		wantRetry     bool
		wantRemaining int32
	}{
		{"retryable with budget", snapshot, 3, true, 2},
		{"remaining capped by code", staging, 10, true, 2},
		{"last attempt throws", snapshot, 1, false, 0},
		{"non-retryable throws", commit, 5, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retry, remaining := RetryDecision(tt.err, tt.jobRetries)
			assert.Equal(t, tt.wantRetry, retry)
			assert.Equal(t, tt.wantRemaining, remaining)
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeValidationFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInputParsingFailed))
	assert.Equal(t, "DECISION", GetErrorCategory(ErrCodeDuplicatesFound))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeCommitFailed))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeSnapshotReadFailed))
	assert.Equal(t, "STAGING", GetErrorCategory(ErrCodeUploadNotFound))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeSearchIndexFailed))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeNotificationPublishFailed))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}
