// Package errors provides the structured error taxonomy shared by the pipeline
// core and the job workers, and its mapping onto BPMN errors.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Caller input was rejected before any work happened.
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeInputParsingFailed ErrorCode = "INPUT_PARSING_FAILED"

	// Decision point raised by duplicate detection. Workers report it as an
	// output variable; it is only thrown when a caller insists on committing
	// without a policy.
	ErrCodeDuplicatesFound ErrorCode = "DUPLICATES_FOUND"

	// The persistence collaborator rejected a plan. Nothing was applied and
	// detection must be re-run on fresh data.
	ErrCodeCommitFailed ErrorCode = "COMMIT_FAILED"

	ErrCodeSnapshotReadFailed ErrorCode = "SNAPSHOT_READ_FAILED"
	ErrCodeUploadNotFound     ErrorCode = "UPLOAD_NOT_FOUND"
	ErrCodeStagingFailed      ErrorCode = "STAGING_FAILED"

	// Side effects that never fail a job.
	ErrCodeSearchIndexFailed         ErrorCode = "SEARCH_INDEX_FAILED"
	ErrCodeNotificationPublishFailed ErrorCode = "NOTIFICATION_PUBLISH_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Field     string                 `json:"field,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("StandardError[%s]: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key to the error metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// As extracts a StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationError rejects caller input. field names the offending input.
func NewValidationError(field, message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   message,
		Field:     field,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordValidationError is NewValidationError for one row of a batch.
func NewRecordValidationError(field string, index int, message string) *StandardError {
	return NewValidationError(field, message).WithMetadata("recordIndex", index)
}

// NewInputParsingError wraps a job variable decoding failure.
func NewInputParsingError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputParsingFailed,
		Message:   "Failed to parse job variables",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDuplicatesFoundError is raised when a commit is attempted on a batch
// that still has unresolved duplicates.
func NewDuplicatesFoundError(count int) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicatesFound,
		Message:   "Duplicates require a resolution policy",
		Details:   fmt.Sprintf("duplicates: %d", count),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCommitFailedError reports a rejected plan. It is never retried as-is.
func NewCommitFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCommitFailed,
		Message:   "Commit rejected, re-run detection on fresh data",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewSnapshotReadFailedError reports a failed read of active/history/assignment data.
func NewSnapshotReadFailedError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSnapshotReadFailed,
		Message:   "Failed to read data snapshot",
		Details:   fmt.Sprintf("source: %s, error: %s", source, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewUploadNotFoundError reports a missing or expired staged upload.
func NewUploadNotFoundError(uploadID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUploadNotFound,
		Message:   "Staged upload not found or expired",
		Details:   fmt.Sprintf("uploadId: %s", uploadID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStagingFailedError reports a staging store failure.
func NewStagingFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStagingFailed,
		Message:   "Upload staging failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewSearchIndexFailedError reports a failed search mirror update.
func NewSearchIndexFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchIndexFailed,
		Message:   "Search index update failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewNotificationPublishFailedError reports a failed event publish.
func NewNotificationPublishFailedError(topic string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationPublishFailed,
		Message:   "Event publish failed",
		Details:   fmt.Sprintf("topic: %s, error: %s", topic, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the BPMN error codes caught by
// boundary events in the intake and campaign processes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidationFailed:          "VALIDATION_FAILED",
	ErrCodeInputParsingFailed:        "VALIDATION_FAILED",
	ErrCodeDuplicatesFound:           "DUPLICATES_FOUND",
	ErrCodeCommitFailed:              "COMMIT_FAILED",
	ErrCodeSnapshotReadFailed:        "SNAPSHOT_READ_FAILED",
	ErrCodeUploadNotFound:            "UPLOAD_NOT_FOUND",
	ErrCodeStagingFailed:             "STAGING_FAILED",
	ErrCodeSearchIndexFailed:         "SEARCH_INDEX_FAILED",
	ErrCodeNotificationPublishFailed: "NOTIFICATION_PUBLISH_FAILED",
	ErrCodeInternal:                  "INTERNAL_ERROR",
}

// GetRetryCount returns how many times the job may be retried for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSnapshotReadFailed:
		return 3
	case ErrCodeStagingFailed:
		return 2
	default:
		// Business errors and commit failures: no retry
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if stdErr.Field != "" {
		vars["errorField"] = stdErr.Field
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "PARSING"):
		return "VALIDATION"
	case strings.Contains(codeStr, "DUPLICATES"):
		return "DECISION"
	case strings.Contains(codeStr, "COMMIT") || strings.Contains(codeStr, "SNAPSHOT"):
		return "DATABASE"
	case strings.Contains(codeStr, "UPLOAD") || strings.Contains(codeStr, "STAGING"):
		return "STAGING"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
