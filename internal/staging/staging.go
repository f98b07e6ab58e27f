// Package staging holds parsed upload batches between the parse and resolve
// steps of the intake process. Only the batch is staged; duplicate detection
// always runs again on a fresh snapshot.
package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"recruit-workers/internal/common/logger"
	"recruit-workers/internal/models"
	"recruit-workers/internal/pipeline/intake"
)

const keyPrefix = "recruit:upload:"

// ErrNotFound is returned when the upload id is unknown or has expired.
var ErrNotFound = errors.New("staged upload not found")

// StagedUpload is a parsed batch waiting for a resolution decision.
type StagedUpload struct {
	UploadID   string                   `json:"uploadId"`
	UploadedBy string                   `json:"uploadedBy"`
	FileName   string                   `json:"fileName,omitempty"`
	Records    []models.CandidateRecord `json:"records"`
	Dropped    []intake.DroppedRow      `json:"dropped,omitempty"`
	StagedAt   time.Time                `json:"stagedAt"`
}

// Store keeps staged uploads in Redis under a TTL.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
	logger logger.Logger

	now   func() time.Time
	newID func() string
}

func NewStore(client redis.Cmdable, ttl time.Duration, log logger.Logger) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

func key(uploadID string) string {
	return keyPrefix + uploadID
}

// Put stages upload, assigning an id and timestamp when missing.
func (s *Store) Put(ctx context.Context, upload StagedUpload) (StagedUpload, error) {
	if upload.UploadID == "" {
		upload.UploadID = s.newID()
	}
	if upload.StagedAt.IsZero() {
		upload.StagedAt = s.now()
	}
	if upload.Records == nil {
		upload.Records = []models.CandidateRecord{}
	}

	data, err := json.Marshal(upload)
	if err != nil {
		return StagedUpload{}, fmt.Errorf("failed to marshal staged upload: %w", err)
	}
	if err := s.client.Set(ctx, key(upload.UploadID), data, s.ttl).Err(); err != nil {
		return StagedUpload{}, fmt.Errorf("failed to stage upload %s: %w", upload.UploadID, err)
	}

	s.logger.Info("Upload staged", map[string]interface{}{
		"uploadId": upload.UploadID,
		"records":  len(upload.Records),
		"dropped":  len(upload.Dropped),
		"ttl":      s.ttl.String(),
	})
	return upload, nil
}

// Get loads a staged upload.
func (s *Store) Get(ctx context.Context, uploadID string) (StagedUpload, error) {
	data, err := s.client.Get(ctx, key(uploadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return StagedUpload{}, fmt.Errorf("upload %s: %w", uploadID, ErrNotFound)
	}
	if err != nil {
		return StagedUpload{}, fmt.Errorf("failed to load staged upload %s: %w", uploadID, err)
	}

	var upload StagedUpload
	if err := json.Unmarshal(data, &upload); err != nil {
		return StagedUpload{}, fmt.Errorf("corrupt staged upload %s: %w", uploadID, err)
	}
	return upload, nil
}

// Drop removes a staged upload once it has been committed. A missing key is
// not an error.
func (s *Store) Drop(ctx context.Context, uploadID string) error {
	if err := s.client.Del(ctx, key(uploadID)).Err(); err != nil {
		return fmt.Errorf("failed to drop staged upload %s: %w", uploadID, err)
	}
	return nil
}
