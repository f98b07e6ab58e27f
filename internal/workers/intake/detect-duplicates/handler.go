package detectduplicates

import (
	"context"
	"errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"recruit-workers/internal/common/camunda"
	apperrors "recruit-workers/internal/common/errors"
	"recruit-workers/internal/common/logger"
	"recruit-workers/internal/common/metrics"
	"recruit-workers/internal/common/observability"
	"recruit-workers/internal/models"
	"recruit-workers/internal/pipeline/duplicates"
	"recruit-workers/internal/staging"
	"recruit-workers/internal/store"
)

const TaskType = "detect-duplicates"

// Handler checks a staged upload against the active candidates and the
// history archive. Finding duplicates is a normal outcome, not a failure.
type Handler struct {
	config   *Config
	stage    *staging.Store
	store    store.Store
	detector *duplicates.Detector
	logger   logger.Logger
	obs      *observability.Observability
	errors   *apperrors.ErrorHandler
}

func NewHandler(config *Config, stage *staging.Store, st store.Store, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		stage:    stage,
		store:    st,
		detector: duplicates.NewDetector(config.IdentityStrategy),
		logger:   log,
		obs:      obs,
		errors:   apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing duplicate check", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	var input Input
	err := camunda.ParseVariables(job, GetInputSchema(), &input)
	var output *Output
	if err == nil {
		output, err = h.Execute(ctx, &input)
	}
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
		h.obs.RecordJob(ctx, TaskType, observability.StatusFailed, time.Since(start))
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output, h.logger); err != nil {
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJob(ctx, TaskType, observability.StatusCompleted, time.Since(start))
}

// Execute loads the staged batch, reads a fresh snapshot and partitions the
// batch into new and duplicate rows.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	upload, err := loadUpload(ctx, h.stage, input.UploadID)
	if err != nil {
		return nil, err
	}

	snap, err := h.store.Snapshot(ctx)
	if err != nil {
		return nil, apperrors.NewSnapshotReadFailedError("candidates", err)
	}

	res := h.detector.Detect(upload.Records, snap.ActiveCandidates, snap.History)
	h.obs.RecordBatchSize(ctx, TaskType, len(upload.Records))
	metrics.DuplicatesDetected.WithLabelValues(string(models.SourceActive)).Add(float64(len(res.DuplicatesInActive)))
	metrics.DuplicatesDetected.WithLabelValues(string(models.SourceHistory)).Add(float64(len(res.DuplicatesInHistory)))

	out := &Output{
		DuplicatesFound:     res.DuplicatesFound(),
		NewCount:            len(res.NewRecords),
		DuplicatesInActive:  len(res.DuplicatesInActive),
		DuplicatesInHistory: len(res.DuplicatesInHistory),
		Duplicates:          summarize(res.Matches()),
	}
	if !out.DuplicatesFound {
		out.ResolutionPolicy = models.PolicySkip
	}

	h.logger.Info("Duplicate check finished", map[string]interface{}{
		"uploadId":   input.UploadID,
		"new":        out.NewCount,
		"inActive":   out.DuplicatesInActive,
		"inHistory":  out.DuplicatesInHistory,
		"duplicates": out.DuplicatesFound,
	})
	return out, nil
}

func loadUpload(ctx context.Context, stage *staging.Store, uploadID string) (staging.StagedUpload, error) {
	upload, err := stage.Get(ctx, uploadID)
	if errors.Is(err, staging.ErrNotFound) {
		return upload, apperrors.NewUploadNotFoundError(uploadID)
	}
	if err != nil {
		return upload, apperrors.NewStagingFailedError("get", err)
	}
	return upload, nil
}

func summarize(matches []models.DuplicateMatch) []Duplicate {
	out := make([]Duplicate, 0, len(matches))
	for _, m := range matches {
		d := Duplicate{
			Name:   m.Incoming.Name,
			Phone:  m.Incoming.Phone,
			Source: m.Source,
		}
		if m.Active != nil {
			d.ExistingName = m.Active.Name
			d.ExistingID = m.Active.ID
		} else if len(m.History) > 0 {
			last := m.History[len(m.History)-1]
			d.ExistingName = last.Name
			d.ExistingID = last.CandidateID
		}
		out = append(out, d)
	}
	return out
}
