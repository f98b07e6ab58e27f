package resolveduplicates

import (
	"context"
	"errors"
	"fmt"
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
	"recruit-workers/internal/pipeline/resolution"
	"recruit-workers/internal/search"
	"recruit-workers/internal/staging"
	"recruit-workers/internal/store"
)

const TaskType = "resolve-duplicates"

// SearchMirror receives every committed plan. It is optional.
type SearchMirror interface {
	Mirror(ctx context.Context, plan models.ResolutionPlan) (search.MirrorResult, error)
}

// Handler applies the chosen resolution policy to a staged upload and
// commits the result in one transaction.
type Handler struct {
	config   *Config
	stage    *staging.Store
	store    store.Store
	mirror   SearchMirror
	detector *duplicates.Detector
	logger   logger.Logger
	obs      *observability.Observability
	errors   *apperrors.ErrorHandler
}

type HandlerOptions struct {
	Config *Config
	Stage  *staging.Store
	Store  store.Store
	Mirror SearchMirror
	Obs    *observability.Observability
	Logger logger.Logger
}

func NewHandler(opts HandlerOptions) *Handler {
	log := opts.Logger.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   opts.Config,
		stage:    opts.Stage,
		store:    opts.Store,
		mirror:   opts.Mirror,
		detector: duplicates.NewDetector(opts.Config.IdentityStrategy),
		logger:   log,
		obs:      opts.Obs,
		errors:   apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing duplicate resolution", map[string]interface{}{
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

// Execute re-detects duplicates on a fresh snapshot, builds the plan for the
// chosen policy and commits it. The staged upload is dropped once committed.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if !input.Policy.Valid() {
		return nil, apperrors.NewValidationError("resolutionPolicy",
			fmt.Sprintf("unknown resolution policy %q", input.Policy))
	}

	upload, err := h.stage.Get(ctx, input.UploadID)
	if errors.Is(err, staging.ErrNotFound) {
		return nil, apperrors.NewUploadNotFoundError(input.UploadID)
	}
	if err != nil {
		return nil, apperrors.NewStagingFailedError("get", err)
	}

	uploadedBy := upload.UploadedBy
	if input.UploadedBy != "" {
		uploadedBy = input.UploadedBy
	}

	snap, err := h.store.Snapshot(ctx)
	if err != nil {
		return nil, apperrors.NewSnapshotReadFailedError("candidates", err)
	}

	detected := h.detector.Detect(upload.Records, snap.ActiveCandidates, snap.History)
	plan, err := resolution.Resolve(upload.Records, input.Policy, detected.Matches(), resolution.Options{
		UploadedBy: uploadedBy,
		Strategy:   h.config.IdentityStrategy,
	})
	if err != nil {
		return nil, err
	}

	res, err := h.store.CommitResolutionPlan(ctx, plan)
	if err != nil {
		return nil, apperrors.NewCommitFailedError("resolution plan", err)
	}

	policy := string(input.Policy)
	metrics.CandidateWrites.WithLabelValues("insert", policy).Add(float64(res.Inserted))
	metrics.CandidateWrites.WithLabelValues("update", policy).Add(float64(res.Updated))
	metrics.CandidateWrites.WithLabelValues("replace", policy).Add(float64(res.Replaced))
	metrics.CandidateWrites.WithLabelValues("skip", policy).Add(float64(len(plan.Skipped)))
	h.obs.RecordBatchSize(ctx, TaskType, len(upload.Records))

	out := &Output{
		Inserted:        res.Inserted,
		Updated:         res.Updated,
		Replaced:        res.Replaced,
		Skipped:         len(plan.Skipped),
		HistoryAppended: res.HistoryAppended,
	}
	out.SearchMirrored = h.mirrorPlan(ctx, plan)

	if err := h.stage.Drop(ctx, input.UploadID); err != nil {
		h.logger.Warn("Failed to drop staged upload, it will expire", map[string]interface{}{
			"uploadId": input.UploadID,
			"error":    err,
		})
	}

	h.logger.Info("Upload committed", map[string]interface{}{
		"uploadId":        input.UploadID,
		"policy":          policy,
		"inserted":        out.Inserted,
		"updated":         out.Updated,
		"replaced":        out.Replaced,
		"skipped":         out.Skipped,
		"historyAppended": out.HistoryAppended,
	})
	return out, nil
}

// mirrorPlan updates the search index. Failures are logged; the database
// commit already happened.
func (h *Handler) mirrorPlan(ctx context.Context, plan models.ResolutionPlan) bool {
	if h.mirror == nil {
		return false
	}
	res, err := h.mirror.Mirror(ctx, plan)
	if err != nil {
		stdErr := apperrors.NewSearchIndexFailedError(err)
		h.logger.Warn("Search mirror update failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"error":     err,
		})
		return false
	}
	return res.Failed == 0
}
