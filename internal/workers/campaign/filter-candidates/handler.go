package filtercandidates

import (
	"context"
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
	"recruit-workers/internal/pipeline/filter"
	"recruit-workers/internal/store"
)

const TaskType = "filter-candidates"

type Handler struct {
	config *Config
	store  store.Store
	logger logger.Logger
	obs    *observability.Observability
	errors *apperrors.ErrorHandler
}

func NewHandler(config *Config, st store.Store, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  st,
		logger: log,
		obs:    obs,
		errors: apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Debug("Processing candidate filter", map[string]interface{}{
		"jobKey": job.GetKey(),
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := models.Validate(input.Criteria); err != nil {
		field := "criteria"
		if fe, ok := err.(*models.FieldError); ok {
			field = "criteria." + fe.Field
		}
		return nil, apperrors.NewValidationError(field, err.Error())
	}
	if input.Limit < 0 {
		return nil, apperrors.NewValidationError("limit", fmt.Sprintf("limit must not be negative, got %d", input.Limit))
	}

	snap, err := h.store.Snapshot(ctx)
	if err != nil {
		return nil, apperrors.NewSnapshotReadFailedError("candidates", err)
	}

	pool := snap.ActiveCandidates
	if input.OnlyUnassigned {
		pool = filter.ExcludeAssigned(pool, snap.Assignments)
	}
	matched := filter.Filter(pool, input.Criteria)

	limit := input.Limit
	if limit == 0 || limit > h.config.MaxResults {
		limit = h.config.MaxResults
	}

	out := &Output{
		MatchCount:   len(matched),
		CandidateIDs: make([]string, 0, min(limit, len(matched))),
	}
	for _, c := range matched {
		if len(out.CandidateIDs) == limit {
			out.Truncated = true
			break
		}
		out.CandidateIDs = append(out.CandidateIDs, c.ID)
	}

	h.obs.RecordBatchSize(ctx, TaskType, len(matched))
	h.logger.Info("Candidates filtered", map[string]interface{}{
		"poolSize":   len(pool),
		"matchCount": out.MatchCount,
		"returned":   len(out.CandidateIDs),
	})
	return out, nil
}
