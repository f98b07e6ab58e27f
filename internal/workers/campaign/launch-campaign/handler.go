package launchcampaign

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"recruit-workers/internal/common/camunda"
	apperrors "recruit-workers/internal/common/errors"
	"recruit-workers/internal/common/logger"
	"recruit-workers/internal/common/metrics"
	"recruit-workers/internal/common/observability"
	"recruit-workers/internal/notify"
	"recruit-workers/internal/pipeline/campaign"
	"recruit-workers/internal/store"
)

const TaskType = "launch-campaign"

// EventPublisher announces committed campaigns. It is optional.
type EventPublisher interface {
	PublishCampaignLaunched(ctx context.Context, event notify.CampaignLaunched) (string, error)
}

// Handler plans a campaign on a fresh snapshot and commits its assignments
// in one transaction.
type Handler struct {
	config    *Config
	store     store.Store
	publisher EventPublisher
	logger    logger.Logger
	obs       *observability.Observability
	errors    *apperrors.ErrorHandler
	now       func() time.Time
	newID     func() string
}

func NewHandler(config *Config, st store.Store, publisher EventPublisher, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		store:     st,
		publisher: publisher,
		logger:    log,
		obs:       obs,
		errors:    apperrors.NewErrorHandler(log),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing campaign launch", map[string]interface{}{
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	snap, err := h.store.Snapshot(ctx)
	if err != nil {
		return nil, apperrors.NewSnapshotReadFailedError("campaign pool", err)
	}

	planned, err := campaign.PlanWithDefaults(snap, input.Spec(), h.config.DefaultPriority)
	if err != nil {
		return nil, err
	}
	spec, alloc := planned.Spec, planned.Allocation

	if len(alloc.Assignments) > 0 {
		if _, err := h.store.CommitAssignments(ctx, alloc.Assignments); err != nil {
			return nil, apperrors.NewCommitFailedError("assignments", err)
		}
	}

	mode := string(spec.Mode)
	metrics.AssignmentsCreated.WithLabelValues(mode, spec.Priority).Add(float64(len(alloc.Assignments)))
	metrics.CandidatesUnassigned.WithLabelValues(mode).Add(float64(alloc.UnassignedCount))
	h.obs.RecordBatchSize(ctx, TaskType, planned.EligibleCount)

	out := &Output{
		CampaignID:      h.newID(),
		Priority:        spec.Priority,
		EligibleCount:   planned.EligibleCount,
		AssignedCount:   len(alloc.Assignments),
		UnassignedCount: alloc.UnassignedCount,
		PerEmployee:     alloc.PerEmployee,
	}
	out.EventPublished = h.publish(ctx, input, spec, out)

	h.logger.Info("Campaign launched", map[string]interface{}{
		"campaignId":      out.CampaignID,
		"campaignName":    spec.Name,
		"mode":            mode,
		"priority":        spec.Priority,
		"assignedCount":   out.AssignedCount,
		"unassignedCount": out.UnassignedCount,
	})
	return out, nil
}

// publish reports the committed campaign. A failure is logged only.
func (h *Handler) publish(ctx context.Context, input *Input, spec campaign.Spec, out *Output) bool {
	if h.publisher == nil {
		return false
	}
	_, err := h.publisher.PublishCampaignLaunched(ctx, notify.CampaignLaunched{
		CampaignID:      out.CampaignID,
		CampaignName:    spec.Name,
		Priority:        spec.Priority,
		Mode:            string(spec.Mode),
		LaunchedBy:      input.LaunchedBy,
		AssignedCount:   out.AssignedCount,
		UnassignedCount: out.UnassignedCount,
		PerEmployee:     out.PerEmployee,
		LaunchedAt:      h.now(),
	})
	if err != nil {
		stdErr := apperrors.NewNotificationPublishFailedError(notify.EventCampaignLaunched, err)
		h.logger.Warn("Campaign event not published", map[string]interface{}{
			"errorCode":  string(stdErr.Code),
			"campaignId": out.CampaignID,
			"error":      err,
		})
		return false
	}
	return true
}
