package parsecandidateupload

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"recruit-workers/internal/common/camunda"
	apperrors "recruit-workers/internal/common/errors"
	"recruit-workers/internal/common/logger"
	"recruit-workers/internal/common/metrics"
	"recruit-workers/internal/common/observability"
	"recruit-workers/internal/pipeline/intake"
	"recruit-workers/internal/staging"
)

const TaskType = "parse-candidate-upload"

// Handler parses an uploaded candidate file and stages the batch for the
// duplicate check.
type Handler struct {
	config *Config
	stage  *staging.Store
	logger logger.Logger
	obs    *observability.Observability
	errors *apperrors.ErrorHandler
}

func NewHandler(config *Config, stage *staging.Store, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		stage:  stage,
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

	h.logger.Info("Processing candidate upload", map[string]interface{}{
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

// Execute parses input.CSVContent and stages the accepted rows.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.UploadedBy) == "" {
		return nil, apperrors.NewValidationError("uploadedBy", "uploadedBy is required")
	}

	parsed, err := intake.ParseCSV(strings.NewReader(input.CSVContent))
	if err != nil {
		return nil, apperrors.NewValidationError("csvContent", fmt.Sprintf("unreadable upload file: %v", err))
	}
	if len(parsed.Records) == 0 {
		return nil, apperrors.NewValidationError("csvContent", "upload contains no candidate rows with a name and phone")
	}
	if len(parsed.Records) > h.config.MaxBatchSize {
		return nil, apperrors.NewValidationError("csvContent",
			fmt.Sprintf("upload has %d rows, limit is %d", len(parsed.Records), h.config.MaxBatchSize))
	}

	metrics.CandidatesParsed.WithLabelValues("accepted").Add(float64(len(parsed.Records)))
	metrics.CandidatesParsed.WithLabelValues("dropped").Add(float64(parsed.DroppedCount()))
	h.obs.RecordBatchSize(ctx, TaskType, len(parsed.Records))

	staged, err := h.stage.Put(ctx, staging.StagedUpload{
		UploadedBy: input.UploadedBy,
		FileName:   input.FileName,
		Records:    parsed.Records,
		Dropped:    parsed.Dropped,
	})
	if err != nil {
		return nil, apperrors.NewStagingFailedError("put", err)
	}

	h.logger.Info("Upload parsed", map[string]interface{}{
		"uploadId": staged.UploadID,
		"rows":     len(parsed.Records),
		"dropped":  parsed.DroppedCount(),
	})

	return &Output{
		UploadID:     staged.UploadID,
		RowCount:     len(parsed.Records),
		DroppedRows:  parsed.DroppedCount(),
		DroppedLines: parsed.Dropped,
	}, nil
}
