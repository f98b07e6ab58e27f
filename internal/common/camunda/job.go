// internal/common/camunda/job.go
package camunda

import (
	"context"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "recruit-workers/internal/common/errors"
	"recruit-workers/internal/common/logger"
	"recruit-workers/internal/common/validation"
)

// ParseVariables validates the job variables against schema and decodes them
// into out. Failures are returned as StandardErrors.
func ParseVariables(job entities.Job, schema validation.JSONSchema, out interface{}) error {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return apperrors.NewInputParsingError(err)
	}

	result := validation.ValidateInput(variables, schema)
	if !result.Valid {
		return apperrors.NewValidationError(result.FirstField(),
			"input validation failed: "+strings.Join(result.GetErrorMessages(), "; "))
	}

	if err := job.GetVariablesAs(out); err != nil {
		return apperrors.NewInputParsingError(err)
	}
	return nil
}

// CompleteJob sends output as the job's result variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}, log logger.Logger) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		log.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err,
		})
		return fmt.Errorf("build complete command: %w", err)
	}

	if _, err := cmd.Send(ctx); err != nil {
		log.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err,
		})
		return fmt.Errorf("send complete command: %w", err)
	}
	return nil
}
