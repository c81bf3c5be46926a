package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"erp-helpdesk-workers/internal/common/errors"
	"erp-helpdesk-workers/internal/common/logger"
	"erp-helpdesk-workers/internal/common/metrics"
	"erp-helpdesk-workers/internal/common/validation"
)

// Validator checks job variables against a task type's input schema.
type Validator interface {
	Validate(taskType string, variables map[string]interface{}) *validation.ValidationResult
}

// Recorder receives per-job OpenTelemetry measurements.
type Recorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

// JobSupport bundles the optional collaborators every handler shares.
type JobSupport struct {
	Validator Validator
	Recorder  Recorder
}

// DecodeVariables validates the job's variables for taskType and unmarshals them into out.
func DecodeVariables(job entities.Job, taskType string, v Validator, out interface{}) error {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("parse job variables: %v", err))
	}
	if v != nil {
		if result := v.Validate(taskType, variables); !result.Valid {
			return errors.NewInvalidInputError(strings.Join(result.GetErrorMessages(), "; "))
		}
	}
	if err := json.Unmarshal([]byte(job.GetVariables()), out); err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("decode job variables: %v", err))
	}
	return nil
}

// CompleteJob completes job with output as its variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}, log logger.Logger) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return err
	}
	if _, err := cmd.Send(ctx); err != nil {
		log.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return err
	}
	return nil
}

// JobRun tracks one job for the worker metrics.
type JobRun struct {
	taskType string
	recorder Recorder
	start    time.Time
	done     bool
}

func StartJob(taskType string, recorder Recorder) *JobRun {
	metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
	return &JobRun{taskType: taskType, recorder: recorder, start: time.Now()}
}

func (r *JobRun) Complete(ctx context.Context) {
	if r.finish(ctx, "completed") {
		metrics.WorkerJobsCompleted.WithLabelValues(r.taskType).Inc()
	}
}

func (r *JobRun) Fail(ctx context.Context, err error) {
	if r.finish(ctx, "failed") {
		code := errors.Normalize(err).Code
		metrics.WorkerJobsFailed.WithLabelValues(r.taskType, string(code)).Inc()
	}
}

func (r *JobRun) finish(ctx context.Context, status string) bool {
	if r.done {
		return false
	}
	r.done = true
	elapsed := time.Since(r.start)
	metrics.WorkerJobsActive.WithLabelValues(r.taskType).Dec()
	metrics.WorkerJobDuration.WithLabelValues(r.taskType).Observe(elapsed.Seconds())
	if r.recorder != nil {
		r.recorder.RecordJobProcessed(ctx, r.taskType, status)
		r.recorder.RecordJobDuration(ctx, r.taskType, elapsed, status)
	}
	return true
}
