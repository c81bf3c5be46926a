package resolvequery

import (
	"context"
	"errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"erp-helpdesk-workers/internal/common/camunda"
	"erp-helpdesk-workers/internal/common/logger"
	"erp-helpdesk-workers/internal/helpdesk/composer"
	"erp-helpdesk-workers/internal/models"
)

const (
	TaskType = "helpdesk-resolve-query"

	genericFailure = "Sorry, I could not process your request. Please try again."
)

var ErrMissingMessage = errors.New("MISSING_MESSAGE")

// Resolver composes an answer for one utterance.
type Resolver interface {
	Resolve(ctx context.Context, req composer.Request) *composer.Response
}

type Handler struct {
	config   *Config
	resolver Resolver
	jobs     camunda.JobSupport
	logger   logger.Logger
}

func NewHandler(config *Config, resolver Resolver, jobs camunda.JobSupport, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		resolver: resolver,
		jobs:     jobs,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Handle always completes the job: structural errors are reported in the output with a
// generic message so the chat UI can render them.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	run := camunda.StartJob(TaskType, h.jobs.Recorder)
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"workflowKey": job.GetProcessInstanceKey(),
	})

	var input Input
	if err := camunda.DecodeVariables(job, TaskType, h.jobs.Validator, &input); err != nil {
		h.reject(ctx, client, job, run, err)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.reject(ctx, client, job, run, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output, h.logger); err != nil {
		run.Fail(ctx, err)
		return
	}
	run.Complete(ctx)
}

func (h *Handler) reject(ctx context.Context, client worker.JobClient, job entities.Job, run *camunda.JobRun, err error) {
	h.logger.Warn("rejecting malformed query", map[string]interface{}{
		"jobKey": job.GetKey(),
		"error":  err.Error(),
	})
	run.Fail(ctx, err)
	_ = camunda.CompleteJob(ctx, client, job, failureOutput(), h.logger)
}

func failureOutput() *Output {
	return &Output{
		Success:     false,
		Answer:      genericFailure,
		Error:       genericFailure,
		Suggestions: []composer.Suggestion{},
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Message == nil {
		return nil, ErrMissingMessage
	}

	resp := h.resolver.Resolve(ctx, composer.Request{
		SessionID:      input.SessionID,
		Message:        *input.Message,
		Language:       models.ParseLanguagePreference(input.Language),
		ContextDoctype: input.ContextDoctype,
		ContextDocname: input.ContextDocname,
	})

	h.logger.Info("query resolved", map[string]interface{}{
		"sessionId":  resp.SessionID,
		"source":     resp.Source,
		"confidence": resp.Confidence,
		"intent":     resp.Intent,
		"language":   resp.Language,
	})

	return &Output{
		Success:     resp.Success,
		SessionID:   resp.SessionID,
		MessageID:   resp.MessageID,
		Answer:      resp.Answer,
		Source:      resp.Source,
		Confidence:  resp.Confidence,
		Language:    resp.Language,
		Intent:      resp.Intent,
		Suggestions: resp.Suggestions,
		ArticleID:   resp.ArticleID,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
