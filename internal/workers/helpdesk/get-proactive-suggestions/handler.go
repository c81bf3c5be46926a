package getproactivesuggestions

import (
	"context"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"erp-helpdesk-workers/internal/common/camunda"
	"erp-helpdesk-workers/internal/common/errors"
	"erp-helpdesk-workers/internal/common/logger"
	"erp-helpdesk-workers/internal/helpdesk/rules"
	"erp-helpdesk-workers/internal/models"
)

const TaskType = "helpdesk-proactive-suggest"

// RuleEvaluator runs the proactive rules for a page context.
type RuleEvaluator interface {
	Evaluate(ctx context.Context, req rules.Request) (*rules.Result, error)
}

type Handler struct {
	config       *Config
	engine       RuleEvaluator
	jobs         camunda.JobSupport
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, engine RuleEvaluator, jobs camunda.JobSupport, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		engine:       engine,
		jobs:         jobs,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	run := camunda.StartJob(TaskType, h.jobs.Recorder)

	var input Input
	if err := camunda.DecodeVariables(job, TaskType, h.jobs.Validator, &input); err != nil {
		run.Fail(ctx, err)
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		run.Fail(ctx, err)
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output, h.logger); err != nil {
		run.Fail(ctx, err)
		return
	}
	run.Complete(ctx)
}

// Execute evaluates the rules. Individual rule failures are part of the output; only a
// failure to load the rule set fails the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	req := rules.Request{
		Doctype:  strings.TrimSpace(input.Doctype),
		Docname:  strings.TrimSpace(input.Docname),
		Language: models.ParseLanguagePreference(input.Language).Language(),
	}

	result, err := h.engine.Evaluate(ctx, req)
	if err != nil {
		return nil, errors.NewRuleEvaluationFailedError(err)
	}

	h.logger.Info("proactive rules evaluated", map[string]interface{}{
		"doctype":     req.Doctype,
		"suggestions": len(result.Suggestions),
		"failedRules": len(result.Failures),
		"warnings":    len(result.Warnings),
	})

	out := &Output{Suggestions: result.Suggestions, FailedRules: result.Failures, Warnings: result.Warnings}
	if out.Suggestions == nil {
		out.Suggestions = []models.Suggestion{}
	}
	if out.FailedRules == nil {
		out.FailedRules = []models.RuleFailure{}
	}
	if out.Warnings == nil {
		out.Warnings = []models.RuleFailure{}
	}
	return out, nil
}
