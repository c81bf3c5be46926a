package submitfeedback

import (
	"context"
	stderrors "errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"erp-helpdesk-workers/internal/common/camunda"
	"erp-helpdesk-workers/internal/common/errors"
	"erp-helpdesk-workers/internal/common/logger"
	"erp-helpdesk-workers/internal/helpdesk/feedback"
	"erp-helpdesk-workers/internal/models"
)

const TaskType = "helpdesk-submit-feedback"

const thanksMessage = "Thank you for your feedback!"

// Recorder appends feedback for an answered turn.
type Recorder interface {
	Record(ctx context.Context, fb models.Feedback) (*models.Feedback, error)
}

type Handler struct {
	config       *Config
	recorder     Recorder
	jobs         camunda.JobSupport
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, recorder Recorder, jobs camunda.JobSupport, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		recorder:     recorder,
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

// Execute records the feedback. Unknown turns and unsupported ratings are business errors
// and are never retried.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	fb, err := h.recorder.Record(ctx, models.Feedback{
		TurnID:       input.MessageID,
		Rating:       models.Rating(input.Rating),
		FeedbackText: input.FeedbackText,
		Correction:   input.Correction,
	})
	if err != nil {
		return nil, classify(input, err)
	}

	return &Output{
		Success:    true,
		Message:    thanksMessage,
		FeedbackID: fb.ID,
	}, nil
}

func classify(input *Input, err error) error {
	switch {
	case stderrors.Is(err, feedback.ErrTurnNotFound):
		return errors.NewTurnNotFoundError(input.MessageID)
	case stderrors.Is(err, feedback.ErrInvalidRating):
		return errors.NewInvalidRatingError(input.Rating)
	case stderrors.Is(err, feedback.ErrMissingTurnID):
		return errors.NewInvalidInputError("messageId is required")
	default:
		return errors.NewDatabaseInsertFailedError(err)
	}
}
