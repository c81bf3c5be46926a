package getsessionhistory

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"erp-helpdesk-workers/internal/common/camunda"
	"erp-helpdesk-workers/internal/common/errors"
	"erp-helpdesk-workers/internal/common/logger"
	"erp-helpdesk-workers/internal/helpdesk/store"
	"erp-helpdesk-workers/internal/models"
)

const TaskType = "helpdesk-session-history"

// HistoryStore reads sessions and their turns.
type HistoryStore interface {
	GetSession(ctx context.Context, id string) (*models.ChatSession, error)
	SessionHistory(ctx context.Context, sessionID string, limit int) ([]models.ChatTurn, error)
}

type Handler struct {
	config       *Config
	store        HistoryStore
	jobs         camunda.JobSupport
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, s HistoryStore, jobs camunda.JobSupport, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        s,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return nil, errors.NewInvalidInputError("sessionId is required")
	}

	sess, err := h.store.GetSession(ctx, sessionID)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_session", err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = h.config.DefaultLimit
	}

	turns, err := h.store.SessionHistory(ctx, sessionID, limit)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("session_history", err)
	}
	if turns == nil {
		turns = []models.ChatTurn{}
	}

	h.logger.Debug("session history loaded", map[string]interface{}{
		"sessionId": sessionID,
		"turns":     len(turns),
	})
	return &Output{Session: sess, Turns: turns}, nil
}
