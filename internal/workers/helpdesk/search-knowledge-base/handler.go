package searchknowledgebase

import (
	"context"
	"math"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"erp-helpdesk-workers/internal/common/camunda"
	"erp-helpdesk-workers/internal/common/errors"
	"erp-helpdesk-workers/internal/common/logger"
	"erp-helpdesk-workers/internal/models"
)

const TaskType = "helpdesk-search-kb"

// Searcher ranks knowledge articles for a query.
type Searcher interface {
	Search(ctx context.Context, query string, lang models.Language, category string, limit int) ([]models.MatchResult, error)
}

// LanguageDetector resolves the language a query is answered in.
type LanguageDetector interface {
	Detect(text string, pref models.LanguagePreference) models.Language
}

type Handler struct {
	config       *Config
	searcher     Searcher
	detector     LanguageDetector
	jobs         camunda.JobSupport
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, searcher Searcher, detector LanguageDetector, jobs camunda.JobSupport, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		searcher:     searcher,
		detector:     detector,
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
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidInputError("query is required")
	}

	lang := h.detector.Detect(query, models.ParseLanguagePreference(input.Language))
	limit := h.limit(input.Limit)

	matches, err := h.searcher.Search(ctx, query, lang, strings.TrimSpace(input.Category), limit)
	if err != nil {
		return nil, errors.NewKBSearchFailedError(err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			ArticleID:       m.Article.ID,
			Title:           m.Article.Title,
			Category:        m.Article.Category,
			Question:        m.Article.Question,
			Answer:          m.Article.AnswerFor(lang),
			Language:        m.Article.Language,
			Score:           math.Round(m.Score*100) / 100,
			Confident:       m.Confident,
			MatchedKeywords: m.MatchedKeywords,
		})
	}

	h.logger.Info("knowledge base searched", map[string]interface{}{
		"language": lang,
		"category": input.Category,
		"results":  len(results),
	})

	return &Output{Results: results, Language: lang, Total: len(results)}, nil
}

func (h *Handler) limit(requested int) int {
	switch {
	case requested <= 0:
		return h.config.DefaultLimit
	case h.config.MaxLimit > 0 && requested > h.config.MaxLimit:
		return h.config.MaxLimit
	default:
		return requested
	}
}
