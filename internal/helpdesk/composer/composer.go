// Package composer turns one user utterance into an answer: it detects the language and
// intent, searches the knowledge base, consults proactive rules for the page context and
// falls back to a generative model or a canned reply.
package composer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"erp-helpdesk-workers/internal/common/logger"
	"erp-helpdesk-workers/internal/common/metrics"
	"erp-helpdesk-workers/internal/helpdesk/fallback"
	"erp-helpdesk-workers/internal/helpdesk/intent"
	"erp-helpdesk-workers/internal/helpdesk/language"
	"erp-helpdesk-workers/internal/helpdesk/rules"
	"erp-helpdesk-workers/internal/models"
)

const groundingArticles = 3

// Searcher ranks knowledge articles for a query.
type Searcher interface {
	Search(ctx context.Context, query string, lang models.Language, category string, limit int) ([]models.MatchResult, error)
}

// SuggestionSource evaluates proactive rules for a page context.
type SuggestionSource interface {
	Evaluate(ctx context.Context, req rules.Request) (*rules.Result, error)
}

// Generator produces free-text answers.
type Generator interface {
	Generate(ctx context.Context, prompt fallback.Prompt, maxTokens int, temperature float64) (string, error)
	Confidence() float64
	// Available reports whether the model can be called now.
	Available() bool
}

// ConversationStore persists sessions and turns.
type ConversationStore interface {
	GetSession(ctx context.Context, id string) (*models.ChatSession, error)
	SaveSession(ctx context.Context, sess *models.ChatSession) error
	InsertTurn(ctx context.Context, turn *models.ChatTurn) error
	IncrementArticleUsage(ctx context.Context, articleID int64) error
}

type Config struct {
	MinConfidence    float64
	PartialThreshold float64
	EnableFallback   bool
	DegradeFactor    float64
	RuleConfidence   float64
	MaxSuggestions   int
	SessionTimeout   time.Duration
	MaxTokens        int
	Temperature      float64
}

func DefaultConfig() Config {
	return Config{
		MinConfidence:    45,
		PartialThreshold: 20,
		EnableFallback:   true,
		DegradeFactor:    0.75,
		RuleConfidence:   70,
		MaxSuggestions:   3,
		SessionTimeout:   30 * time.Minute,
	}
}

// Request is one utterance from the chat widget.
type Request struct {
	SessionID      string
	Message        string
	Language       models.LanguagePreference
	ContextDoctype string
	ContextDocname string
}

// Suggestion is a follow-up shown under the answer.
type Suggestion struct {
	Kind      string             `json:"kind"`
	Text      string             `json:"text"`
	ArticleID *int64             `json:"articleId,omitempty"`
	Priority  models.Priority    `json:"priority,omitempty"`
	Link      *models.RecordLink `json:"link,omitempty"`
}

const (
	SuggestionArticle   = "article"
	SuggestionProactive = "proactive"
)

// Response is the composed answer. It is always well formed.
type Response struct {
	Success     bool            `json:"success"`
	SessionID   string          `json:"sessionId"`
	MessageID   string          `json:"messageId"`
	Answer      string          `json:"answer"`
	Source      models.Source   `json:"source"`
	Confidence  float64         `json:"confidence"`
	Language    models.Language `json:"language"`
	Intent      models.Intent   `json:"intent"`
	Suggestions []Suggestion    `json:"suggestions"`
	ArticleID   *int64          `json:"articleId,omitempty"`
}

type Composer struct {
	config     Config
	detector   *language.Detector
	classifier *intent.Classifier
	searcher   Searcher
	rules      SuggestionSource
	generator  Generator
	store      ConversationStore
	tracer     trace.Tracer
	logger     logger.Logger
	now        func() time.Time
}

type Option func(*Composer)

func WithRuleEngine(src SuggestionSource) Option {
	return func(c *Composer) { c.rules = src }
}

func WithGenerator(g Generator) Option {
	return func(c *Composer) { c.generator = g }
}

func WithStore(s ConversationStore) Option {
	return func(c *Composer) { c.store = s }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Composer) { c.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(c *Composer) { c.now = now }
}

func NewComposer(config Config, detector *language.Detector, classifier *intent.Classifier, searcher Searcher, log logger.Logger, opts ...Option) *Composer {
	if config.MaxSuggestions <= 0 {
		config.MaxSuggestions = 3
	}
	if config.DegradeFactor <= 0 || config.DegradeFactor > 1 {
		config.DegradeFactor = 0.75
	}
	c := &Composer{
		config:     config,
		detector:   detector,
		classifier: classifier,
		searcher:   searcher,
		tracer:     otel.Tracer("erp-helpdesk-workers/composer"),
		logger:     log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// decision is what the pipeline settled on before suggestions and persistence.
type decision struct {
	answer     string
	source     models.Source
	confidence float64
	article    *models.KnowledgeArticle
	usedRule   bool
}

// Resolve answers req. It never fails: collaborator errors degrade to the default path.
func (c *Composer) Resolve(ctx context.Context, req Request) *Response {
	ctx, span := c.tracer.Start(ctx, "helpdesk.resolve")
	defer span.End()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		lang := answerLanguage(req.Language.Language())
		resp := &Response{
			Success:     true,
			SessionID:   req.SessionID,
			Answer:      ClarificationPrompt(lang),
			Source:      models.SourceDefault,
			Language:    lang,
			Intent:      models.IntentUnknown,
			Suggestions: []Suggestion{},
		}
		c.observe(resp)
		return resp
	}

	lang := c.detectLanguage(ctx, message, req.Language)
	replyLang := answerLanguage(lang)
	detected := c.classifyIntent(ctx, message, lang)

	matches := c.searchKnowledgeBase(ctx, message, lang)
	proactive := c.proactiveSuggestions(ctx, req, replyLang)

	d := c.decide(ctx, message, replyLang, detected, req.ContextDoctype, matches, proactive)

	resp := &Response{
		Success:     true,
		MessageID:   uuid.NewString(),
		Answer:      d.answer,
		Source:      d.source,
		Confidence:  d.confidence,
		Language:    lang,
		Intent:      detected,
		Suggestions: c.suggestions(d, matches, proactive),
	}
	if d.article != nil {
		id := d.article.ID
		resp.ArticleID = &id
	}

	resp.SessionID = c.persist(ctx, req, message, resp, d)

	span.SetAttributes(
		attribute.String("helpdesk.source", string(resp.Source)),
		attribute.String("helpdesk.language", string(resp.Language)),
		attribute.String("helpdesk.intent", string(resp.Intent)),
		attribute.Float64("helpdesk.confidence", resp.Confidence),
	)
	c.observe(resp)
	return resp
}

func answerLanguage(lang models.Language) models.Language {
	if lang == models.LanguageUrdu {
		return models.LanguageUrdu
	}
	return models.LanguageEnglish
}

func (c *Composer) detectLanguage(ctx context.Context, message string, pref models.LanguagePreference) models.Language {
	_, span := c.tracer.Start(ctx, "helpdesk.detect_language")
	defer span.End()
	lang := c.detector.Detect(message, pref)
	span.SetAttributes(attribute.String("helpdesk.language", string(lang)))
	return lang
}

func (c *Composer) classifyIntent(ctx context.Context, message string, lang models.Language) models.Intent {
	_, span := c.tracer.Start(ctx, "helpdesk.classify_intent")
	defer span.End()
	detected := c.classifier.Classify(message, lang)
	span.SetAttributes(attribute.String("helpdesk.intent", string(detected)))
	return detected
}

func (c *Composer) searchKnowledgeBase(ctx context.Context, message string, lang models.Language) []models.MatchResult {
	ctx, span := c.tracer.Start(ctx, "helpdesk.search_kb")
	defer span.End()

	limit := c.config.MaxSuggestions + 1
	if limit < groundingArticles {
		limit = groundingArticles
	}
	matches, err := c.searcher.Search(ctx, message, lang, "", limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "knowledge base search failed")
		c.logger.Warn("knowledge base search failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	span.SetAttributes(attribute.Int("helpdesk.matches", len(matches)))
	return matches
}

func (c *Composer) proactiveSuggestions(ctx context.Context, req Request, lang models.Language) []models.Suggestion {
	if c.rules == nil || req.ContextDoctype == "" {
		return nil
	}
	ctx, span := c.tracer.Start(ctx, "helpdesk.proactive_rules")
	defer span.End()

	result, err := c.rules.Evaluate(ctx, rules.Request{
		Doctype:  req.ContextDoctype,
		Docname:  req.ContextDocname,
		Language: lang,
	})
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("proactive rule evaluation failed", map[string]interface{}{
			"doctype": req.ContextDoctype,
			"error":   err.Error(),
		})
		return nil
	}
	span.SetAttributes(
		attribute.Int("helpdesk.suggestions", len(result.Suggestions)),
		attribute.Int("helpdesk.failed_rules", len(result.Failures)),
	)
	return result.Suggestions
}

func (c *Composer) decide(ctx context.Context, message string, lang models.Language, detected models.Intent, doctype string,
	matches []models.MatchResult, proactive []models.Suggestion) decision {

	var top *models.MatchResult
	if len(matches) > 0 {
		top = &matches[0]
	}

	if top != nil && top.Score >= c.config.MinConfidence {
		article := top.Article
		return decision{
			answer:     article.AnswerFor(lang),
			source:     models.SourceKnowledgeBase,
			confidence: top.Score,
			article:    &article,
		}
	}

	if detected == models.IntentStatusQuery && len(proactive) > 0 {
		return decision{
			answer:     proactive[0].Message,
			source:     models.SourceRule,
			confidence: c.config.RuleConfidence,
			usedRule:   true,
		}
	}

	partial := top != nil && top.Score >= c.config.PartialThreshold

	if c.fallbackAvailable() {
		var grounding []models.MatchResult
		if partial {
			grounding = matches
		}
		if text, ok := c.generate(ctx, message, lang, grounding); ok {
			return decision{
				answer:     text,
				source:     models.SourceGenerativeFallback,
				confidence: c.generator.Confidence(),
			}
		}
	}

	if partial {
		article := top.Article
		return decision{
			answer:     article.AnswerFor(lang),
			source:     models.SourceKnowledgeBase,
			confidence: roundScore(top.Score * c.config.DegradeFactor),
			article:    &article,
		}
	}

	return decision{
		answer: DefaultAnswer(doctype, detected, lang),
		source: models.SourceDefault,
	}
}

func (c *Composer) fallbackAvailable() bool {
	if !c.config.EnableFallback || c.generator == nil {
		return false
	}
	if !c.generator.Available() {
		metrics.FallbackRequests.WithLabelValues("unavailable").Inc()
		return false
	}
	return true
}

func (c *Composer) generate(ctx context.Context, message string, lang models.Language, grounding []models.MatchResult) (string, bool) {
	ctx, span := c.tracer.Start(ctx, "helpdesk.generative_fallback")
	defer span.End()

	prompt := fallback.BuildPrompt(message, lang, grounding)
	text, err := c.generator.Generate(ctx, prompt, c.config.MaxTokens, c.config.Temperature)
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, fallback.ErrFallbackTimeout):
		outcome = "timeout"
	case errors.Is(err, fallback.ErrFallbackUnavailable):
		outcome = "unavailable"
	default:
		outcome = "error"
	}
	metrics.FallbackRequests.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("helpdesk.fallback_outcome", outcome))

	if err != nil {
		if outcome != "unavailable" {
			span.RecordError(err)
			c.logger.Warn("generative fallback failed, degrading", map[string]interface{}{
				"outcome": outcome,
				"error":   err.Error(),
			})
		}
		return "", false
	}
	return text, true
}

func (c *Composer) suggestions(d decision, matches []models.MatchResult, proactive []models.Suggestion) []Suggestion {
	out := []Suggestion{}
	limit := c.config.MaxSuggestions

	if len(proactive) > 0 {
		start := 0
		if d.usedRule {
			start = 1
		}
		for _, s := range proactive[start:] {
			if len(out) == limit {
				break
			}
			out = append(out, Suggestion{
				Kind:     SuggestionProactive,
				Text:     s.Message,
				Priority: s.Priority,
				Link:     s.Link,
			})
		}
		if len(out) > 0 {
			return out
		}
	}

	for _, m := range matches {
		if len(out) == limit {
			break
		}
		if d.article != nil && m.Article.ID == d.article.ID {
			continue
		}
		id := m.Article.ID
		out = append(out, Suggestion{
			Kind:      SuggestionArticle,
			Text:      m.Article.Title,
			ArticleID: &id,
		})
	}
	return out
}

// persist records the session and turn. Failures are logged only. It returns the session ID
// the turn belongs to.
func (c *Composer) persist(ctx context.Context, req Request, message string, resp *Response, d decision) string {
	now := c.now().UTC()
	sess := c.loadSession(ctx, req.SessionID, now)
	if sess == nil {
		sess = &models.ChatSession{ID: uuid.NewString(), CreatedAt: now, LastActivity: now}
	}
	if req.ContextDoctype != "" {
		sess.ContextDoctype = req.ContextDoctype
		sess.ContextDocname = req.ContextDocname
	}
	sess.Language = resp.Language
	sess.Touch(now, message)

	if c.store == nil {
		return sess.ID
	}

	ctx, span := c.tracer.Start(ctx, "helpdesk.persist")
	defer span.End()

	if err := c.store.SaveSession(ctx, sess); err != nil {
		span.RecordError(err)
		c.logger.Error("failed to save chat session", map[string]interface{}{
			"sessionId": sess.ID,
			"error":     err.Error(),
		})
	}

	turn := &models.ChatTurn{
		ID:               resp.MessageID,
		SessionID:        sess.ID,
		Utterance:        message,
		DetectedLanguage: resp.Language,
		Intent:           resp.Intent,
		Answer:           resp.Answer,
		Source:           resp.Source,
		Confidence:       resp.Confidence,
		ArticleID:        resp.ArticleID,
		CreatedAt:        now,
	}
	if err := c.store.InsertTurn(ctx, turn); err != nil {
		span.RecordError(err)
		c.logger.Error("failed to save chat turn", map[string]interface{}{
			"sessionId": sess.ID,
			"messageId": turn.ID,
			"error":     err.Error(),
		})
	}

	if d.article != nil && d.source == models.SourceKnowledgeBase && d.confidence >= c.config.MinConfidence {
		if err := c.store.IncrementArticleUsage(ctx, d.article.ID); err != nil {
			c.logger.Warn("failed to update article usage", map[string]interface{}{
				"articleId": d.article.ID,
				"error":     err.Error(),
			})
		}
	}
	return sess.ID
}

// loadSession returns the live session for id, or nil when a new one must be started.
func (c *Composer) loadSession(ctx context.Context, id string, now time.Time) *models.ChatSession {
	if id == "" || c.store == nil {
		return nil
	}
	sess, err := c.store.GetSession(ctx, id)
	if err != nil {
		c.logger.Debug("starting new chat session", map[string]interface{}{
			"requestedSessionId": id,
			"reason":             err.Error(),
		})
		return nil
	}
	if sess.IsExpired(now, c.config.SessionTimeout) {
		c.logger.Debug("chat session expired, starting new one", map[string]interface{}{
			"sessionId":    id,
			"lastActivity": sess.LastActivity,
		})
		return nil
	}
	return sess
}

func (c *Composer) observe(resp *Response) {
	metrics.Answers.WithLabelValues(string(resp.Source), string(resp.Language)).Inc()
	metrics.AnswerConfidence.WithLabelValues(string(resp.Source)).Observe(resp.Confidence)
}

func roundScore(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
