package composer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"erp-helpdesk-workers/internal/common/logger"
	"erp-helpdesk-workers/internal/helpdesk/fallback"
	"erp-helpdesk-workers/internal/helpdesk/intent"
	"erp-helpdesk-workers/internal/helpdesk/language"
	"erp-helpdesk-workers/internal/helpdesk/rules"
	"erp-helpdesk-workers/internal/models"
)

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, query string, lang models.Language, category string, limit int) ([]models.MatchResult, error) {
	args := m.Called(ctx, query, lang, category, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MatchResult), args.Error(1)
}

type MockSuggestionSource struct {
	mock.Mock
}

func (m *MockSuggestionSource) Evaluate(ctx context.Context, req rules.Request) (*rules.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rules.Result), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
	unavailable bool
}

func (m *MockGenerator) Generate(ctx context.Context, prompt fallback.Prompt, maxTokens int, temperature float64) (string, error) {
	args := m.Called(ctx, prompt, maxTokens, temperature)
	return args.String(0), args.Error(1)
}

func (m *MockGenerator) Confidence() float64 {
	return 85
}

func (m *MockGenerator) Available() bool {
	return !m.unavailable
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

func (m *MockStore) SaveSession(ctx context.Context, sess *models.ChatSession) error {
	return m.Called(ctx, sess).Error(0)
}

func (m *MockStore) InsertTurn(ctx context.Context, turn *models.ChatTurn) error {
	return m.Called(ctx, turn).Error(0)
}

func (m *MockStore) IncrementArticleUsage(ctx context.Context, articleID int64) error {
	return m.Called(ctx, articleID).Error(0)
}

var testNow = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

func article(id int64, title, answer string) models.KnowledgeArticle {
	return models.KnowledgeArticle{ID: id, Title: title, Answer: answer, Language: models.LanguageEnglish, IsActive: true}
}

func match(a models.KnowledgeArticle, score float64) models.MatchResult {
	return models.MatchResult{Article: a, Score: score, Confident: score >= 45}
}

var (
	invoiceArticle = article(1, "Create Sales Invoice", "Go to Accounts > Sales Invoice > New, add items and submit.")
	paymentArticle = article(2, "Record Payment", "Open the invoice and click Create > Payment.")
	creditArticle  = article(3, "Credit Note", "Use Create > Return on the submitted invoice.")
)

func newTestComposer(t *testing.T, cfg Config, searcher Searcher, opts ...Option) *Composer {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewComposer(cfg, language.NewDetector(0.2), intent.NewClassifier(), searcher, logger.NewTestLogger(t), opts...)
}

func TestResolve_ConfidentKnowledgeBaseMatch(t *testing.T) {
	searcher := new(MockSearcher)
	store := new(MockStore)

	searcher.On("Search", mock.Anything, "how do i create a sales invoice", models.LanguageEnglish, "", 4).
		Return([]models.MatchResult{match(invoiceArticle, 75), match(paymentArticle, 30), match(creditArticle, 12)}, nil)
	store.On("SaveSession", mock.Anything, mock.MatchedBy(func(s *models.ChatSession) bool {
		return s.ID != "" && s.TurnCount == 1 && s.LastMessage == "how do i create a sales invoice" && s.LastActivity.Equal(testNow)
	})).Return(nil)
	store.On("InsertTurn", mock.Anything, mock.MatchedBy(func(turn *models.ChatTurn) bool {
		return turn.Source == models.SourceKnowledgeBase && turn.Confidence == 75 && *turn.ArticleID == 1
	})).Return(nil)
	store.On("IncrementArticleUsage", mock.Anything, int64(1)).Return(nil)

	c := newTestComposer(t, DefaultConfig(), searcher, WithStore(store))
	resp := c.Resolve(context.Background(), Request{Message: "  how do i create a sales invoice "})

	assert.True(t, resp.Success)
	assert.Equal(t, models.SourceKnowledgeBase, resp.Source)
	assert.Equal(t, 75.0, resp.Confidence)
	assert.Equal(t, invoiceArticle.Answer, resp.Answer)
	assert.Equal(t, models.LanguageEnglish, resp.Language)
	assert.Equal(t, models.IntentHowTo, resp.Intent)
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.MessageID)

	require.Len(t, resp.Suggestions, 2)
	assert.Equal(t, "Record Payment", resp.Suggestions[0].Text)
	assert.Equal(t, SuggestionArticle, resp.Suggestions[0].Kind)
	assert.Equal(t, "Credit Note", resp.Suggestions[1].Text)

	store.AssertExpectations(t)
}

func TestResolve_UrduAnswerForUrduQuery(t *testing.T) {
	bilingual := invoiceArticle
	bilingual.Language = models.LanguageBilingual
	bilingual.AnswerUrdu = "اکاؤنٹس میں جا کر نیا سیلز انوائس بنائیں۔"

	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, mock.Anything, models.LanguageUrdu, "", 4).
		Return([]models.MatchResult{match(bilingual, 60)}, nil)

	c := newTestComposer(t, DefaultConfig(), searcher)
	resp := c.Resolve(context.Background(), Request{Message: "سیلز انوائس کیسے بنائیں"})

	assert.Equal(t, models.LanguageUrdu, resp.Language)
	assert.Equal(t, models.IntentHowTo, resp.Intent)
	assert.Equal(t, bilingual.AnswerUrdu, resp.Answer)
}

func TestResolve_PartialMatchUsesGenerativeFallback(t *testing.T) {
	searcher := new(MockSearcher)
	generator := new(MockGenerator)

	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, "", 4).
		Return([]models.MatchResult{match(paymentArticle, 32), match(creditArticle, 21)}, nil)
	generator.On("Generate", mock.Anything, mock.MatchedBy(func(p fallback.Prompt) bool {
		return strings.Contains(p.System, "- Record Payment:") && strings.Contains(p.System, "- Credit Note:")
	}), 0, 0.0).Return("Open the invoice, click Create and pick Payment Entry to record it.", nil)

	c := newTestComposer(t, DefaultConfig(), searcher, WithGenerator(generator))
	resp := c.Resolve(context.Background(), Request{Message: "customer paid part of the bill"})

	assert.Equal(t, models.SourceGenerativeFallback, resp.Source)
	assert.Equal(t, 85.0, resp.Confidence)
	assert.Nil(t, resp.ArticleID)
	assert.Len(t, resp.Suggestions, 2)
	generator.AssertExpectations(t)
}

func TestResolve_FallbackFailureDegradesToPartialMatch(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"timeout", fallback.ErrFallbackTimeout},
		{"unavailable", fallback.ErrFallbackUnavailable},
		{"provider error", errors.New("upstream 500")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := new(MockSearcher)
			generator := new(MockGenerator)
			store := new(MockStore)

			searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, "", 4).
				Return([]models.MatchResult{match(paymentArticle, 30)}, nil)
			generator.On("Generate", mock.Anything, mock.Anything, 0, 0.0).Return("", tt.err)
			store.On("SaveSession", mock.Anything, mock.Anything).Return(nil)
			store.On("InsertTurn", mock.Anything, mock.Anything).Return(nil)

			c := newTestComposer(t, DefaultConfig(), searcher, WithGenerator(generator), WithStore(store))
			resp := c.Resolve(context.Background(), Request{Message: "customer paid part of the bill"})

			assert.Equal(t, models.SourceKnowledgeBase, resp.Source)
			assert.Equal(t, 22.5, resp.Confidence)
			assert.Equal(t, paymentArticle.Answer, resp.Answer)
			require.NotNil(t, resp.ArticleID)
			store.AssertNotCalled(t, "IncrementArticleUsage", mock.Anything, mock.Anything)
		})
	}
}

func TestResolve_UnavailableGeneratorIsNotCalled(t *testing.T) {
	searcher := new(MockSearcher)
	generator := &MockGenerator{unavailable: true}
	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, "", 4).
		Return([]models.MatchResult{match(paymentArticle, 40)}, nil)

	c := newTestComposer(t, DefaultConfig(), searcher, WithGenerator(generator))
	resp := c.Resolve(context.Background(), Request{Message: "customer paid part of the bill"})

	assert.Equal(t, models.SourceKnowledgeBase, resp.Source)
	assert.Equal(t, 30.0, resp.Confidence)
	generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_PartialMatchWithFallbackDisabled(t *testing.T) {
	searcher := new(MockSearcher)
	generator := new(MockGenerator)
	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, "", 4).
		Return([]models.MatchResult{match(paymentArticle, 40)}, nil)

	cfg := DefaultConfig()
	cfg.EnableFallback = false
	c := newTestComposer(t, cfg, searcher, WithGenerator(generator))
	resp := c.Resolve(context.Background(), Request{Message: "customer paid part of the bill"})

	assert.Equal(t, models.SourceKnowledgeBase, resp.Source)
	assert.Equal(t, 30.0, resp.Confidence)
	generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_NoMatchFallsBackToContextDefault(t *testing.T) {
	searcher := new(MockSearcher)
	generator := new(MockGenerator)

	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, "", 4).
		Return([]models.MatchResult{match(creditArticle, 10)}, nil)
	generator.On("Generate", mock.Anything, mock.MatchedBy(func(p fallback.Prompt) bool {
		return !strings.Contains(p.System, "Use this context")
	}), 0, 0.0).Return("", fallback.ErrFallbackUnavailable)

	c := newTestComposer(t, DefaultConfig(), searcher, WithGenerator(generator))
	resp := c.Resolve(context.Background(), Request{Message: "zzqx", ContextDoctype: "Purchase Order"})

	assert.Equal(t, models.SourceDefault, resp.Source)
	assert.Equal(t, 0.0, resp.Confidence)
	assert.Equal(t, DefaultAnswer("Purchase Order", models.IntentUnknown, models.LanguageEnglish), resp.Answer)
	assert.Contains(t, resp.Answer, "Purchase Orders")
	generator.AssertExpectations(t)
}

func TestResolve_DefaultByIntentThenGeneric(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, "", 4).Return([]models.MatchResult{}, nil)

	c := newTestComposer(t, DefaultConfig(), searcher)

	resp := c.Resolve(context.Background(), Request{Message: "where is the thing"})
	assert.Equal(t, models.IntentFind, resp.Intent)
	assert.Equal(t, intentTexts[models.IntentFind].en, resp.Answer)

	resp = c.Resolve(context.Background(), Request{Message: "zzqx"})
	assert.Equal(t, genericText.en, resp.Answer)

	resp = c.Resolve(context.Background(), Request{Message: "zzqx", Language: models.PreferenceUrdu})
	assert.Equal(t, genericText.ur, resp.Answer)
}

func TestResolve_EmptyMessageAsksForClarification(t *testing.T) {
	searcher := new(MockSearcher)
	store := new(MockStore)

	c := newTestComposer(t, DefaultConfig(), searcher, WithStore(store))
	resp := c.Resolve(context.Background(), Request{Message: "   ", SessionID: "sess-1", Language: models.PreferenceUrdu})

	assert.True(t, resp.Success)
	assert.Equal(t, models.SourceDefault, resp.Source)
	assert.Equal(t, 0.0, resp.Confidence)
	assert.Equal(t, clarificationText.ur, resp.Answer)
	assert.Equal(t, "sess-1", resp.SessionID)
	searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "InsertTurn", mock.Anything, mock.Anything)
}

func TestResolve_StatusQueryAnsweredByRules(t *testing.T) {
	searcher := new(MockSearcher)
	engine := new(MockSuggestionSource)

	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, "", 4).Return([]models.MatchResult{}, nil)
	engine.On("Evaluate", mock.Anything, rules.Request{Doctype: "Sales Invoice", Docname: "SINV-0001", Language: models.LanguageEnglish}).
		Return(&rules.Result{Suggestions: []models.Suggestion{
			{RuleID: 2, Message: "Invoice SINV-0001 for Acme is overdue", Priority: models.PriorityCritical,
				Link: &models.RecordLink{Doctype: "Sales Invoice", Docname: "SINV-0001"}},
			{RuleID: 2, Message: "Invoice SINV-0002 for Beta is overdue", Priority: models.PriorityCritical,
				Link: &models.RecordLink{Doctype: "Sales Invoice", Docname: "SINV-0002"}},
		}}, nil)

	c := newTestComposer(t, DefaultConfig(), searcher, WithRuleEngine(engine))
	resp := c.Resolve(context.Background(), Request{
		Message:        "anything overdue?",
		ContextDoctype: "Sales Invoice",
		ContextDocname: "SINV-0001",
	})

	assert.Equal(t, models.IntentStatusQuery, resp.Intent)
	assert.Equal(t, models.SourceRule, resp.Source)
	assert.Equal(t, 70.0, resp.Confidence)
	assert.Equal(t, "Invoice SINV-0001 for Acme is overdue", resp.Answer)
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, SuggestionProactive, resp.Suggestions[0].Kind)
	assert.Equal(t, "SINV-0002", resp.Suggestions[0].Link.Docname)
}

func TestResolve_ProactiveSuggestionsTakePriority(t *testing.T) {
	searcher := new(MockSearcher)
	engine := new(MockSuggestionSource)

	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, "", 4).
		Return([]models.MatchResult{match(invoiceArticle, 80), match(paymentArticle, 40)}, nil)
	engine.On("Evaluate", mock.Anything, mock.Anything).Return(&rules.Result{Suggestions: []models.Suggestion{
		{Message: "Stock of ITEM-1 is low", Priority: models.PriorityHigh},
	}}, nil)

	c := newTestComposer(t, DefaultConfig(), searcher, WithRuleEngine(engine))
	resp := c.Resolve(context.Background(), Request{Message: "how do i create a sales invoice", ContextDoctype: "Bin"})

	assert.Equal(t, models.SourceKnowledgeBase, resp.Source)
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, "Stock of ITEM-1 is low", resp.Suggestions[0].Text)
}

func TestResolve_CollaboratorFailuresDegrade(t *testing.T) {
	searcher := new(MockSearcher)
	engine := new(MockSuggestionSource)
	store := new(MockStore)

	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, "", 4).Return(nil, errors.New("connection refused"))
	engine.On("Evaluate", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	store.On("GetSession", mock.Anything, "sess-1").Return(nil, errors.New("connection refused"))
	store.On("SaveSession", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	store.On("InsertTurn", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	c := newTestComposer(t, DefaultConfig(), searcher, WithRuleEngine(engine), WithStore(store))
	resp := c.Resolve(context.Background(), Request{Message: "how do i close the year", SessionID: "sess-1", ContextDoctype: "Customer"})

	assert.True(t, resp.Success)
	assert.Equal(t, models.SourceDefault, resp.Source)
	assert.Equal(t, contextTexts["Customer"].en, resp.Answer)
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEqual(t, "sess-1", resp.SessionID)
	assert.NotEmpty(t, resp.MessageID)
}

func TestResolve_SessionReuseAndExpiry(t *testing.T) {
	tests := []struct {
		name         string
		lastActivity time.Time
		expectReuse  bool
	}{
		{"active session is reused", testNow.Add(-10 * time.Minute), true},
		{"idle session is replaced", testNow.Add(-45 * time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := new(MockSearcher)
			store := new(MockStore)

			searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, "", 4).Return([]models.MatchResult{}, nil)
			store.On("GetSession", mock.Anything, "sess-1").Return(&models.ChatSession{
				ID:           "sess-1",
				CreatedAt:    testNow.Add(-time.Hour),
				LastActivity: tt.lastActivity,
				TurnCount:    4,
			}, nil)

			var saved *models.ChatSession
			store.On("SaveSession", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
				saved = args.Get(1).(*models.ChatSession)
			}).Return(nil)
			store.On("InsertTurn", mock.Anything, mock.Anything).Return(nil)

			c := newTestComposer(t, DefaultConfig(), searcher, WithStore(store))
			resp := c.Resolve(context.Background(), Request{Message: "hello", SessionID: "sess-1"})

			require.NotNil(t, saved)
			if tt.expectReuse {
				assert.Equal(t, "sess-1", resp.SessionID)
				assert.Equal(t, 5, saved.TurnCount)
			} else {
				assert.NotEqual(t, "sess-1", resp.SessionID)
				assert.Equal(t, 1, saved.TurnCount)
			}
			assert.Equal(t, saved.ID, resp.SessionID)
		})
	}
}

func TestResolve_HangingModelAnswersWithinBudget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(10 * time.Second):
		}
	}))
	defer server.Close()

	adapter := fallback.NewAdapter(fallback.NewGenAIProvider(server.URL, "", "", 0), nil,
		fallback.Options{Timeout: 300 * time.Millisecond}, logger.NewTestLogger(t))

	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, "", 4).
		Return([]models.MatchResult{match(paymentArticle, 28)}, nil)

	c := newTestComposer(t, DefaultConfig(), searcher, WithGenerator(adapter))

	started := time.Now()
	resp := c.Resolve(context.Background(), Request{Message: "customer paid part of the bill"})

	assert.Less(t, time.Since(started), 3*time.Second)
	assert.Equal(t, models.SourceKnowledgeBase, resp.Source)
	assert.Equal(t, 21.0, resp.Confidence)
}
