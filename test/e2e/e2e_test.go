// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"erp-helpdesk-workers/internal/common/camunda"
	"erp-helpdesk-workers/internal/common/config"
	"erp-helpdesk-workers/internal/common/database"
	"erp-helpdesk-workers/internal/common/errors"
	"erp-helpdesk-workers/internal/common/logger"
	"erp-helpdesk-workers/internal/helpdesk/composer"
	"erp-helpdesk-workers/internal/helpdesk/feedback"
	"erp-helpdesk-workers/internal/helpdesk/intent"
	"erp-helpdesk-workers/internal/helpdesk/language"
	"erp-helpdesk-workers/internal/helpdesk/ranking"
	"erp-helpdesk-workers/internal/helpdesk/rules"
	"erp-helpdesk-workers/internal/helpdesk/store"
	"erp-helpdesk-workers/internal/models"

	getproactivesuggestions "erp-helpdesk-workers/internal/workers/helpdesk/get-proactive-suggestions"
	getsessionhistory "erp-helpdesk-workers/internal/workers/helpdesk/get-session-history"
	resolvequery "erp-helpdesk-workers/internal/workers/helpdesk/resolve-query"
	searchknowledgebase "erp-helpdesk-workers/internal/workers/helpdesk/search-knowledge-base"
	submitfeedback "erp-helpdesk-workers/internal/workers/helpdesk/submit-feedback"
)

// Set HELPDESK_E2E=1 with PostgreSQL, Redis and Zeebe on localhost to run this suite.
const e2eEnv = "HELPDESK_E2E"

var (
	zeebe  *camunda.Client
	zapLog *zap.Logger
)

func TestMain(m *testing.M) {
	if os.Getenv(e2eEnv) == "" {
		fmt.Printf("skipping e2e tests, set %s=1 to run them\n", e2eEnv)
		os.Exit(0)
	}

	var err error
	zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
		GatewayAddress:         "localhost:26500",
		UsePlaintextConnection: true,
	})
	if err != nil {
		panic(fmt.Sprintf("❌ Failed to connect to Zeebe: %v", err))
	}

	zapLog, _ = zap.NewProduction()

	code := m.Run()

	zeebe.Close()
	os.Exit(code)
}

// helpdeskStack is everything the workers need, built the way the worker manager does.
type helpdeskStack struct {
	db       *sql.DB
	store    *store.PostgresStore
	detector *language.Detector
	ranker   *ranking.Ranker
	engine   *rules.Engine
	composer *composer.Composer
	recorder *feedback.Recorder
	log      logger.Logger
}

func TestFullE2E(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	t.Log("🚀 Starting help desk E2E test with real services...")

	assertAllServicesConnectivity(t, cfg)
	createDatabaseTables(t, cfg)
	deployAllBPMN(t)

	stack := newHelpdeskStack(t, cfg)
	t.Run("search-knowledge-base", func(t *testing.T) { testSearchKnowledgeBase(t, stack) })
	t.Run("resolve-query-and-feedback", func(t *testing.T) { testResolveQueryAndFeedback(t, stack) })
	t.Run("proactive-suggestions", func(t *testing.T) { testProactiveSuggestions(t, stack) })
	t.Run("unknown-turn-feedback", func(t *testing.T) { testUnknownTurnFeedback(t, stack) })

	t.Log("✅ ALL TESTS PASSED")
}

func assertAllServicesConnectivity(t *testing.T, cfg *config.Config) {
	t.Log("🔍 Checking service connectivity...")

	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"

	db, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "❌ PostgreSQL connection failed")
	assert.NoError(t, db.Ping(context.Background()), "❌ PostgreSQL ping failed")
	db.Close()
	t.Log("✅ PostgreSQL connected")

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "❌ Redis client creation failed")
	assert.NoError(t, rdb.Ping(context.Background()), "❌ Redis ping failed")
	rdb.Close()
	t.Log("✅ Redis connected")

	assert.NoError(t, zeebe.HealthCheck(context.Background()), "❌ Zeebe topology request failed")
	t.Log("✅ Zeebe connected")
}

// ==========================
// Database Tables Setup + Test Data
// ==========================
func createDatabaseTables(t *testing.T, cfg *config.Config) {
	t.Log("🔧 Creating help desk tables and inserting test data...")

	dbClient, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer dbClient.Close()

	db := dbClient.DB

	queries := []string{
		`CREATE TABLE IF NOT EXISTS helpdesk_articles (
			id BIGSERIAL PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			category VARCHAR(100),
			keywords TEXT,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			answer_urdu TEXT,
			language VARCHAR(20) NOT NULL DEFAULT 'English',
			related_doctype VARCHAR(140),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			usage_count INTEGER NOT NULL DEFAULT 0,
			helpful_count INTEGER NOT NULL DEFAULT 0,
			unhelpful_count INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS helpdesk_sessions (
			id VARCHAR(64) PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			last_activity TIMESTAMP NOT NULL,
			context_doctype VARCHAR(140),
			context_docname VARCHAR(140),
			language VARCHAR(20) NOT NULL,
			message_count INTEGER NOT NULL DEFAULT 0,
			last_message VARCHAR(200)
		)`,
		`CREATE TABLE IF NOT EXISTS helpdesk_turns (
			id VARCHAR(64) PRIMARY KEY,
			session_id VARCHAR(64) NOT NULL REFERENCES helpdesk_sessions(id),
			user_message TEXT NOT NULL,
			detected_language VARCHAR(20),
			intent VARCHAR(40),
			bot_response TEXT,
			response_source VARCHAR(40),
			confidence_score DOUBLE PRECISION,
			article_id BIGINT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS helpdesk_feedback (
			id VARCHAR(64) PRIMARY KEY,
			message_id VARCHAR(64) NOT NULL REFERENCES helpdesk_turns(id),
			rating VARCHAR(40) NOT NULL,
			feedback_text TEXT,
			correct_answer TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS helpdesk_rules (
			id BIGSERIAL PRIMARY KEY,
			rule_name VARCHAR(140) NOT NULL,
			rule_type VARCHAR(40) NOT NULL,
			target_doctype VARCHAR(140),
			context_independent BOOLEAN NOT NULL DEFAULT FALSE,
			condition TEXT NOT NULL,
			message_template TEXT NOT NULL,
			message_template_urdu TEXT,
			priority VARCHAR(20) NOT NULL DEFAULT 'Medium',
			check_frequency VARCHAR(20) NOT NULL DEFAULT 'Daily',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			sort_order INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS "tabBin" (
			name VARCHAR(140) PRIMARY KEY,
			item_code VARCHAR(140) NOT NULL,
			actual_qty INTEGER NOT NULL,
			reorder_level INTEGER NOT NULL
		)`,
	}
	for _, query := range queries {
		_, err := db.ExecContext(context.Background(), query)
		require.NoError(t, err, "❌ Failed to create table")
	}

	testData := []string{
		`TRUNCATE helpdesk_feedback, helpdesk_turns, helpdesk_sessions, helpdesk_articles, helpdesk_rules RESTART IDENTITY`,
		`INSERT INTO helpdesk_articles (title, category, keywords, question, answer, answer_urdu, language)
		 VALUES ('Create a Sales Invoice', 'Accounts', 'sales invoice,invoice,create invoice,bill',
		         'How do I create a sales invoice?',
		         'Go to Accounts > Sales Invoice > New, select the customer, add items and submit.',
		         'Accounts > Sales Invoice > New پر جائیں، customer منتخب کریں اور submit کریں۔',
		         'Bilingual')`,
		`INSERT INTO helpdesk_articles (title, category, keywords, question, answer, language)
		 VALUES ('Make a Stock Entry', 'Stock', 'stock entry,material transfer,stock',
		         'How do I make a stock entry?',
		         'Go to Stock > Stock Entry > New and choose the purpose.', 'English')`,
		`INSERT INTO helpdesk_rules (rule_name, rule_type, target_doctype, condition, message_template, priority, check_frequency, sort_order)
		 VALUES ('Low Stock Alert', 'LowStock', 'Bin', 'actual_qty <= reorder_level and reorder_level > 0',
		         '{{.item_code}} is below its reorder level ({{.actual_qty}} left).', 'High', 'Realtime', 1)`,
		`INSERT INTO "tabBin" (name, item_code, actual_qty, reorder_level)
		 VALUES ('BIN-0001', 'ITEM-PAPER', 3, 10), ('BIN-0002', 'ITEM-INK', 40, 10)
		 ON CONFLICT (name) DO NOTHING`,
	}
	for _, query := range testData {
		_, err := db.ExecContext(context.Background(), query)
		require.NoError(t, err, "❌ Failed to insert test data")
	}

	t.Log("✅ Help desk tables ready")
}

func deployAllBPMN(t *testing.T) {
	t.Log("🏗️ Deploying BPMN files...")

	var bpmnDir string
	for _, path := range []string{"bpmn", "../bpmn", "../../bpmn"} {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			bpmnDir = path
			break
		}
	}
	if bpmnDir == "" {
		t.Log("⚠️ BPMN directory not found, skipping deployment")
		return
	}

	files, err := os.ReadDir(bpmnDir)
	require.NoError(t, err, "❌ Cannot read BPMN directory")

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(strings.ToLower(f.Name()), ".bpmn") {
			continue
		}
		path := fmt.Sprintf("%s/%s", bpmnDir, f.Name())
		_, err := zeebe.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
			return zeebe.GetClient().NewDeployResourceCommand().AddResourceFile(path).Send(ctx)
		}, "deploy "+f.Name())
		if err != nil {
			t.Logf("⚠️ Failed to deploy BPMN %s: %v", f.Name(), err)
			continue
		}
		t.Logf("✅ Deployed: %s", f.Name())
	}
}

func newHelpdeskStack(t *testing.T, cfg *config.Config) *helpdeskStack {
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	log := logger.NewZapAdapter(zapLog)
	s := store.NewPostgresStore(pg.DB)
	detector := language.NewDetector(cfg.Helpdesk.Language.UrduDensityThreshold)
	ranker := ranking.NewRanker(ranking.DefaultConfig(), s, nil, log)

	stateCache := store.NewRuleStateCache(rdb.Client, fmt.Sprintf("e2e-%d", time.Now().UnixNano()))
	engine := rules.NewEngine(rules.DefaultConfig(), s, store.NewEntityStore(pg.DB), stateCache, log)

	cfgComposer := composer.DefaultConfig()
	cfgComposer.EnableFallback = false
	c := composer.NewComposer(cfgComposer, detector, intent.NewClassifier(), ranker, log,
		composer.WithRuleEngine(engine),
		composer.WithStore(s),
	)

	return &helpdeskStack{
		db:       pg.DB,
		store:    s,
		detector: detector,
		ranker:   ranker,
		engine:   engine,
		composer: c,
		recorder: feedback.NewRecorder(s, log),
		log:      log,
	}
}

// ==========================
// Worker Test Functions
// ==========================

func testSearchKnowledgeBase(t *testing.T, s *helpdeskStack) {
	handler := searchknowledgebase.NewHandler(&searchknowledgebase.Config{
		Timeout:      5 * time.Second,
		DefaultLimit: 10,
		MaxLimit:     50,
	}, s.ranker, s.detector, camunda.JobSupport{}, s.log)

	out, err := handler.Execute(context.Background(), &searchknowledgebase.Input{Query: "create sales invoice"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)
	assert.Equal(t, "Create a Sales Invoice", out.Results[0].Title)
	assert.True(t, out.Results[0].Confident)
}

func testResolveQueryAndFeedback(t *testing.T, s *helpdeskStack) {
	resolve := resolvequery.NewHandler(&resolvequery.Config{Timeout: 10 * time.Second}, s.composer, camunda.JobSupport{}, s.log)

	message := "How do I create a sales invoice?"
	out, err := resolve.Execute(context.Background(), &resolvequery.Input{Message: &message})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, models.SourceKnowledgeBase, out.Source)
	require.NotEmpty(t, out.SessionID)
	require.NotEmpty(t, out.MessageID)

	history := getsessionhistory.NewHandler(&getsessionhistory.Config{Timeout: 5 * time.Second, DefaultLimit: 50},
		s.store, camunda.JobSupport{}, s.log)
	hist, err := history.Execute(context.Background(), &getsessionhistory.Input{SessionID: out.SessionID})
	require.NoError(t, err)
	require.Len(t, hist.Turns, 1)
	assert.Equal(t, message, hist.Turns[0].Utterance)

	submit := submitfeedback.NewHandler(&submitfeedback.Config{Timeout: 5 * time.Second}, s.recorder, camunda.JobSupport{}, s.log)
	fb, err := submit.Execute(context.Background(), &submitfeedback.Input{MessageID: out.MessageID, Rating: "Helpful"})
	require.NoError(t, err)
	assert.True(t, fb.Success)

	var helpful, usage int
	require.NoError(t, s.db.QueryRowContext(context.Background(),
		`SELECT helpful_count, usage_count FROM helpdesk_articles WHERE id = $1`, *out.ArticleID).Scan(&helpful, &usage))
	assert.Equal(t, 1, helpful)
	assert.Equal(t, 1, usage)

	var stored int
	var rating string
	require.NoError(t, s.db.QueryRowContext(context.Background(),
		`SELECT count(*), max(rating) FROM helpdesk_feedback WHERE message_id = $1`, out.MessageID).Scan(&stored, &rating))
	assert.Equal(t, 1, stored)
	assert.Equal(t, "Helpful", rating)
}

func testProactiveSuggestions(t *testing.T, s *helpdeskStack) {
	handler := getproactivesuggestions.NewHandler(&getproactivesuggestions.Config{Timeout: 10 * time.Second},
		s.engine, camunda.JobSupport{}, s.log)

	out, err := handler.Execute(context.Background(), &getproactivesuggestions.Input{Doctype: "Bin"})
	require.NoError(t, err)
	assert.Empty(t, out.FailedRules)
	require.Len(t, out.Suggestions, 1)
	assert.Contains(t, out.Suggestions[0].Message, "ITEM-PAPER")
}

func testUnknownTurnFeedback(t *testing.T, s *helpdeskStack) {
	submit := submitfeedback.NewHandler(&submitfeedback.Config{Timeout: 5 * time.Second}, s.recorder, camunda.JobSupport{}, s.log)

	_, err := submit.Execute(context.Background(), &submitfeedback.Input{MessageID: "does-not-exist", Rating: "Helpful"})
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeTurnNotFound, stdErr.Code)
}

func BenchmarkHandler_SearchKnowledgeBase(b *testing.B) {
	cfg, err := config.Load()
	if err != nil {
		b.Skip(err)
	}
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		b.Skip(err)
	}
	defer pg.Close()

	log := logger.NewStructured("error", "json")
	ranker := ranking.NewRanker(ranking.DefaultConfig(), store.NewPostgresStore(pg.DB), nil, log)
	handler := searchknowledgebase.NewHandler(&searchknowledgebase.Config{
		Timeout:      5 * time.Second,
		DefaultLimit: 10,
		MaxLimit:     50,
	}, ranker, language.NewDetector(0), camunda.JobSupport{}, log)

	input := &searchknowledgebase.Input{Query: "stock entry material transfer"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = handler.Execute(context.Background(), input)
	}
}
