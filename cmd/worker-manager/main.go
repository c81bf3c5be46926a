// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	awsclient "erp-helpdesk-workers/internal/common/aws"
	"erp-helpdesk-workers/internal/common/camunda"
	"erp-helpdesk-workers/internal/common/config"
	"erp-helpdesk-workers/internal/common/database"
	"erp-helpdesk-workers/internal/common/logger"
	"erp-helpdesk-workers/internal/common/observability"
	"erp-helpdesk-workers/internal/common/validation"
	"erp-helpdesk-workers/internal/helpdesk/alerts"
	"erp-helpdesk-workers/internal/helpdesk/composer"
	"erp-helpdesk-workers/internal/helpdesk/fallback"
	"erp-helpdesk-workers/internal/helpdesk/feedback"
	"erp-helpdesk-workers/internal/helpdesk/intent"
	"erp-helpdesk-workers/internal/helpdesk/language"
	"erp-helpdesk-workers/internal/helpdesk/ranking"
	"erp-helpdesk-workers/internal/helpdesk/rules"
	"erp-helpdesk-workers/internal/helpdesk/store"
	"erp-helpdesk-workers/pkg/registry"

	gps "erp-helpdesk-workers/internal/workers/helpdesk/get-proactive-suggestions"
	gsh "erp-helpdesk-workers/internal/workers/helpdesk/get-session-history"
	rq "erp-helpdesk-workers/internal/workers/helpdesk/resolve-query"
	skb "erp-helpdesk-workers/internal/workers/helpdesk/search-knowledge-base"
	sf "erp-helpdesk-workers/internal/workers/helpdesk/submit-feedback"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting help desk worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	if err := config.ValidateHelpdesk(cfg); err != nil {
		zapLog.Fatal("invalid help desk configuration", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name, cfg.App.Version, log)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Elasticsearch (optional article index) ---
	var articleIndex ranking.ArticleIndex
	if cfg.Database.Elasticsearch.Enabled() {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, ranking from PostgreSQL only", zap.Error(err))
		} else {
			articleIndex = store.NewArticleIndex(es.Client, cfg.Database.Elasticsearch.ArticleIndex)
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- Help desk core ---
	helpdeskStore := store.NewPostgresStore(pg.DB)
	detector := language.NewDetector(cfg.Helpdesk.Language.UrduDensityThreshold)
	classifier := intent.NewClassifier()

	ranker := ranking.NewRanker(ranking.Config{
		KeywordWeight:  cfg.Helpdesk.Ranking.KeywordWeight,
		PhraseWeight:   cfg.Helpdesk.Ranking.PhraseWeight,
		ExactBonus:     cfg.Helpdesk.Ranking.ExactBonus,
		MinConfidence:  cfg.Helpdesk.Ranking.MinConfidence,
		CandidateLimit: cfg.Helpdesk.Ranking.CandidateLimit,
	}, helpdeskStore, articleIndex, log.WithFields(map[string]interface{}{"component": "ranking"}))

	var engineOpts []rules.Option
	if sink := newAlertSink(ctx, cfg.Alerts, log); sink != nil {
		engineOpts = append(engineOpts, rules.WithAlertSink(sink))
	}
	engine := rules.NewEngine(rules.Config{
		RuleTimeout:        config.GetDuration(cfg.Helpdesk.Rules.Timeout),
		MaxConcurrentRules: cfg.Helpdesk.Rules.MaxConcurrentRules,
		MaxEntitiesPerRule: cfg.Helpdesk.Rules.MaxEntitiesPerRule,
	},
		helpdeskStore,
		store.NewEntityStore(pg.DB),
		store.NewRuleStateCache(rdb.Client, rdb.KeyPrefix),
		log.WithFields(map[string]interface{}{"component": "rules"}),
		engineOpts...,
	)

	composerOpts := []composer.Option{
		composer.WithRuleEngine(engine),
		composer.WithStore(helpdeskStore),
		composer.WithTracer(observability.Tracer("helpdesk-composer")),
	}
	if cfg.Helpdesk.Composer.EnableFallback {
		adapter, err := fallback.NewFromConfig(cfg.GenAI, log.WithFields(map[string]interface{}{"component": "fallback"}))
		if err != nil {
			zapLog.Warn("generative fallback disabled", zap.Error(err))
		} else {
			composerOpts = append(composerOpts, composer.WithGenerator(adapter))
			zapLog.Info("generative fallback enabled", zap.String("provider", adapter.ProviderName()))
			go func() {
				if err := adapter.Warm(ctx); err != nil {
					zapLog.Warn("generative provider not ready yet", zap.Error(err))
				}
			}()
		}
	}

	resolver := composer.NewComposer(composer.Config{
		MinConfidence:    cfg.Helpdesk.Ranking.MinConfidence,
		PartialThreshold: cfg.Helpdesk.Ranking.PartialThreshold,
		EnableFallback:   cfg.Helpdesk.Composer.EnableFallback,
		DegradeFactor:    cfg.Helpdesk.Composer.DegradeFactor,
		RuleConfidence:   cfg.Helpdesk.Composer.RuleConfidence,
		MaxSuggestions:   cfg.Helpdesk.Composer.MaxSuggestions,
		SessionTimeout:   time.Duration(cfg.Helpdesk.Session.TimeoutMinutes) * time.Minute,
		MaxTokens:        cfg.GenAI.MaxTokens,
		Temperature:      cfg.GenAI.Temperature,
	}, detector, classifier, ranker, log.WithFields(map[string]interface{}{"component": "composer"}), composerOpts...)

	recorder := feedback.NewRecorder(helpdeskStore, log.WithFields(map[string]interface{}{"component": "feedback"}))

	jobs := camunda.JobSupport{Recorder: obs}
	if v := loadValidator(cfg.Registry.Path, zapLog); v != nil {
		jobs.Validator = v
	}

	// --- Workers ---
	zc := zeebe.GetClient()
	var workers []*camunda.Worker
	start := func(taskType string, handler camunda.JobHandler) {
		if w := camunda.StartWorker(zc, taskType, config.GetWorkerConfig(cfg, taskType), handler, log); w != nil {
			workers = append(workers, w)
		}
	}

	start(rq.TaskType, rq.NewHandler(rq.LoadConfig(cfg), resolver, jobs, log))
	start(skb.TaskType, skb.NewHandler(skb.LoadConfig(cfg), ranker, detector, jobs, log))
	start(sf.TaskType, sf.NewHandler(sf.LoadConfig(cfg), recorder, jobs, log))
	start(gps.TaskType, gps.NewHandler(gps.LoadConfig(cfg), engine, jobs, log))
	start(gsh.TaskType, gsh.NewHandler(gsh.LoadConfig(cfg), helpdeskStore, jobs, log))

	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{"status": "ready", "time": time.Now().Format(time.RFC3339)}
		code := http.StatusOK
		for name, ping := range map[string]func(context.Context) error{
			"postgres": helpdeskStore.Ping,
			"redis":    rdb.Ping,
			"zeebe":    zeebe.HealthCheck,
		} {
			if err := ping(checkCtx); err != nil {
				checks[name] = err.Error()
				checks["status"] = "not ready"
				code = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		writeStatus(w, code, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// loadValidator compiles the registry's input schemas. Without a registry jobs are
// decoded unvalidated.
func loadValidator(path string, log *zap.Logger) *validation.Validator {
	if path == "" {
		return nil
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		log.Warn("activity registry not loaded, input validation disabled", zap.String("path", path), zap.Error(err))
		return nil
	}
	v, err := validation.NewValidator(reg)
	if err != nil {
		log.Warn("activity registry schemas invalid, input validation disabled", zap.Error(err))
		return nil
	}
	log.Info("activity registry loaded", zap.String("path", path), zap.Int("activities", len(reg.Activities)))
	return v
}

// newAlertSink returns nil when alerts are disabled or AWS cannot be configured.
func newAlertSink(ctx context.Context, cfg config.AlertsConfig, log logger.Logger) *alerts.Sink {
	if !cfg.Enabled {
		return nil
	}
	awsCfg, err := awsclient.LoadConfig(ctx, cfg.Region)
	if err != nil {
		log.Warn("critical alerts disabled", map[string]interface{}{"error": err.Error()})
		return nil
	}

	var publisher alerts.Publisher
	if cfg.SNSTopicARN != "" {
		publisher = awsclient.NewSNSClient(awsCfg)
	}
	var mailer alerts.Mailer
	if cfg.SESFrom != "" && len(cfg.SESTo) > 0 {
		mailer = awsclient.NewSESClient(awsCfg)
	}
	return alerts.NewSink(alerts.Config{
		TopicARN: cfg.SNSTopicARN,
		From:     cfg.SESFrom,
		To:       cfg.SESTo,
	}, publisher, mailer, log)
}

func writeStatus(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
