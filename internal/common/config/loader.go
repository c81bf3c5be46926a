// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	if root := findProjectRoot(); root != "" {
		v.AddConfigPath(filepath.Join(root, "configs"))
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // environment overlay is optional

	return build(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env", // tests under test/e2e
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are commonly provided as bare env vars.
func overrideEmptyConfig(cfg *Config) {
	overrides := []struct {
		target *string
		env    string
	}{
		{&cfg.GenAI.APIKey, "GENAI_API_KEY"},
		{&cfg.GenAI.BaseURL, "GENAI_BASE_URL"},
		{&cfg.Database.Postgres.User, "DB_USER"},
		{&cfg.Database.Postgres.Password, "DB_PASSWORD"},
		{&cfg.Database.Redis.Password, "REDIS_PASSWORD"},
		{&cfg.Alerts.SNSTopicARN, "ALERTS_SNS_TOPIC_ARN"},
	}
	for _, o := range overrides {
		if *o.target != "" {
			continue
		}
		if val := os.Getenv(o.env); val != "" {
			*o.target = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "erp-helpdesk-workers"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.ArticleIndex == "" {
		cfg.Database.Elasticsearch.ArticleIndex = "helpdesk-articles"
	}
	if cfg.Database.Redis.KeyPrefix == "" {
		cfg.Database.Redis.KeyPrefix = "helpdesk"
	}

	applyHelpdeskDefaults(&cfg.Helpdesk)
	applyGenAIDefaults(&cfg.GenAI)

	if cfg.Alerts.Region == "" {
		cfg.Alerts.Region = "us-east-1"
	}
	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "configs/activity-registry.json"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

func applyHelpdeskDefaults(h *HelpdeskConfig) {
	if h.Language.UrduDensityThreshold == 0 {
		h.Language.UrduDensityThreshold = 0.2
	}

	if h.Ranking.KeywordWeight == 0 && h.Ranking.PhraseWeight == 0 && h.Ranking.ExactBonus == 0 {
		h.Ranking.KeywordWeight = 60
		h.Ranking.PhraseWeight = 30
		h.Ranking.ExactBonus = 10
	}
	if h.Ranking.MinConfidence == 0 {
		h.Ranking.MinConfidence = 45
	}
	if h.Ranking.PartialThreshold == 0 {
		h.Ranking.PartialThreshold = 20
	}
	if h.Ranking.CandidateLimit == 0 {
		h.Ranking.CandidateLimit = 200
	}

	if h.Composer.DegradeFactor == 0 {
		h.Composer.DegradeFactor = 0.75
	}
	if h.Composer.MaxSuggestions == 0 {
		h.Composer.MaxSuggestions = 3
	}
	if h.Composer.RuleConfidence == 0 {
		h.Composer.RuleConfidence = 70
	}

	if h.Rules.Timeout == 0 {
		h.Rules.Timeout = 2000
	}
	if h.Rules.MaxConcurrentRules == 0 {
		h.Rules.MaxConcurrentRules = 4
	}
	if h.Rules.MaxEntitiesPerRule == 0 {
		h.Rules.MaxEntitiesPerRule = 10000
	}

	if h.Session.TimeoutMinutes == 0 {
		h.Session.TimeoutMinutes = 30
	}
	if h.Session.HistoryLimit == 0 {
		h.Session.HistoryLimit = 50
	}
}

func applyGenAIDefaults(g *GenAIConfig) {
	if g.Provider == "" {
		g.Provider = "genai"
	}
	if g.Timeout == 0 {
		g.Timeout = 30000
	}
	if g.MaxTokens == 0 {
		g.MaxTokens = 500
	}
	if g.Temperature == 0 {
		g.Temperature = 0.7
	}
	if g.RatePerMinute == 0 {
		g.RatePerMinute = 60
	}
	if g.BreakerFailures == 0 {
		g.BreakerFailures = 5
	}
	if g.BreakerCooldown == 0 {
		g.BreakerCooldown = 30000
	}
	if g.ReacquireAfter == 0 {
		g.ReacquireAfter = 60000
	}
	if g.Model == "" && g.Provider == "ollama" {
		g.Model = "llama3.2:3b"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	return ValidateHelpdesk(cfg)
}

// ValidateHelpdesk checks the tunables an operator can change at runtime.
func ValidateHelpdesk(cfg *Config) error {
	g := cfg.GenAI
	if g.Temperature < 0.1 || g.Temperature > 1.0 {
		return fmt.Errorf("genai.temperature must be between 0.1 and 1.0, got %v", g.Temperature)
	}
	if g.MaxTokens < 50 || g.MaxTokens > 2000 {
		return fmt.Errorf("genai.max_tokens must be between 50 and 2000, got %d", g.MaxTokens)
	}
	switch g.Provider {
	case "genai", "ollama", "openrouter", "deepseek":
	default:
		return fmt.Errorf("genai.provider %q is not supported", g.Provider)
	}

	h := cfg.Helpdesk
	if h.Session.TimeoutMinutes < 5 || h.Session.TimeoutMinutes > 240 {
		return fmt.Errorf("helpdesk.session.timeout_minutes must be between 5 and 240, got %d", h.Session.TimeoutMinutes)
	}
	if h.Ranking.MinConfidence <= h.Ranking.PartialThreshold {
		return fmt.Errorf("helpdesk.ranking.min_confidence (%v) must be above partial_threshold (%v)",
			h.Ranking.MinConfidence, h.Ranking.PartialThreshold)
	}
	if h.Ranking.MinConfidence > 100 {
		return fmt.Errorf("helpdesk.ranking.min_confidence must not exceed 100")
	}
	if h.Composer.DegradeFactor <= 0 || h.Composer.DegradeFactor > 1 {
		return fmt.Errorf("helpdesk.composer.degrade_factor must be in (0, 1]")
	}
	if h.Language.UrduDensityThreshold <= 0 || h.Language.UrduDensityThreshold > 1 {
		return fmt.Errorf("helpdesk.language.urdu_density_threshold must be in (0, 1]")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
