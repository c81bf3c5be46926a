// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Helpdesk HelpdeskConfig          `mapstructure:"helpdesk"`
	GenAI    GenAIConfig             `mapstructure:"genai"`
	Alerts   AlertsConfig            `mapstructure:"alerts"`
	Registry RegistryConfig          `mapstructure:"registry"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Server   ServerConfig            `mapstructure:"server"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// ElasticsearchConfig is optional. When no address is set the article index is disabled
// and candidates are read from Postgres only.
type ElasticsearchConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	URL          string   `mapstructure:"url"`
	ArticleIndex string   `mapstructure:"article_index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

func (e ElasticsearchConfig) Enabled() bool {
	return e.GetURL() != ""
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Help desk ---

type HelpdeskConfig struct {
	Language LanguageConfig `mapstructure:"language"`
	Ranking  RankingConfig  `mapstructure:"ranking"`
	Composer ComposerConfig `mapstructure:"composer"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Session  SessionConfig  `mapstructure:"session"`
}

type LanguageConfig struct {
	UrduDensityThreshold float64 `mapstructure:"urdu_density_threshold"`
}

type RankingConfig struct {
	KeywordWeight    float64 `mapstructure:"keyword_weight"`
	PhraseWeight     float64 `mapstructure:"phrase_weight"`
	ExactBonus       float64 `mapstructure:"exact_bonus"`
	MinConfidence    float64 `mapstructure:"min_confidence"`
	PartialThreshold float64 `mapstructure:"partial_threshold"`
	CandidateLimit   int     `mapstructure:"candidate_limit"`
}

type ComposerConfig struct {
	EnableFallback bool    `mapstructure:"enable_fallback"`
	DegradeFactor  float64 `mapstructure:"degrade_factor"`
	MaxSuggestions int     `mapstructure:"max_suggestions"`
	RuleConfidence float64 `mapstructure:"rule_confidence"`
}

type RulesConfig struct {
	Timeout            int `mapstructure:"timeout"` // milliseconds, per rule
	MaxConcurrentRules int `mapstructure:"max_concurrent_rules"`
	MaxEntitiesPerRule int `mapstructure:"max_entities_per_rule"`
}

type SessionConfig struct {
	TimeoutMinutes int `mapstructure:"timeout_minutes"`
	HistoryLimit   int `mapstructure:"history_limit"`
}

// GenAIConfig selects and tunes the generative fallback provider.
type GenAIConfig struct {
	Provider        string  `mapstructure:"provider"` // genai, ollama, openrouter, deepseek
	BaseURL         string  `mapstructure:"base_url"`
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	Timeout         int     `mapstructure:"timeout"` // milliseconds
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	RatePerMinute   int     `mapstructure:"rate_per_minute"`
	BreakerFailures int     `mapstructure:"breaker_failures"`
	BreakerCooldown int     `mapstructure:"breaker_cooldown"` // milliseconds
	ReacquireAfter  int     `mapstructure:"reacquire_after"`  // milliseconds
}

// AlertsConfig holds the SNS/SES delivery settings for critical proactive suggestions.
type AlertsConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Region      string   `mapstructure:"region"`
	SNSTopicARN string   `mapstructure:"sns_topic_arn"`
	SESFrom     string   `mapstructure:"ses_from"`
	SESTo       []string `mapstructure:"ses_to"`
}

type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}
