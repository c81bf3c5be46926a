package resolvequery

import (
	"time"

	"erp-helpdesk-workers/internal/common/config"
)

type Config struct {
	Enabled bool
	Timeout time.Duration
}

// LoadConfig reads the worker section. The timeout has to cover the generative fallback
// budget, so it never drops below 45s.
func LoadConfig(cfg *config.Config) *Config {
	wcfg := config.GetWorkerConfig(cfg, TaskType)
	timeout := config.GetDuration(wcfg.Timeout)
	if floor := config.GetDuration(cfg.GenAI.Timeout) + 15*time.Second; timeout < floor {
		timeout = floor
	}
	return &Config{
		Enabled: wcfg.Enabled,
		Timeout: timeout,
	}
}
