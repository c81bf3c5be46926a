package submitfeedback

import (
	"time"

	"erp-helpdesk-workers/internal/common/config"
)

type Config struct {
	Enabled bool
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	wcfg := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Enabled: wcfg.Enabled,
		Timeout: config.GetDuration(wcfg.Timeout),
	}
}
