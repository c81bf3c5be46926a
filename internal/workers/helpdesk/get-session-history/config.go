package getsessionhistory

import (
	"time"

	"erp-helpdesk-workers/internal/common/config"
)

type Config struct {
	Enabled      bool
	Timeout      time.Duration
	DefaultLimit int
}

func LoadConfig(cfg *config.Config) *Config {
	wcfg := config.GetWorkerConfig(cfg, TaskType)
	limit := cfg.Helpdesk.Session.HistoryLimit
	if limit <= 0 {
		limit = 50
	}
	return &Config{
		Enabled:      wcfg.Enabled,
		Timeout:      config.GetDuration(wcfg.Timeout),
		DefaultLimit: limit,
	}
}
