package searchknowledgebase

import (
	"time"

	"erp-helpdesk-workers/internal/common/config"
)

type Config struct {
	Enabled      bool
	Timeout      time.Duration
	DefaultLimit int
	MaxLimit     int
}

func LoadConfig(cfg *config.Config) *Config {
	wcfg := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Enabled:      wcfg.Enabled,
		Timeout:      config.GetDuration(wcfg.Timeout),
		DefaultLimit: 10,
		MaxLimit:     50,
	}
}
