package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"INFO"`
	DatabaseURL       string        `env:"DATABASE_URL"`
	MigrationsFolder  string        `env:"MIGRATIONS_FOLDER" envDefault:"./migrations"`
	MetricsAddr       string        `env:"METRICS_ADDR" envDefault:"0.0.0.0:9100"`
	SchedulerInterval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"1s"`
	PollInterval      time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"1s"`
	ShutdownGrace     time.Duration `env:"SHUTDOWN_GRACE" envDefault:"2s"`
}

// Load reads the process configuration from the environment.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
