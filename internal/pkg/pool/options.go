package pool

import (
	"time"

	"go.uber.org/zap"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/worker"
)

type Option func(*Pool)

func WithPollInterval(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithShutdownGrace bounds, on top of one poll interval, how long Stop waits for a worker.
func WithShutdownGrace(d time.Duration) Option {
	return func(p *Pool) {
		p.grace = d
	}
}

func WithFactory(f worker.HandlerFactory) Option {
	return func(p *Pool) {
		p.factory = f
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}
