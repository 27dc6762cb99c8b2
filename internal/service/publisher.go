package service

import (
	"context"
	"time"

	"github.com/ipm-pk/fingerprint/internal/status"
)

// DefaultStateInterval is the periodic status republish interval.
const DefaultStateInterval = 250 * time.Millisecond

// Publisher copies device status snapshots to every registered sink on a
// fixed interval, regardless of whether an operation is in flight. Reads
// are lock-free snapshots, so the ticker never contends with a mutating
// capability call.
type Publisher struct {
	register *status.Register
	sinks    []StatusSink
	interval time.Duration
	logger   Logger
}

// NewPublisher creates a publisher over the given register. An interval
// of zero or less falls back to DefaultStateInterval.
func NewPublisher(register *status.Register, interval time.Duration, logger Logger, sinks ...StatusSink) *Publisher {
	if interval <= 0 {
		interval = DefaultStateInterval
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Publisher{
		register: register,
		sinks:    sinks,
		interval: interval,
		logger:   logger,
	}
}

// Run publishes until the context ends. It publishes one snapshot
// immediately so sinks are current before the first tick.
func (p *Publisher) Run(ctx context.Context) {
	p.logger.Info("status publisher started",
		"interval", p.interval.String(), "sinks", len(p.sinks))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.publish()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("status publisher stopped")
			return
		case <-ticker.C:
			p.publish()
		}
	}
}

func (p *Publisher) publish() {
	s := p.register.Snapshot()
	for _, sink := range p.sinks {
		sink.PublishStatus(s)
	}
}
