package settler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// PulseFunc is the work performed on each pulse tick.
type PulseFunc func(ctx context.Context)

// Pulse is an explicit scheduled task with start/stop lifecycle. It runs
// the function once per interval until the context is cancelled or Stop is
// called, whichever comes first.
type Pulse struct {
	interval time.Duration
	fn       PulseFunc
	logger   zerolog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stop      chan struct{}
	done      chan struct{}
}

// NewPulse creates a pulse task. It does not start ticking until Start.
func NewPulse(interval time.Duration, fn PulseFunc, logger zerolog.Logger) *Pulse {
	return &Pulse{
		interval: interval,
		fn:       fn,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins ticking in a background goroutine. Subsequent calls are no-ops.
func (p *Pulse) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.started.Store(true)
		go p.run(ctx)
	})
}

// Stop halts the task and waits for the in-flight tick, if any, to return.
// Safe to call multiple times and safe to call before Start.
func (p *Pulse) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	if p.started.Load() {
		<-p.done
	}
}

func (p *Pulse) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug().Msg("pulse context cancelled")
			return
		case <-p.stop:
			p.logger.Debug().Msg("pulse stopped")
			return
		case <-ticker.C:
			p.fn(ctx)
		}
	}
}
