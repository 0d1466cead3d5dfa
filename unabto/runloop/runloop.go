// Package runloop drives a stack's tick from the embedding application.
package runloop

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// DefaultInterval is the longest gap between ticks the stack tolerates.
const DefaultInterval = 10 * time.Millisecond

// Ticker is anything that needs periodic ticks, typically *unabto.Facade.
type Ticker interface {
	Tick() error
}

type Runner struct {
	t        Ticker
	interval time.Duration
	clock    clock.Clock
	log      *zap.Logger
}

type Option func(*Runner)

func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

func New(t Ticker, opts ...Option) *Runner {
	r := &Runner{t: t, interval: DefaultInterval, clock: clock.New(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Interval() time.Duration { return r.interval }

// Run ticks immediately and then once per interval, all on the calling
// goroutine. It returns nil once ctx is done, or the first Tick error.
func (r *Runner) Run(ctx context.Context) error {
	if r.interval > DefaultInterval {
		r.log.Warn("tick interval exceeds what the stack tolerates",
			zap.Duration("interval", r.interval),
			zap.Duration("max", DefaultInterval),
		)
	}
	tk := r.clock.Ticker(r.interval)
	defer tk.Stop()

	for {
		if err := r.t.Tick(); err != nil {
			r.log.Error("tick failed", zap.Error(err))
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-tk.C:
		}
	}
}
