package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked once per cycle.
type TickFunc func(ctx context.Context) error

// Options tune loop behaviour.
type Options struct {
	Interval time.Duration
	// Granularity bounds cancellation latency: the inter-cycle wait is
	// subdivided into slices of this length, each ending at a cancellation
	// check point. Defaults to one second.
	Granularity time.Duration
}

// Loop drives repeated execution of a tracking cycle. The tick runs
// immediately on start and then once per interval; an in-flight tick is
// never interrupted, only the inter-cycle wait is.
type Loop struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Loop.
func New(opts Options, logger zerolog.Logger) *Loop {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	if opts.Granularity <= 0 {
		opts.Granularity = time.Second
	}
	return &Loop{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking tick each cycle until ctx is cancelled.
func (l *Loop) Run(ctx context.Context, tick TickFunc) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.logger.Debug().Msg("executing tracking cycle")
		if err := tick(ctx); err != nil {
			l.logger.Error().Err(err).Msg("tracking cycle failed")
		}

		if err := l.wait(ctx); err != nil {
			return err
		}
	}
}

// wait sleeps for the configured interval in granularity-sized slices,
// returning early when ctx is cancelled.
func (l *Loop) wait(ctx context.Context) error {
	deadline := time.Now().Add(l.opts.Interval)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}

		slice := l.opts.Granularity
		if remaining < slice {
			slice = remaining
		}

		timer := time.NewTimer(slice)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
