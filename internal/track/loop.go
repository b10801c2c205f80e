package track

import (
	"context"
	"errors"
	"fmt"
	"time"

	"price-tracker/internal/scheduler"
)

// Start transitions the tracker from Stopped to Running, spawning the
// background loop: a full check of every product, then a wait of interval
// subdivided into one-second cancellation checks. Starting with an empty
// collection or while already running is rejected.
func (t *Tracker) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("track: interval must be positive")
	}

	t.loopMu.Lock()
	defer t.loopMu.Unlock()

	if t.running {
		return ErrAlreadyRunning
	}

	t.mu.Lock()
	empty := len(t.products) == 0
	t.mu.Unlock()
	if empty {
		return ErrEmptyStore
	}

	ctx, cancel := context.WithCancel(context.Background())
	loop := scheduler.New(scheduler.Options{Interval: interval}, t.logger)

	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true

	t.logger.Info().Dur("interval", interval).Msg("tracking started")

	go func(done chan struct{}) {
		defer close(done)
		err := loop.Run(ctx, func(tickCtx context.Context) error {
			// Stop interrupts only the inter-cycle wait; an in-flight
			// batch always runs to completion.
			_, err := t.CheckAll(context.WithoutCancel(tickCtx))
			return err
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			t.logger.Error().Err(err).Msg("tracking loop terminated with error")
		}
	}(t.done)

	return nil
}

// Stop signals the loop to exit at its next cancellation check point and
// blocks until the loop goroutine has exited. An in-flight check completes;
// only the inter-cycle wait is interrupted, so a Start issued after Stop
// returns never overlaps the previous loop.
func (t *Tracker) Stop() error {
	t.loopMu.Lock()
	defer t.loopMu.Unlock()

	if !t.running {
		return ErrNotRunning
	}

	t.cancel()
	t.cancel = nil
	<-t.done
	t.done = nil
	t.running = false
	t.logger.Info().Msg("tracking stopped")
	return nil
}

// Wait blocks until the background loop goroutine exits. It returns
// immediately when the loop never started.
func (t *Tracker) Wait() {
	t.loopMu.Lock()
	done := t.done
	t.loopMu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether the background loop is active.
func (t *Tracker) Running() bool {
	t.loopMu.Lock()
	defer t.loopMu.Unlock()
	return t.running
}
