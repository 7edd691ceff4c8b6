// Package wait polls conditions until they hold or a deadline passes.
package wait

import (
	"context"
	"errors"
	"time"

	"ui_harness/domain/entities"
)

const minPollInterval = 5 * time.Millisecond

// Predicate reports whether the awaited state holds. Errors are treated as
// "not yet" unless IsFatal says otherwise.
type Predicate func(ctx context.Context) (bool, error)

// Engine runs bounded poll loops
type Engine struct {
	// IsFatal decides which predicate errors stop polling immediately.
	IsFatal func(error) bool
}

// NewEngine - creates a wait engine using the wall clock
func NewEngine() *Engine {
	return &Engine{IsFatal: FatalLocatorError}
}

// FatalLocatorError treats ambiguous matches as fatal: waiting longer can only
// produce more matches.
func FatalLocatorError(err error) bool {
	return errors.Is(err, entities.ErrAmbiguousMatch)
}

// DefaultInterval returns the poll interval used when none is declared: 2% of
// the timeout, never below 5ms.
func DefaultInterval(timeout time.Duration) time.Duration {
	interval := timeout / 50
	if interval < minPollInterval {
		interval = minPollInterval
	}
	return interval
}

// Await polls p until it holds or timeout elapses. The predicate runs once
// immediately and a final time at the deadline. A zero timeout evaluates p once.
// On timeout the returned error is a *entities.WaitTimeoutError.
func (e *Engine) Await(ctx context.Context, description string, p Predicate, timeout, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval(timeout)
	}

	start := time.Now()
	deadline := start.Add(timeout)
	var lastErr error

	for {
		ok, err := p(ctx)
		if err != nil {
			if e.IsFatal != nil && e.IsFatal(err) {
				return err
			}
			lastErr = err
		} else if ok {
			return nil
		}

		now := time.Now()
		remaining := deadline.Sub(now)
		if remaining <= 0 {
			return &entities.WaitTimeoutError{
				Condition: description,
				Timeout:   timeout,
				Elapsed:   now.Sub(start),
				LastErr:   lastErr,
			}
		}

		sleep := interval
		if remaining < sleep {
			sleep = remaining
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
