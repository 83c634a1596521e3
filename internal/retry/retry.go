// Package retry runs remote calls with a bounded number of attempts and a
// fixed delay between them.
//
// Every failure is retried the same way: there is no jitter, no exponential
// growth, and no distinction between retryable and permanent errors. Callers
// that must not retry (local file access) simply do not go through here.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jobmedia/internal/logging"
)

const (
	// DefaultMaxAttempts is the attempt budget used when a policy leaves it unset.
	DefaultMaxAttempts = 5
	// DefaultDelay is the pause between attempts used when a policy leaves it unset.
	DefaultDelay = time.Second
)

// Policy bounds one retried call.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy returns five attempts one second apart.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay}
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

// ExhaustedError is returned once every attempt has failed. It unwraps to the
// last observed failure.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Executor performs retried calls and logs each failed attempt.
type Executor struct {
	logger  *slog.Logger
	sleeper func(time.Duration)
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(e *Executor) {
		e.sleeper = sleeper
	}
}

// New constructs an Executor. A nil logger discards attempt warnings.
func New(logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{logger: logging.NewComponentLogger(logger, "retry")}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Do runs action until it succeeds or policy.MaxAttempts attempts have failed.
// The delay is applied only between attempts, never after the last one.
func (e *Executor) Do(ctx context.Context, policy Policy, op string, action func(context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	attempts := policy.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%s: %w (last failure: %v)", op, err, lastErr)
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		err := action(ctx)
		if err == nil {
			if attempt > 1 {
				logging.WithContext(ctx, e.logger).Debug("retried call succeeded",
					logging.String("op", op),
					logging.Int("attempt", attempt),
				)
			}
			return nil
		}
		lastErr = err
		e.logAttempt(ctx, op, attempt, attempts, err)
		if attempt == attempts {
			break
		}
		if err := e.sleep(ctx, policy.Delay); err != nil {
			return fmt.Errorf("%s: %w (last failure: %v)", op, err, lastErr)
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return &ExhaustedError{Op: op, Attempts: attempts, Err: lastErr}
}

// Value is Do for actions that produce a result.
func Value[T any](ctx context.Context, e *Executor, policy Policy, op string, action func(context.Context) (T, error)) (T, error) {
	var result T
	err := e.Do(ctx, policy, op, func(ctx context.Context) error {
		value, err := action(ctx)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	return result, err
}

func (e *Executor) logAttempt(ctx context.Context, op string, attempt, attempts int, err error) {
	logger := logging.WithContext(ctx, e.logger)
	hint := "retrying after delay"
	impact := "call will be retried"
	if attempt == attempts {
		hint = "check backend availability and the item's failure reason"
		impact = "retry budget exhausted"
	}
	logging.WarnWithContext(logger, "remote call attempt failed", "retry_attempt_failed",
		logging.String("op", op),
		logging.Int("attempt", attempt),
		logging.Int("max_attempts", attempts),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, impact),
	)
}

func (e *Executor) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if e.sleeper != nil {
		e.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
