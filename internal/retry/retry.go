// Package retry is the single retry/backoff discipline shared by every
// outbound call: search providers, page fetches, LLM completions and URL
// validation.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/citebank/internal/metrics"
)

// Components passed to Do. They label logs, metrics and exhaustion errors.
const (
	ComponentSearch   = "search"
	ComponentFetch    = "fetch"
	ComponentLLM      = "llm"
	ComponentValidate = "validate"
)

// Policy bounds a retried call. Between attempts Do waits BaseDelay * 2^attempt
// (attempt is zero based), capped by MaxDelay when set.
type Policy struct {
	MaxRetries     int           // total attempts, at least 1
	BaseDelay      time.Duration // unit of the exponential backoff
	MaxDelay       time.Duration
	AttemptTimeout time.Duration // deadline applied to each attempt, 0 for none
}

// Delay returns the wait that follows the given zero-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay * time.Duration(1<<attempt)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p Policy) attempts() int {
	if p.MaxRetries < 1 {
		return 1
	}
	return p.MaxRetries
}

// Error is returned once a call gives up. It names the component so callers
// can tell a search failure from a fetch failure without parsing strings.
type Error struct {
	Component string
	Attempts  int
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Component, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err should short-circuit the retry loop, either
// because it was wrapped with Permanent or because it reports Retryable() == false.
func IsPermanent(err error) bool {
	var p permanentError
	if errors.As(err, &p) {
		return true
	}
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return !r.Retryable()
	}
	return false
}

// Attempt describes one try, passed to OnAttempt observers.
type Attempt struct {
	Component string
	Number    int // 1 based
	Err       error
	Wait      time.Duration // backoff that follows this attempt, 0 when final
}

type options struct {
	logger    *zap.Logger
	onAttempt func(Attempt)
	sleep     func(context.Context, time.Duration) error
}

// Option configures a single Do call.
type Option func(*options)

// WithLogger logs every attempt at debug level and exhaustion at warn.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// OnAttempt registers an observer invoked after each attempt.
func OnAttempt(fn func(Attempt)) Option {
	return func(o *options) { o.onAttempt = fn }
}

// WithSleep replaces the backoff wait; tests use it to record delays.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(o *options) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs op until it succeeds, returns a permanent error, the parent context
// ends, or the policy runs out of attempts. Only the final outcome is returned;
// failures are wrapped in *Error.
func Do[T any](ctx context.Context, component string, p Policy, op func(context.Context) (T, error), opts ...Option) (T, error) {
	o := options{logger: zap.NewNop(), sleep: sleepCtx}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger.With(zap.String("component", component))

	var zero T
	total := p.attempts()
	var lastErr error
	for attempt := 0; attempt < total; attempt++ {
		if err := ctx.Err(); err != nil {
			metrics.CallAttempts.WithLabelValues(component, "canceled").Inc()
			return zero, &Error{Component: component, Attempts: attempt, Err: errors.Join(err, lastErr)}
		}

		actx, cancel := ctx, context.CancelFunc(func() {})
		if p.AttemptTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		}
		v, err := op(actx)
		cancel()

		n := attempt + 1
		if err == nil {
			metrics.CallAttempts.WithLabelValues(component, "success").Inc()
			log.Debug("call succeeded", zap.Int("attempt", n))
			if o.onAttempt != nil {
				o.onAttempt(Attempt{Component: component, Number: n})
			}
			return v, nil
		}
		lastErr = err

		final := n == total
		permanent := IsPermanent(err)
		var wait time.Duration
		if !final && !permanent {
			wait = p.Delay(attempt)
		}
		if o.onAttempt != nil {
			o.onAttempt(Attempt{Component: component, Number: n, Err: err, Wait: wait})
		}

		switch {
		case permanent:
			metrics.CallAttempts.WithLabelValues(component, "permanent").Inc()
			log.Debug("call failed permanently", zap.Int("attempt", n), zap.Error(err))
			return zero, &Error{Component: component, Attempts: n, Err: err}
		case final:
			metrics.CallAttempts.WithLabelValues(component, "exhausted").Inc()
			log.Warn("call exhausted retries", zap.Int("attempts", n), zap.Error(err))
			return zero, &Error{Component: component, Attempts: n, Err: err}
		}

		metrics.CallAttempts.WithLabelValues(component, "retry").Inc()
		log.Debug("call failed, backing off", zap.Int("attempt", n), zap.Duration("wait", wait), zap.Error(err))
		if err := o.sleep(ctx, wait); err != nil {
			metrics.CallAttempts.WithLabelValues(component, "canceled").Inc()
			return zero, &Error{Component: component, Attempts: n, Err: errors.Join(err, lastErr)}
		}
	}
	return zero, &Error{Component: component, Attempts: total, Err: lastErr}
}
