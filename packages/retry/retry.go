// Package retry wraps client calls in a bounded retry loop with
// exponential backoff. Classification of each outcome decides whether
// another attempt is worth making: transport errors and HTTP 5xx are
// retryable by default, everything else is terminal.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/apiprobe/apiprobe/packages/http"
)

const (
	// DefaultMaxAttempts is the total number of attempts, first try included
	DefaultMaxAttempts = 1
	// DefaultBaseDelay is the backoff unit; attempt i waits 2^i * base
	DefaultBaseDelay = 1 * time.Second
)

// Outcome classifies a single attempt.
type Outcome int

const (
	// Terminal means the result stands; no further attempt is made.
	Terminal Outcome = iota
	// Retryable means the failure is transient and worth another attempt.
	Retryable
)

// ClassifyFunc inspects an attempt's envelope or error. Exactly one of
// env and err is non-nil.
type ClassifyFunc func(env *http.Envelope, err error) Outcome

// DefaultClassify treats transport errors and HTTP 5xx as retryable and
// any other envelope (2xx through 4xx) as terminal.
func DefaultClassify(env *http.Envelope, err error) Outcome {
	if err != nil {
		return Retryable
	}
	if env.IsServerError() {
		return Retryable
	}
	return Terminal
}

// ExhaustedError reports that every attempt was consumed on retryable
// failures. It carries the last envelope or error observed.
type ExhaustedError struct {
	Attempts     int
	LastEnvelope *http.Envelope
	LastErr      error
}

func (e *ExhaustedError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("retries exhausted after %d attempts: last status %d", e.Attempts, e.LastEnvelope.StatusCode)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// Policy is an immutable retry configuration. The sleep function is
// injectable so tests can run the backoff schedule against a virtual
// clock.
type Policy struct {
	maxAttempts int
	baseDelay   time.Duration
	classify    ClassifyFunc
	sleep       func(context.Context, time.Duration) error
}

type Option func(*Policy)

func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		classify:    DefaultClassify,
		sleep:       contextSleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxAttempts < 1 {
		p.maxAttempts = 1
	}
	return p
}

// WithMaxAttempts sets the total attempt budget, first try included.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		p.maxAttempts = n
	}
}

// WithBaseDelay sets the backoff unit.
func WithBaseDelay(d time.Duration) Option {
	return func(p *Policy) {
		p.baseDelay = d
	}
}

// WithClassify replaces the default outcome classification.
func WithClassify(fn ClassifyFunc) Option {
	return func(p *Policy) {
		p.classify = fn
	}
}

// WithSleep replaces the backoff sleep, typically with a recording fake
// in tests.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(p *Policy) {
		p.sleep = fn
	}
}

// MaxAttempts returns the configured attempt budget.
func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

// Do invokes fn up to maxAttempts times. Terminal outcomes return
// immediately with whatever fn produced; retryable outcomes back off
// 2^i * baseDelay after attempt i and try again. When the budget runs
// out on a retryable failure, Do returns an *ExhaustedError.
func (p *Policy) Do(ctx context.Context, fn func(context.Context) (*http.Envelope, error)) (*http.Envelope, error) {
	var (
		env *http.Envelope
		err error
	)

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.baseDelay << (attempt - 1)
			if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
				return nil, sleepErr
			}
		}

		env, err = fn(ctx)

		if p.classify(env, err) == Terminal {
			return env, err
		}
	}

	return nil, &ExhaustedError{
		Attempts:     p.maxAttempts,
		LastEnvelope: env,
		LastErr:      err,
	}
}

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
