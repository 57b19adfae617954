// Package retry defines retry policies and backoff strategies.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"relay-server/services/response-orchestrator/internal/domain/errors"
	"relay-server/services/response-orchestrator/internal/domain/status"
)

// Policy defines a retry strategy.
type Policy struct {
	MaxRetries      int           `json:"max_retries"`
	InitialDelay    time.Duration `json:"initial_delay"`
	MaxDelay        time.Duration `json:"max_delay"`
	BackoffStrategy BackoffType   `json:"backoff_strategy"`
	JitterFactor    float64       `json:"jitter_factor"` // 0.0-1.0
}

// BackoffType identifies the backoff strategy.
type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"       // Same delay each time
	BackoffLinear      BackoffType = "linear"      // Delay increases linearly
	BackoffExponential BackoffType = "exponential" // Delay doubles each time
)

// DefaultPolicy returns a sensible default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        30 * time.Second,
		BackoffStrategy: BackoffExponential,
		JitterFactor:    0.25,
	}
}

// AggressivePolicy returns a more aggressive retry policy.
func AggressivePolicy() Policy {
	return Policy{
		MaxRetries:      5,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        60 * time.Second,
		BackoffStrategy: BackoffExponential,
		JitterFactor:    0.3,
	}
}

// ConservativePolicy returns a conservative retry policy.
func ConservativePolicy() Policy {
	return Policy{
		MaxRetries:      2,
		InitialDelay:    2 * time.Second,
		MaxDelay:        10 * time.Second,
		BackoffStrategy: BackoffLinear,
		JitterFactor:    0.1,
	}
}

// NoRetryPolicy returns a policy that never retries.
func NoRetryPolicy() Policy {
	return Policy{
		MaxRetries:   0,
		InitialDelay: 0,
		MaxDelay:     0,
	}
}

// RandFunc yields a value in [0.0, 1.0) for jitter. Injectable for tests.
type RandFunc func() float64

// SleepFunc pauses between attempts, honoring cancellation. Injectable for tests.
type SleepFunc func(ctx context.Context, d time.Duration) error

// CalculateDelay calculates the delay for a given attempt.
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	return p.CalculateDelayWithRand(attempt, rand.Float64)
}

// CalculateDelayWithRand calculates the delay for a given attempt using the
// supplied random source for jitter.
func (p *Policy) CalculateDelayWithRand(attempt int, rnd RandFunc) time.Duration {
	if attempt <= 0 {
		return 0
	}

	var delay time.Duration

	switch p.BackoffStrategy {
	case BackoffFixed:
		delay = p.InitialDelay
	case BackoffLinear:
		delay = p.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		delay = p.InitialDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	default:
		delay = p.InitialDelay
	}

	// Apply max delay cap
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	// Apply jitter
	if p.JitterFactor > 0 && rnd != nil {
		jitter := float64(delay) * p.JitterFactor * (rnd()*2 - 1) // -jitter to +jitter
		delay = time.Duration(float64(delay) + jitter)
		if delay < 0 {
			delay = 0
		}
	}

	return delay
}

// ShouldRetry determines if a retry should be attempted.
func (p *Policy) ShouldRetry(attempt int, severity status.ErrorSeverity) bool {
	if attempt >= p.MaxRetries {
		return false
	}
	return severity.IsRetryable()
}

// Executor provides retry execution functionality. The random source, the
// sleep mechanism and the classifier are all replaceable so tests run
// deterministically without real delays.
type Executor struct {
	policy     Policy
	classifier *errors.Classifier
	rand       RandFunc
	sleep      SleepFunc
}

// NewExecutor creates a new retry executor with the given policy.
func NewExecutor(policy Policy) *Executor {
	return &Executor{
		policy:     policy,
		classifier: errors.NewClassifier(),
		rand:       rand.Float64,
		sleep:      defaultSleep,
	}
}

// WithRand replaces the jitter random source.
func (e *Executor) WithRand(fn RandFunc) *Executor {
	e.rand = fn
	return e
}

// WithSleep replaces the inter-attempt sleep mechanism.
func (e *Executor) WithSleep(fn SleepFunc) *Executor {
	e.sleep = fn
	return e
}

// WithClassifier replaces the error classifier.
func (e *Executor) WithClassifier(c *errors.Classifier) *Executor {
	e.classifier = c
	return e
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// RetryableFunc is a function that can be retried.
type RetryableFunc func(ctx context.Context, attempt int) error

// Execute runs the function with retries according to the policy. Terminal
// errors end the loop immediately; the last error is returned on exhaustion.
func (e *Executor) Execute(ctx context.Context, fn RetryableFunc) error {
	var lastErr error

	for attempt := 0; attempt <= e.policy.MaxRetries; attempt++ {
		// Check context
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Execute the function
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}

		lastErr = err

		// Check if we should retry
		if !e.shouldRetry(attempt, err) {
			break
		}

		// Wait before retrying
		delay := e.policy.CalculateDelayWithRand(attempt+1, e.rand)
		if delay > 0 {
			if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
				return sleepErr
			}
		}
	}

	return lastErr
}

// ExecuteWithResult runs the function with retries and returns a result.
func ExecuteWithResult[T any](ctx context.Context, e *Executor, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= e.policy.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		r, err := fn(ctx, attempt)
		if err == nil {
			return r, nil
		}

		lastErr = err

		if !e.shouldRetry(attempt, err) {
			break
		}

		delay := e.policy.CalculateDelayWithRand(attempt+1, e.rand)
		if delay > 0 {
			if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
				return zero, sleepErr
			}
		}
	}

	return zero, lastErr
}

func (e *Executor) shouldRetry(attempt int, err error) bool {
	return e.policy.ShouldRetry(attempt, e.classifier.Classify(err))
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
