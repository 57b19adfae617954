package llmprovider

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	orcherrors "relay-server/services/response-orchestrator/internal/domain/errors"
	"relay-server/services/response-orchestrator/internal/domain/llm"
	"relay-server/services/response-orchestrator/internal/infrastructure/metrics"
)

// Circuit breaker settings.
const (
	breakerMaxFailures uint32        = 5
	breakerTimeout     time.Duration = 30 * time.Second
	breakerInterval    time.Duration = 60 * time.Second
)

// BreakerProvider wraps an llm.Provider with circuit breaker protection.
// When upstream fails repeatedly, the circuit opens and subsequent calls
// fail fast without reaching upstream, preventing retry storms. One breaker
// guards both response creation and stream establishment; mid-stream
// failures never reach it.
type BreakerProvider struct {
	inner   llm.Provider
	breaker *gobreaker.CircuitBreaker[*llm.ResponseWire]
	log     zerolog.Logger
}

// NewBreakerProvider wraps inner with a circuit breaker.
func NewBreakerProvider(inner llm.Provider, log zerolog.Logger) *BreakerProvider {
	componentLog := log.With().Str("component", "llm-breaker").Logger()

	cb := gobreaker.NewCircuitBreaker[*llm.ResponseWire](gobreaker.Settings{
		Name:        "llm-upstream",
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			componentLog.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
			metrics.SetCircuitBreakerState(float64(to))
		},
		IsSuccessful: func(err error) bool {
			switch {
			case err == nil:
				return true
			case errors.Is(err, context.Canceled):
				// The caller went away; says nothing about upstream health.
				return true
			}
			var oe *orcherrors.OrchestrationError
			if errors.As(err, &oe) {
				// Terminal rejections fault the request, not upstream.
				return !oe.IsRetryable()
			}
			return false
		},
	})

	return &BreakerProvider{
		inner:   inner,
		breaker: cb,
		log:     componentLog,
	}
}

// CreateResponse routes the call through the circuit breaker.
func (p *BreakerProvider) CreateResponse(ctx context.Context, payload llm.Payload) (*llm.ResponseWire, error) {
	wire, err := p.breaker.Execute(func() (*llm.ResponseWire, error) {
		return p.inner.CreateResponse(ctx, payload)
	})
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return wire, nil
}

// StreamResponse routes stream establishment through the circuit breaker.
// Errors after the stream is open are delivered on the stream itself and do
// not trip the breaker.
func (p *BreakerProvider) StreamResponse(ctx context.Context, payload llm.Payload) (llm.Stream, error) {
	// Zero-result breaker execution; the stream travels via the closure.
	var stream llm.Stream
	_, err := p.breaker.Execute(func() (*llm.ResponseWire, error) {
		var streamErr error
		stream, streamErr = p.inner.StreamResponse(ctx, payload)
		return nil, streamErr
	})
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return stream, nil
}

// State returns the current circuit breaker state for monitoring.
func (p *BreakerProvider) State() gobreaker.State {
	return p.breaker.State()
}

// Counts returns the current circuit breaker failure/success counts.
func (p *BreakerProvider) Counts() gobreaker.Counts {
	return p.breaker.Counts()
}

// mapBreakerErr turns fail-fast breaker rejections into retryable upstream
// errors so the retry loop backs off while the circuit cools down.
func mapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return orcherrors.NewUpstreamRetryable(err)
	}
	return err
}

// Ensure interface compliance.
var _ llm.Provider = (*BreakerProvider)(nil)
