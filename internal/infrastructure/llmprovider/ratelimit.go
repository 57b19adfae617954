package llmprovider

import (
	"context"

	"golang.org/x/time/rate"

	"relay-server/services/response-orchestrator/internal/domain/llm"
)

// RateLimitedProvider paces outbound upstream calls with a token bucket.
// Callers block in Wait until a token is available or their context ends,
// so a burst of requests is smoothed instead of rejected.
type RateLimitedProvider struct {
	inner   llm.Provider
	limiter *rate.Limiter
}

// NewRateLimitedProvider wraps inner with a client-side limit of rps requests
// per second. Burst capacity matches one second of traffic.
func NewRateLimitedProvider(inner llm.Provider, rps float64) *RateLimitedProvider {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// CreateResponse waits for a token, then delegates.
func (p *RateLimitedProvider) CreateResponse(ctx context.Context, payload llm.Payload) (*llm.ResponseWire, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.CreateResponse(ctx, payload)
}

// StreamResponse waits for a token, then delegates. Only establishment is
// paced; an open stream consumes no further tokens.
func (p *RateLimitedProvider) StreamResponse(ctx context.Context, payload llm.Payload) (llm.Stream, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.StreamResponse(ctx, payload)
}

// Ensure interface compliance.
var _ llm.Provider = (*RateLimitedProvider)(nil)
