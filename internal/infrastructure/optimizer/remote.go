package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"relay-server/services/response-orchestrator/internal/domain/conversation"
)

const defaultRemoteTimeout = 10 * time.Second

// Remote delegates optimization to a sidecar service speaking plain JSON.
type Remote struct {
	httpClient *resty.Client
	log        zerolog.Logger
}

// NewRemote constructs the remote optimizer client.
func NewRemote(baseURL string, timeout time.Duration, log zerolog.Logger) *Remote {
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &Remote{
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetTimeout(timeout),
		log: log.With().Str("component", "remote-optimizer").Logger(),
	}
}

// OptimizeContext POSTs the optimization input and decodes the result.
func (r *Remote) OptimizeContext(ctx context.Context, input conversation.OptimizationInput) (*conversation.OptimizationResult, error) {
	var result conversation.OptimizationResult
	resp, err := r.httpClient.R().
		SetContext(ctx).
		SetBody(input).
		SetResult(&result).
		Post("/v1/optimize")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("optimizer error: %s", resp.String())
	}

	r.log.Debug().
		Str("conversation_id", input.ConversationID).
		Bool("should_truncate", result.ShouldTruncate).
		Msg("remote optimization completed")
	return &result, nil
}

// Ensure interface compliance.
var _ conversation.ContextOptimizer = (*Remote)(nil)
