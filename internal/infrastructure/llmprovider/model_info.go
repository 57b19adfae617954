package llmprovider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	orcherrors "relay-server/services/response-orchestrator/internal/domain/errors"
	"relay-server/services/response-orchestrator/internal/domain/llm"
	"relay-server/services/response-orchestrator/internal/infrastructure/metrics"
)

// modelInfoTTL bounds how long catalog metadata is reused before a refetch.
// Context windows change on upstream deploys, not per request.
const modelInfoTTL = 5 * time.Minute

type modelInfoEntry struct {
	info      *llm.ModelInfo
	fetchedAt time.Time
}

// ModelCatalogResponse mirrors the upstream /v1/models/{id} response.
type ModelCatalogResponse struct {
	ID            string `json:"id"`
	ContextLength *int   `json:"context_length,omitempty"`
	MaxTokens     *int   `json:"max_tokens,omitempty"`
}

// GetModelInfo fetches model metadata from the upstream API. Results are
// cached and concurrent fetches for the same model are collapsed into one
// upstream call.
func (c *Client) GetModelInfo(ctx context.Context, modelID string) (*llm.ModelInfo, error) {
	if info, ok := c.cachedModelInfo(modelID); ok {
		return info, nil
	}

	v, err, _ := c.modelGroup.Do(modelID, func() (any, error) {
		info, err := c.fetchModelInfo(ctx, modelID)
		if err != nil {
			return nil, err
		}
		c.cacheMu.Lock()
		c.modelCache[modelID] = modelInfoEntry{info: info, fetchedAt: time.Now()}
		c.cacheMu.Unlock()
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	info, _ := v.(*llm.ModelInfo)
	return info, nil
}

func (c *Client) cachedModelInfo(modelID string) (*llm.ModelInfo, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	entry, ok := c.modelCache[modelID]
	if !ok || time.Since(entry.fetchedAt) > modelInfoTTL {
		return nil, false
	}
	return entry.info, true
}

func (c *Client) fetchModelInfo(ctx context.Context, modelID string) (*llm.ModelInfo, error) {
	start := time.Now()

	var resp ModelCatalogResponse
	request := c.httpClient.R().
		SetContext(ctx).
		SetResult(&resp)

	if token := llm.AuthTokenFromContext(ctx); token != "" {
		// Token already includes "Bearer " prefix from the original Authorization header
		request.SetHeader("Authorization", token)
	}

	httpResp, err := request.Get(fmt.Sprintf("/v1/models/%s", modelID))
	if err != nil {
		metrics.RecordUpstreamRequest("model_info", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("fetch model info: %w", err)
	}

	if httpResp.IsError() {
		metrics.RecordUpstreamRequest("model_info", strconv.Itoa(httpResp.StatusCode()), time.Since(start).Seconds())
		// Unknown model is not an error, callers fall back to defaults
		if httpResp.StatusCode() == 404 {
			return nil, nil
		}
		return nil, orcherrors.FromHTTPStatus(httpResp.StatusCode(), httpResp.String())
	}

	metrics.RecordUpstreamRequest("model_info", "ok", time.Since(start).Seconds())
	return &llm.ModelInfo{
		ID:            resp.ID,
		ContextLength: resp.ContextLength,
		MaxTokens:     resp.MaxTokens,
	}, nil
}

// Ensure interface compliance.
var _ llm.ModelInfoProvider = (*Client)(nil)
