package llmprovider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"

	orcherrors "relay-server/services/response-orchestrator/internal/domain/errors"
	"relay-server/services/response-orchestrator/internal/domain/llm"
	"relay-server/services/response-orchestrator/internal/infrastructure/metrics"
	"relay-server/services/response-orchestrator/internal/infrastructure/observability"
)

const (
	userAgent      = "relay-response-orchestrator/1.0"
	defaultTimeout = 75 * time.Second
)

// Client implements the llm.Provider interface over the upstream
// /v1/responses surface.
type Client struct {
	httpClient   *resty.Client
	streamClient *http.Client
	baseURL      string

	cacheMu    sync.RWMutex
	modelCache map[string]modelInfoEntry
	modelGroup singleflight.Group
}

// NewClient creates a Resty-backed client. The timeout bounds non-streaming
// calls and stream establishment; an open stream is bounded only by its
// request context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", userAgent).
			SetTimeout(timeout),
		streamClient: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: timeout},
		},
		baseURL:    strings.TrimRight(baseURL, "/"),
		modelCache: make(map[string]modelInfoEntry),
	}
}

// CreateResponse calls the upstream /v1/responses endpoint and waits for the
// completed response.
func (c *Client) CreateResponse(ctx context.Context, payload llm.Payload) (*llm.ResponseWire, error) {
	start := time.Now()
	ctx, span := observability.StartUpstreamSpan(ctx, "create_response")
	defer span.End()

	var wire llm.ResponseWire
	request := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&wire)

	if token := llm.AuthTokenFromContext(ctx); token != "" {
		request.SetHeader("Authorization", token)
	}

	resp, err := request.Post("/v1/responses")
	if err != nil {
		metrics.RecordUpstreamRequest("create_response", "error", time.Since(start).Seconds())
		observability.RecordError(span, err)
		return nil, err
	}

	if resp.IsError() {
		statusErr := orcherrors.FromHTTPStatus(resp.StatusCode(), resp.String())
		metrics.RecordUpstreamRequest("create_response", strconv.Itoa(resp.StatusCode()), time.Since(start).Seconds())
		observability.RecordError(span, statusErr)
		return nil, statusErr
	}

	metrics.RecordUpstreamRequest("create_response", "ok", time.Since(start).Seconds())
	return &wire, nil
}

// StreamResponse calls /v1/responses with streaming enabled and returns the
// open event stream. The span covers establishment only; each retry attempt
// gets a fresh one.
func (c *Client) StreamResponse(ctx context.Context, payload llm.Payload) (llm.Stream, error) {
	payload.Stream = true
	start := time.Now()
	ctx, span := observability.StartUpstreamSpan(ctx, "stream_response")
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", bytes.NewReader(body))
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("User-Agent", userAgent)
	if token := llm.AuthTokenFromContext(ctx); token != "" {
		httpReq.Header.Set("Authorization", token)
	}

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		metrics.RecordUpstreamRequest("stream_response", "error", time.Since(start).Seconds())
		observability.RecordError(span, err)
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		statusErr := orcherrors.FromHTTPStatus(resp.StatusCode, string(respBody))
		metrics.RecordUpstreamRequest("stream_response", strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
		observability.RecordError(span, statusErr)
		return nil, statusErr
	}

	metrics.RecordUpstreamRequest("stream_response", "ok", time.Since(start).Seconds())
	return &sseStream{
		resp:   resp,
		reader: bufio.NewReader(resp.Body),
	}, nil
}

// Ensure interface compliance.
var _ llm.Provider = (*Client)(nil)

// sseStream implements llm.Stream backed by http.Response body with SSE parsing.
type sseStream struct {
	resp   *http.Response
	reader *bufio.Reader
}

func (s *sseStream) Recv() (*llm.StreamEvent, error) {
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read line: %w", err)
		}

		line = strings.TrimSpace(line)

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		// Look for data: prefix
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")

		// Check for stream termination
		if data == "[DONE]" {
			return nil, io.EOF
		}

		// Parse the JSON event
		var event llm.StreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			// Skip malformed chunks
			continue
		}

		return &event, nil
	}
}

func (s *sseStream) Close() error {
	if s.resp != nil && s.resp.Body != nil {
		return s.resp.Body.Close()
	}
	return nil
}
