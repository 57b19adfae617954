package llmprovider_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	orcherrors "relay-server/services/response-orchestrator/internal/domain/errors"
	"relay-server/services/response-orchestrator/internal/domain/llm"
	"relay-server/services/response-orchestrator/internal/infrastructure/llmprovider"
)

func TestClient_CreateResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/responses" {
			t.Errorf("request = %s %s, want POST /v1/responses", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("User-Agent"); got != "relay-response-orchestrator/1.0" {
			t.Errorf("User-Agent = %q, want relay-response-orchestrator/1.0", got)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload["model"] != "gpt-4o" {
			t.Errorf("payload model = %v, want gpt-4o", payload["model"])
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "resp_123",
			"object": "response",
			"model": "gpt-4o",
			"status": "completed",
			"output": [{"type": "output_text", "text": "Hi there"}],
			"usage": {"input_tokens": 10, "output_tokens": 5, "total_tokens": 15}
		}`)
	}))
	defer server.Close()

	client := llmprovider.NewClient(server.URL, 5*time.Second)
	wire, err := client.CreateResponse(context.Background(), llm.Payload{
		Model: "gpt-4o",
		Input: []llm.PayloadItem{{Type: "message", Role: "user", Text: "hi"}},
	})
	if err != nil {
		t.Fatalf("CreateResponse() error = %v", err)
	}

	if wire.ID != "resp_123" {
		t.Errorf("wire.ID = %v, want resp_123", wire.ID)
	}
	if len(wire.Output) != 1 || wire.Output[0].Text != "Hi there" {
		t.Errorf("wire.Output = %+v, want one output_text item", wire.Output)
	}
	if wire.Usage == nil || wire.Usage.TotalTokens != 15 {
		t.Errorf("wire.Usage = %+v, want total 15", wire.Usage)
	}
}

func TestClient_CreateResponse_AuthPassthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q, want Bearer sk-test", got)
		}
		fmt.Fprint(w, `{"id": "resp_1"}`)
	}))
	defer server.Close()

	client := llmprovider.NewClient(server.URL, 5*time.Second)
	ctx := llm.ContextWithAuthToken(context.Background(), "Bearer sk-test")
	if _, err := client.CreateResponse(ctx, llm.Payload{Model: "gpt-4o"}); err != nil {
		t.Fatalf("CreateResponse() error = %v", err)
	}
}

func TestClient_CreateResponse_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantCode   string
	}{
		{"rate limited", http.StatusTooManyRequests, orcherrors.ErrCodeUpstreamRetryable},
		{"server error", http.StatusBadGateway, orcherrors.ErrCodeUpstreamRetryable},
		{"bad request", http.StatusBadRequest, orcherrors.ErrCodeUpstreamTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				fmt.Fprint(w, `{"error": "nope"}`)
			}))
			defer server.Close()

			client := llmprovider.NewClient(server.URL, 5*time.Second)
			_, err := client.CreateResponse(context.Background(), llm.Payload{Model: "gpt-4o"})
			if !orcherrors.HasCode(err, tt.wantCode) {
				t.Fatalf("CreateResponse() error = %v, want code %v", err, tt.wantCode)
			}

			var oe *orcherrors.OrchestrationError
			if !errors.As(err, &oe) || oe.HTTPStatus != tt.statusCode {
				t.Errorf("HTTPStatus = %v, want %d", err, tt.statusCode)
			}
		})
	}
}

func TestClient_StreamResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("Accept = %q, want text/event-stream", got)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload["stream"] != true {
			t.Errorf("payload stream = %v, want true", payload["stream"])
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"text-delta\",\"delta\":\"Hello \"}\n\n")
		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, "data: {broken\n\n")
		fmt.Fprint(w, "data: {\"type\":\"text-delta\",\"delta\":\"world\"}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"data-responseId\",\"data\":\"resp_9\"}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := llmprovider.NewClient(server.URL, 5*time.Second)
	stream, err := client.StreamResponse(context.Background(), llm.Payload{Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("StreamResponse() error = %v", err)
	}
	defer stream.Close()

	first, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if first.Type != "text-delta" || first.Delta != "Hello " {
		t.Errorf("first event = %+v, want text-delta Hello ", first)
	}

	second, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if second.Delta != "world" {
		t.Errorf("second event delta = %q, want world", second.Delta)
	}

	third, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if third.Type != "data-responseId" || string(third.Data) != `"resp_9"` {
		t.Errorf("third event = %+v, want data-responseId with raw id", third)
	}

	if _, err := stream.Recv(); err != io.EOF {
		t.Errorf("Recv() after [DONE] error = %v, want io.EOF", err)
	}
}

func TestClient_StreamResponse_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "overloaded")
	}))
	defer server.Close()

	client := llmprovider.NewClient(server.URL, 5*time.Second)
	_, err := client.StreamResponse(context.Background(), llm.Payload{Model: "gpt-4o"})
	if !orcherrors.HasCode(err, orcherrors.ErrCodeUpstreamRetryable) {
		t.Fatalf("StreamResponse() error = %v, want code %v", err, orcherrors.ErrCodeUpstreamRetryable)
	}
}

func TestClient_GetModelInfo(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/v1/models/gpt-4o":
			fmt.Fprint(w, `{"id": "gpt-4o", "context_length": 128000}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := llmprovider.NewClient(server.URL, 5*time.Second)

	info, err := client.GetModelInfo(context.Background(), "gpt-4o")
	if err != nil {
		t.Fatalf("GetModelInfo() error = %v", err)
	}
	if info == nil || info.ContextLength == nil || *info.ContextLength != 128000 {
		t.Fatalf("GetModelInfo() = %+v, want context_length 128000", info)
	}

	// Second lookup is served from cache.
	if _, err := client.GetModelInfo(context.Background(), "gpt-4o"); err != nil {
		t.Fatalf("GetModelInfo() error = %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestClient_GetModelInfo_Unknown(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := llmprovider.NewClient(server.URL, 5*time.Second)

	info, err := client.GetModelInfo(context.Background(), "made-up")
	if err != nil {
		t.Fatalf("GetModelInfo() error = %v", err)
	}
	if info != nil {
		t.Errorf("GetModelInfo() = %+v, want nil for unknown model", info)
	}

	// Unknown models are cached too; callers keep their defaults without
	// hammering upstream.
	if _, err := client.GetModelInfo(context.Background(), "made-up"); err != nil {
		t.Fatalf("GetModelInfo() error = %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}
