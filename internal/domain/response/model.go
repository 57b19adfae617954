package response

import (
	"context"
	"time"

	"relay-server/services/response-orchestrator/internal/domain/extract"
	"relay-server/services/response-orchestrator/internal/domain/llm"
	"relay-server/services/response-orchestrator/internal/domain/stream"
)

// Input item types accepted by a request.
const (
	InputTypeText  = "text"
	InputTypeImage = "image"
	InputTypeAudio = "audio"
)

// Request is an immutable value describing one call against the upstream
// responses API. Input is either a plain string (shorthand for a single
// text item) or an ordered []InputItem; item order defines the order sent
// upstream.
type Request struct {
	Model              string
	Input              any
	Instructions       string
	Tools              []llm.ToolDeclaration
	PreviousResponseID string
	Store              bool
	Metadata           map[string]any
}

// InputItem is one multimodal entry of a request's input sequence. Content
// carries text for text items and base64 or data-URI payloads for media.
type InputItem struct {
	Type     string         `json:"type"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CompletedResponse is the outcome of a successful non-streaming call.
// Output keeps the raw wire array so callers can run their own extraction
// passes on top of the defaults.
type CompletedResponse struct {
	ID          string               `json:"id"`
	Model       string               `json:"model,omitempty"`
	OutputText  string               `json:"output_text"`
	Output      []llm.OutputItem     `json:"output"`
	Usage       *llm.Usage           `json:"usage,omitempty"`
	Annotations []extract.Annotation `json:"annotations"`
	ToolResults []extract.ToolResult `json:"tool_results"`
	CreatedAt   time.Time            `json:"created_at"`
}

// ContentLength returns the length of the concatenated output text, the
// proxy measure used for conversation token accounting.
func (r *CompletedResponse) ContentLength() int {
	if r == nil {
		return 0
	}
	return len(r.OutputText)
}

// Service exposes the response orchestration operations.
type Service interface {
	CreateResponse(ctx context.Context, req Request) (*CompletedResponse, error)
	StreamResponse(ctx context.Context, req Request) (<-chan stream.Chunk, error)
}
