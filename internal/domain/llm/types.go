package llm

import (
	"context"
	"encoding/json"
)

// Provider defines the contract for calling the upstream /v1/responses endpoint.
type Provider interface {
	CreateResponse(reqCtx context.Context, payload Payload) (*ResponseWire, error)
	StreamResponse(reqCtx context.Context, payload Payload) (Stream, error)
}

// Stream abstracts an SSE or chunked response from the upstream API.
type Stream interface {
	Recv() (*StreamEvent, error)
	Close() error
}

// Payload mirrors the stateful responses request shape accepted upstream.
// It is produced by the request builder, never hand-constructed by callers.
type Payload struct {
	Model              string            `json:"model"`
	Input              []PayloadItem     `json:"input"`
	Instructions       string            `json:"instructions,omitempty"`
	Tools              []ToolDeclaration `json:"tools,omitempty"`
	PreviousResponseID string            `json:"previous_response_id,omitempty"`
	Store              bool              `json:"store"`
	Stream             bool              `json:"stream,omitempty"`
	Metadata           map[string]any    `json:"metadata,omitempty"`
}

// PayloadItem is a single entry of the input array. Flat discriminated
// union: Type determines which fields are relevant.
type PayloadItem struct {
	Type     string         `json:"type"`
	Role     string         `json:"role,omitempty"`
	Text     string         `json:"text,omitempty"`
	Image    *MediaPayload  `json:"image,omitempty"`
	Audio    *MediaPayload  `json:"audio,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MediaPayload carries binary attachment content, base64 or data-URI encoded.
type MediaPayload struct {
	Data     string         `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToolDeclaration enables one tool family for a call. Config is passed
// through to the provider unchanged.
type ToolDeclaration struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// ResponseWire captures the completed (non-streaming) response payload.
type ResponseWire struct {
	ID       string         `json:"id"`
	Object   string         `json:"object,omitempty"`
	Model    string         `json:"model,omitempty"`
	Status   string         `json:"status,omitempty"`
	Output   []OutputItem   `json:"output"`
	Usage    *Usage         `json:"usage,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// OutputItem is a single entry of the completed output array. Flat
// discriminated union: Type determines which fields are relevant.
type OutputItem struct {
	Type       string           `json:"type"`
	Text       string           `json:"text,omitempty"`
	Annotation map[string]any   `json:"annotation,omitempty"`
	ToolName   string           `json:"tool_name,omitempty"`
	Results    []map[string]any `json:"results,omitempty"`
}

// OutputItem type tags recognized by this client. Unknown tags pass
// through extraction untouched.
const (
	OutputTypeText       = "output_text"
	OutputTypeAnnotation = "annotation"
	OutputTypeToolResult = "tool_result"
)

// Usage contains token accounting metadata.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// StreamEvent is one tagged record from the provider's streaming channel.
// Data stays raw because data-* events carry the same field as a bare
// scalar or as a nested object depending on the provider version.
type StreamEvent struct {
	Type  string          `json:"type"`
	Delta string          `json:"delta,omitempty"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}
