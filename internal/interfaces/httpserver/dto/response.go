package dto

import (
	"relay-server/services/response-orchestrator/internal/domain/extract"
	"relay-server/services/response-orchestrator/internal/domain/llm"
	"relay-server/services/response-orchestrator/internal/domain/response"
)

// ResponsePayload is returned to clients for completed responses.
type ResponsePayload struct {
	ID          string               `json:"id"`
	Object      string               `json:"object"`
	Created     int64                `json:"created"`
	Model       string               `json:"model,omitempty"`
	OutputText  string               `json:"output_text"`
	Output      []llm.OutputItem     `json:"output"`
	Usage       *llm.Usage           `json:"usage,omitempty"`
	Annotations []extract.Annotation `json:"annotations"`
	ToolResults []extract.ToolResult `json:"tool_results"`
}

// FromCompleted maps the domain response to the HTTP payload.
func FromCompleted(r *response.CompletedResponse) ResponsePayload {
	return ResponsePayload{
		ID:          r.ID,
		Object:      "response",
		Created:     r.CreatedAt.Unix(),
		Model:       r.Model,
		OutputText:  r.OutputText,
		Output:      r.Output,
		Usage:       r.Usage,
		Annotations: r.Annotations,
		ToolResults: r.ToolResults,
	}
}

// DeletedPayload acknowledges a deletion.
type DeletedPayload struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}
