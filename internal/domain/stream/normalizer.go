package stream

import (
	"encoding/json"
	"strings"

	"relay-server/services/response-orchestrator/internal/domain/llm"
)

const (
	eventTextDelta  = "text-delta"
	eventResponseID = "data-responseId"
	dataEventPrefix = "data-"
)

// responseIDExtractors resolve the response id from the shapes different
// provider versions emit. Tried in order, first match wins.
var responseIDExtractors = []func(*llm.StreamEvent) (string, bool){
	responseIDFromStringData,
	responseIDFromIDField,
	responseIDFromNestedData,
}

// Normalize maps one provider event onto at most one chunk. The second
// return is false when the event kind is unrecognized and dropped, keeping
// the stream forward compatible with upstream additions.
func Normalize(event *llm.StreamEvent) (Chunk, bool) {
	if event == nil {
		return Chunk{}, false
	}

	switch {
	case event.Type == eventTextDelta:
		return Text(event.Delta), true
	case event.Type == eventResponseID:
		for _, extract := range responseIDExtractors {
			if id, ok := extract(event); ok {
				return ResponseID(id), true
			}
		}
		return Chunk{}, false
	case strings.HasPrefix(event.Type, dataEventPrefix):
		return genericAnnotation(event), true
	default:
		return Chunk{}, false
	}
}

// genericAnnotation wraps an unrecognized data-* event without losing its
// name or payload.
func genericAnnotation(event *llm.StreamEvent) Chunk {
	data := AnnotationData{Type: strings.TrimPrefix(event.Type, dataEventPrefix)}
	if len(event.Data) > 0 {
		data.Data = json.RawMessage(event.Data)
	}
	return Chunk{Type: ChunkAnnotation, Data: data}
}

func responseIDFromStringData(event *llm.StreamEvent) (string, bool) {
	if len(event.Data) == 0 {
		return "", false
	}
	var id string
	if err := json.Unmarshal(event.Data, &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}

func responseIDFromIDField(event *llm.StreamEvent) (string, bool) {
	if event.ID == "" {
		return "", false
	}
	return event.ID, true
}

func responseIDFromNestedData(event *llm.StreamEvent) (string, bool) {
	if len(event.Data) == 0 {
		return "", false
	}
	var nested struct {
		ResponseID string `json:"responseId"`
	}
	if err := json.Unmarshal(event.Data, &nested); err != nil || nested.ResponseID == "" {
		return "", false
	}
	return nested.ResponseID, true
}
