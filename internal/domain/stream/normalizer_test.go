package stream_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"relay-server/services/response-orchestrator/internal/domain/llm"
	"relay-server/services/response-orchestrator/internal/domain/stream"
)

func decodeEvent(t *testing.T, raw string) *llm.StreamEvent {
	t.Helper()
	var event llm.StreamEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	return &event
}

func TestNormalize_TextDelta(t *testing.T) {
	event := decodeEvent(t, `{"type":"text-delta","delta":"Hello "}`)

	chunk, ok := stream.Normalize(event)
	if !ok {
		t.Fatal("Normalize() dropped a text-delta event")
	}
	if chunk.Type != stream.ChunkText {
		t.Errorf("chunk.Type = %v, want %v", chunk.Type, stream.ChunkText)
	}
	if chunk.Data != "Hello " {
		t.Errorf("chunk.Data = %v, want Hello ", chunk.Data)
	}
}

func TestNormalize_ResponseIDShapes(t *testing.T) {
	// The same id arrives as a bare string, as an id field, or nested in an
	// object depending on the provider version. All three must normalize to
	// the identical canonical chunk.
	shapes := []struct {
		name string
		raw  string
	}{
		{"string data", `{"type":"data-responseId","data":"resp_abc"}`},
		{"id field", `{"type":"data-responseId","id":"resp_abc"}`},
		{"nested object", `{"type":"data-responseId","data":{"responseId":"resp_abc"}}`},
	}

	want := stream.ResponseID("resp_abc")
	for _, tt := range shapes {
		t.Run(tt.name, func(t *testing.T) {
			chunk, ok := stream.Normalize(decodeEvent(t, tt.raw))
			if !ok {
				t.Fatal("Normalize() dropped a response id event")
			}
			if !reflect.DeepEqual(chunk, want) {
				t.Errorf("Normalize() = %+v, want %+v", chunk, want)
			}
		})
	}
}

func TestNormalize_ResponseIDCanonicalForm(t *testing.T) {
	chunk, ok := stream.Normalize(decodeEvent(t, `{"type":"data-responseId","id":"resp_42"}`))
	if !ok {
		t.Fatal("Normalize() dropped a response id event")
	}

	data, err := json.Marshal(chunk.Data)
	if err != nil {
		t.Fatalf("marshal chunk data: %v", err)
	}
	want := `{"type":"responses","data":{"responseId":"resp_42"}}`
	if string(data) != want {
		t.Errorf("chunk data = %s, want %s", data, want)
	}
}

func TestNormalize_ResponseIDSourceOrder(t *testing.T) {
	// String data outranks the id field, the id field outranks the nested
	// object.
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string data wins over id", `{"type":"data-responseId","data":"resp_data","id":"resp_id"}`, "resp_data"},
		{"id wins over nested object", `{"type":"data-responseId","id":"resp_id","data":{"responseId":"resp_nested"}}`, "resp_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk, ok := stream.Normalize(decodeEvent(t, tt.raw))
			if !ok {
				t.Fatal("Normalize() dropped a response id event")
			}
			if !reflect.DeepEqual(chunk, stream.ResponseID(tt.want)) {
				t.Errorf("Normalize() = %+v, want id %q", chunk, tt.want)
			}
		})
	}
}

func TestNormalize_ResponseIDWithoutID(t *testing.T) {
	chunk, ok := stream.Normalize(decodeEvent(t, `{"type":"data-responseId"}`))
	if ok {
		t.Errorf("Normalize() = %+v, want event without a resolvable id dropped", chunk)
	}
}

func TestNormalize_GenericDataEvent(t *testing.T) {
	event := decodeEvent(t, `{"type":"data-sources","data":{"urls":["https://example.com"]}}`)

	chunk, ok := stream.Normalize(event)
	if !ok {
		t.Fatal("Normalize() dropped a data event")
	}
	if chunk.Type != stream.ChunkAnnotation {
		t.Errorf("chunk.Type = %v, want %v", chunk.Type, stream.ChunkAnnotation)
	}

	envelope, isEnvelope := chunk.Data.(stream.AnnotationData)
	if !isEnvelope {
		t.Fatalf("chunk.Data = %T, want AnnotationData", chunk.Data)
	}
	if envelope.Type != "sources" {
		t.Errorf("envelope.Type = %v, want sources", envelope.Type)
	}

	payload, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("marshal envelope payload: %v", err)
	}
	if string(payload) != `{"urls":["https://example.com"]}` {
		t.Errorf("envelope payload = %s, want original payload preserved", payload)
	}
}

func TestNormalize_DropsUnknownEvents(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown tag", `{"type":"reasoning-delta","delta":"hmm"}`},
		{"empty tag", `{"type":""}`},
		{"future lifecycle event", `{"type":"response.completed"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if chunk, ok := stream.Normalize(decodeEvent(t, tt.raw)); ok {
				t.Errorf("Normalize() = %+v, want event dropped", chunk)
			}
		})
	}

	if chunk, ok := stream.Normalize(nil); ok {
		t.Errorf("Normalize(nil) = %+v, want dropped", chunk)
	}
}

func TestChunkConstructors(t *testing.T) {
	if done := stream.Done(); done.Type != stream.ChunkDone || done.Data != nil {
		t.Errorf("Done() = %+v, want bare done chunk", done)
	}

	errChunk := stream.Error("MID_STREAM_FAILURE", "connection reset")
	if errChunk.Type != stream.ChunkError {
		t.Errorf("Error().Type = %v, want %v", errChunk.Type, stream.ChunkError)
	}
	data, isErrorData := errChunk.Data.(stream.ErrorData)
	if !isErrorData {
		t.Fatalf("Error().Data = %T, want ErrorData", errChunk.Data)
	}
	if data.Code != "MID_STREAM_FAILURE" || data.Message != "connection reset" {
		t.Errorf("Error().Data = %+v, want code and message preserved", data)
	}
}
