// Package stream normalizes heterogeneous provider streaming events into a
// small closed set of chunk kinds consumed by downstream callers.
package stream

// ChunkType enumerates the normalized chunk kinds.
type ChunkType string

const (
	ChunkText       ChunkType = "text"
	ChunkAnnotation ChunkType = "annotation"
	ChunkDone       ChunkType = "done"
	ChunkError      ChunkType = "error"
)

// Chunk is the normalized unit yielded to stream consumers. Within one call
// chunks arrive in transport order; the sequence always ends with a done or
// an error chunk.
type Chunk struct {
	Type ChunkType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// AnnotationData is the envelope carried by annotation chunks. Type names
// the annotation family, Data its family-specific payload.
type AnnotationData struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ResponseIDData is the canonical payload for response id annotations,
// emitted in the same nested form no matter which wire shape carried the id.
type ResponseIDData struct {
	ResponseID string `json:"responseId"`
}

// ErrorData describes a mid-stream failure surfaced as an error chunk.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Text builds a text chunk from a delta string.
func Text(delta string) Chunk {
	return Chunk{Type: ChunkText, Data: delta}
}

// ResponseID builds the canonical annotation chunk carrying a response id.
func ResponseID(id string) Chunk {
	return Chunk{
		Type: ChunkAnnotation,
		Data: AnnotationData{
			Type: "responses",
			Data: ResponseIDData{ResponseID: id},
		},
	}
}

// Done builds the terminal success chunk.
func Done() Chunk {
	return Chunk{Type: ChunkDone}
}

// Error builds the terminal failure chunk.
func Error(code, message string) Chunk {
	return Chunk{Type: ChunkError, Data: ErrorData{Code: code, Message: message}}
}
