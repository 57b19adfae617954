package conversation

import (
	"time"

	"relay-server/services/response-orchestrator/internal/domain/status"
)

// State is the per-conversation record owned by the manager. Version is an
// optimistic-concurrency marker, incremented on every persisted mutation;
// writes are last-write-wins beyond the counter.
type State struct {
	ID                 string            `json:"id"`
	Object             string            `json:"object"`
	UserID             string            `json:"user_id"`
	PreviousResponseID string            `json:"previous_response_id,omitempty"`
	Status             status.Status     `json:"status"`
	ContextMetadata    ContextMetadata   `json:"context_metadata"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	Version            int               `json:"version"`
}

// ContextMetadata tracks the accounting advanced after every completed turn.
// TotalTokens is a proxy measure accumulated from response content length;
// RelevanceScore is set only after a context optimization truncated.
type ContextMetadata struct {
	TurnCount      int       `json:"turn_count"`
	LastActivity   time.Time `json:"last_activity"`
	TotalTokens    int       `json:"total_tokens"`
	RelevanceScore *float64  `json:"relevance_score,omitempty"`
}

// Clone returns a deep copy so store snapshots never alias caller state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	if s.ContextMetadata.RelevanceScore != nil {
		score := *s.ContextMetadata.RelevanceScore
		out.ContextMetadata.RelevanceScore = &score
	}
	if s.Metadata != nil {
		out.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// TokenCounter estimates the token cost of response content for turn
// accounting. The default counts bytes, a deliberate proxy; wire an
// encoder-backed counter for real token counts.
type TokenCounter func(content string) int

// DefaultTokenCounter is the content-length proxy measure.
func DefaultTokenCounter(content string) int {
	return len(content)
}
