package conversation

import "context"

// ContextOptimizer is the optional collaborator that decides whether a
// conversation's context should be truncated before the next turn.
type ContextOptimizer interface {
	OptimizeContext(ctx context.Context, input OptimizationInput) (*OptimizationResult, error)
}

// OptimizationInput carries the conversation context under evaluation.
type OptimizationInput struct {
	ConversationID string           `json:"conversation_id"`
	Model          string           `json:"model"`
	Messages       []ContextMessage `json:"messages"`
}

// ContextMessage is one entry of the conversation context being sized.
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OptimizationResult is the optimizer's verdict. RelevanceScore is
// persisted onto the conversation only when ShouldTruncate is set.
type OptimizationResult struct {
	ShouldTruncate bool    `json:"should_truncate"`
	RelevanceScore float64 `json:"relevance_score"`
	Summary        string  `json:"summary,omitempty"`
	TotalTokens    int     `json:"total_tokens,omitempty"`
}
