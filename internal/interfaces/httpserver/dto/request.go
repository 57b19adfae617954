package dto

// ToolDeclaration enables one tool family in the HTTP contract. Config is
// passed through to the upstream provider unchanged.
type ToolDeclaration struct {
	Type   string         `json:"type" binding:"required"`
	Config map[string]any `json:"config,omitempty"`
}

// CreateResponseRequest models POST /v1/responses input. Input is either a
// plain string or an array of input items; the handler resolves the shape.
type CreateResponseRequest struct {
	Model              string            `json:"model" binding:"required"`
	Input              any               `json:"input" binding:"required"`
	Instructions       string            `json:"instructions,omitempty"`
	Tools              []ToolDeclaration `json:"tools,omitempty"`
	Stream             *bool             `json:"stream,omitempty"`
	Store              *bool             `json:"store,omitempty"`
	PreviousResponseID string            `json:"previous_response_id,omitempty"`
	Conversation       string            `json:"conversation,omitempty"`
	Metadata           map[string]any    `json:"metadata,omitempty"`
	User               string            `json:"user,omitempty"`
}

// CreateConversationRequest models POST /v1/conversations input.
type CreateConversationRequest struct {
	User     string            `json:"user,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ContextMessage is one entry of the context submitted for optimization.
type ContextMessage struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content"`
}

// OptimizeContextRequest models POST /v1/conversations/:id/optimize input.
type OptimizeContextRequest struct {
	Model    string           `json:"model" binding:"required"`
	Messages []ContextMessage `json:"messages" binding:"required"`
}
