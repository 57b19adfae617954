package conversation

import "context"

// Store is the pluggable persistence provider for conversation state. A
// missing conversation is reported as (nil, nil), not an error; the manager
// decides when absence is a failure.
type Store interface {
	SaveConversation(ctx context.Context, state *State) error
	GetConversation(ctx context.Context, id string) (*State, error)
	DeleteConversation(ctx context.Context, id string) error
	CleanupExpiredConversations(ctx context.Context) (int, error)
}
