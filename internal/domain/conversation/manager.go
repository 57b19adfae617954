package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	orcherrors "relay-server/services/response-orchestrator/internal/domain/errors"
	"relay-server/services/response-orchestrator/internal/domain/response"
	"relay-server/services/response-orchestrator/internal/domain/status"
)

// Manager owns conversation state: chain pointer, turn count, token
// accounting and optimization metadata. Persistence goes through the
// pluggable store; without one an in-memory store scoped to the process
// lifetime is used.
type Manager struct {
	store     Store
	optimizer ContextOptimizer
	counter   TokenCounter
	log       zerolog.Logger
}

// NewManager wires dependencies. A nil store falls back to the in-memory
// store, a nil counter to the content-length proxy. The optimizer may stay
// nil; optimization calls then fail with OptimizerUnavailable.
func NewManager(store Store, optimizer ContextOptimizer, counter TokenCounter, log zerolog.Logger) *Manager {
	if store == nil {
		store = NewMemoryStore(0)
	}
	if counter == nil {
		counter = DefaultTokenCounter
	}
	return &Manager{
		store:     store,
		optimizer: optimizer,
		counter:   counter,
		log:       log.With().Str("component", "conversation-manager").Logger(),
	}
}

// CreateConversation allocates a new conversation with zero turns and no
// chain pointer, and persists it.
func (m *Manager) CreateConversation(ctx context.Context, userID string) (*State, error) {
	now := time.Now()
	state := &State{
		ID:     newConversationID(),
		Object: "conversation",
		UserID: userID,
		Status: status.StatusCreated,
		ContextMetadata: ContextMetadata{
			LastActivity: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}

	if err := m.store.SaveConversation(ctx, state); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}

	m.log.Debug().Str("conversation_id", state.ID).Str("user_id", userID).Msg("conversation created")
	return state, nil
}

// ContinueConversation builds a follow-up request chained to the given
// response id, with upstream persistence enabled. Pure; persisted state is
// not touched and the caller still picks the model.
func (m *Manager) ContinueConversation(previousResponseID, input string) response.Request {
	return response.Request{
		Input:              input,
		PreviousResponseID: previousResponseID,
		Store:              true,
	}
}

// GetConversationState returns the conversation, or (nil, nil) when the id
// is unknown.
func (m *Manager) GetConversationState(ctx context.Context, id string) (*State, error) {
	state, err := m.store.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return state, nil
}

// SaveConversationState persists the state, bumping UpdatedAt and Version.
func (m *Manager) SaveConversationState(ctx context.Context, state *State) error {
	if state == nil || state.ID == "" {
		return orcherrors.NewInvalidRequest("conversation state must carry an id")
	}

	state.UpdatedAt = time.Now()
	state.Version++
	if err := m.store.SaveConversation(ctx, state); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// UpdateConversationWithResponse advances the conversation after a
// completed turn: chain pointer, turn count, activity timestamp and the
// token proxy accumulator.
func (m *Manager) UpdateConversationWithResponse(ctx context.Context, id string, resp *response.CompletedResponse) (*State, error) {
	if resp == nil || resp.ID == "" {
		return nil, orcherrors.NewInvalidRequest("completed response with an id is required")
	}

	state, err := m.store.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if state == nil {
		return nil, orcherrors.NewConversationNotFound(id)
	}

	state.PreviousResponseID = resp.ID
	state.ContextMetadata.TurnCount++
	state.ContextMetadata.LastActivity = time.Now()
	state.ContextMetadata.TotalTokens += m.counter(resp.OutputText)
	m.advance(state, status.StatusActive)

	if err := m.SaveConversationState(ctx, state); err != nil {
		return nil, err
	}

	m.log.Debug().
		Str("conversation_id", state.ID).
		Str("response_id", resp.ID).
		Int("turn_count", state.ContextMetadata.TurnCount).
		Msg("conversation advanced")
	return state, nil
}

// OptimizeConversationContext delegates to the configured optimizer. When
// the optimizer reports truncation, the relevance score is persisted onto
// the conversation's context metadata.
func (m *Manager) OptimizeConversationContext(ctx context.Context, id string, input OptimizationInput) (*OptimizationResult, error) {
	if m.optimizer == nil {
		return nil, orcherrors.NewOptimizerUnavailable()
	}

	state, err := m.store.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if state == nil {
		return nil, orcherrors.NewConversationNotFound(id)
	}

	input.ConversationID = id
	result, err := m.optimizer.OptimizeContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("optimize context: %w", err)
	}

	if result.ShouldTruncate {
		score := result.RelevanceScore
		state.ContextMetadata.RelevanceScore = &score
		m.advance(state, status.StatusOptimized)
		if err := m.SaveConversationState(ctx, state); err != nil {
			return nil, err
		}
		m.log.Info().
			Str("conversation_id", id).
			Float64("relevance_score", score).
			Msg("conversation context optimized")
	}

	return result, nil
}

// DeleteConversation removes the conversation from the store.
func (m *Manager) DeleteConversation(ctx context.Context, id string) error {
	state, err := m.store.GetConversation(ctx, id)
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}
	if state == nil {
		return orcherrors.NewConversationNotFound(id)
	}

	if err := m.store.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// CleanupExpiredConversations removes conversations idle past the store's
// retention window and returns how many were removed.
func (m *Manager) CleanupExpiredConversations(ctx context.Context) (int, error) {
	removed, err := m.store.CleanupExpiredConversations(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleanup conversations: %w", err)
	}
	if removed > 0 {
		m.log.Info().Int("removed", removed).Msg("expired conversations cleaned up")
	}
	return removed, nil
}

func (m *Manager) advance(state *State, next status.Status) {
	advanced, err := state.Status.TransitionTo(next)
	if err != nil {
		m.log.Warn().Err(err).Str("conversation_id", state.ID).Msg("invalid status transition")
		return
	}
	state.Status = advanced
}

func newConversationID() string {
	return fmt.Sprintf("conv_%s", uuid.NewString())
}
