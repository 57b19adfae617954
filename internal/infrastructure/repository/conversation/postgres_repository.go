package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	domain "relay-server/services/response-orchestrator/internal/domain/conversation"
	"relay-server/services/response-orchestrator/internal/infrastructure/database/entities"
	"relay-server/services/response-orchestrator/internal/infrastructure/metrics"
)

// PostgresRepository persists conversation state in PostgreSQL. It is the
// durable alternative to the in-memory store; the manager treats both the
// same through the Store interface.
type PostgresRepository struct {
	db  *gorm.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewPostgresRepository builds a conversation repository. A non-positive ttl
// disables expiry cleanup.
func NewPostgresRepository(db *gorm.DB, ttl time.Duration, log zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:  db,
		ttl: ttl,
		log: log.With().Str("component", "conversation-repository").Logger(),
	}
}

var _ domain.Store = (*PostgresRepository)(nil)

// SaveConversation inserts or updates the row keyed by the public
// conversation ID. The row is locked for the duration of the transaction so
// concurrent turn updates serialize instead of clobbering each other.
func (r *PostgresRepository) SaveConversation(ctx context.Context, state *domain.State) error {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("save_conversation", time.Since(start).Seconds())
	}()

	entity, err := entities.NewSchemaConversation(state)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.Conversation
		if err := tx.Raw(
			"SELECT * FROM conversations WHERE public_id = ? FOR UPDATE",
			state.ID,
		).Scan(&existing).Error; err != nil {
			return fmt.Errorf("lock conversation: %w", err)
		}

		if existing.ID == 0 {
			if err := tx.Create(entity).Error; err != nil {
				return fmt.Errorf("insert conversation: %w", err)
			}
			return nil
		}

		updates := map[string]any{
			"previous_response_id": entity.PreviousResponseID,
			"status":               entity.Status,
			"turn_count":           entity.TurnCount,
			"last_activity":        entity.LastActivity,
			"total_tokens":         entity.TotalTokens,
			"relevance_score":      entity.RelevanceScore,
			"metadata":             entity.Metadata,
			"version":              entity.Version,
			"updated_at":           entity.UpdatedAt,
		}
		if err := tx.Model(&entities.Conversation{}).
			Where("id = ?", existing.ID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save conversation %s: %w", state.ID, err)
	}

	return nil
}

// GetConversation fetches a conversation; a missing row is (nil, nil).
func (r *PostgresRepository) GetConversation(ctx context.Context, id string) (*domain.State, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("get_conversation", time.Since(start).Seconds())
	}()

	var entity entities.Conversation
	if err := r.db.WithContext(ctx).
		Where("public_id = ?", id).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch conversation %s: %w", id, err)
	}

	state, err := entity.EtoD()
	if err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return state, nil
}

// DeleteConversation removes the row. Deleting an absent conversation is a
// no-op; existence checks belong to the manager.
func (r *PostgresRepository) DeleteConversation(ctx context.Context, id string) error {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("delete_conversation", time.Since(start).Seconds())
	}()

	if err := r.db.WithContext(ctx).
		Where("public_id = ?", id).
		Delete(&entities.Conversation{}).Error; err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	return nil
}

// CleanupExpiredConversations deletes rows whose last activity predates the
// retention window and reports how many were removed.
func (r *PostgresRepository) CleanupExpiredConversations(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("cleanup_expired", time.Since(start).Seconds())
	}()

	if r.ttl <= 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-r.ttl)
	result := r.db.WithContext(ctx).
		Where("last_activity < ?", cutoff).
		Delete(&entities.Conversation{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup expired conversations: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		r.log.Info().
			Int64("removed", result.RowsAffected).
			Time("cutoff", cutoff).
			Msg("expired conversations removed")
	}
	return int(result.RowsAffected), nil
}
