package entities

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"relay-server/services/response-orchestrator/internal/domain/conversation"
	"relay-server/services/response-orchestrator/internal/domain/status"
)

// Conversation represents the database schema for conversation state.
// Context metadata is flattened into typed columns so cleanup and
// monitoring queries never parse JSON.
type Conversation struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PublicID           string         `gorm:"type:varchar(50);uniqueIndex;not null"`
	Object             string         `gorm:"type:varchar(50);not null;default:'conversation'"`
	UserID             string         `gorm:"type:varchar(64);index:idx_conversation_user_status;not null"`
	PreviousResponseID string         `gorm:"type:varchar(64)"`
	Status             status.Status  `gorm:"type:varchar(20);index:idx_conversation_user_status;not null;default:'created'"`
	TurnCount          int            `gorm:"not null;default:0"`
	LastActivity       time.Time      `gorm:"index;not null"`
	TotalTokens        int            `gorm:"not null;default:0"`
	RelevanceScore     *float64       `gorm:"type:double precision"`
	Metadata           datatypes.JSON `gorm:"type:jsonb"`
	Version            int            `gorm:"not null;default:1"`
}

// TableName specifies the table name for Conversation.
func (Conversation) TableName() string {
	return "conversations"
}

// EtoD converts the database entity to the domain model.
func (c *Conversation) EtoD() (*conversation.State, error) {
	var metadata map[string]string
	if len(c.Metadata) > 0 {
		if err := json.Unmarshal(c.Metadata, &metadata); err != nil {
			return nil, err
		}
	}

	return &conversation.State{
		ID:                 c.PublicID,
		Object:             c.Object,
		UserID:             c.UserID,
		PreviousResponseID: c.PreviousResponseID,
		Status:             c.Status,
		ContextMetadata: conversation.ContextMetadata{
			TurnCount:      c.TurnCount,
			LastActivity:   c.LastActivity,
			TotalTokens:    c.TotalTokens,
			RelevanceScore: c.RelevanceScore,
		},
		Metadata:  metadata,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Version:   c.Version,
	}, nil
}

// NewSchemaConversation creates a database entity from the domain model.
func NewSchemaConversation(state *conversation.State) (*Conversation, error) {
	metadata, err := marshalJSON(state.Metadata)
	if err != nil {
		return nil, err
	}

	return &Conversation{
		PublicID:           state.ID,
		Object:             state.Object,
		UserID:             state.UserID,
		PreviousResponseID: state.PreviousResponseID,
		Status:             state.Status,
		TurnCount:          state.ContextMetadata.TurnCount,
		LastActivity:       state.ContextMetadata.LastActivity,
		TotalTokens:        state.ContextMetadata.TotalTokens,
		RelevanceScore:     state.ContextMetadata.RelevanceScore,
		Metadata:           metadata,
		CreatedAt:          state.CreatedAt,
		UpdatedAt:          state.UpdatedAt,
		Version:            state.Version,
	}, nil
}

func marshalJSON(value any) (datatypes.JSON, error) {
	if value == nil {
		return datatypes.JSON([]byte("null")), nil
	}
	bytes, err := json.Marshal(value)
	return datatypes.JSON(bytes), err
}
