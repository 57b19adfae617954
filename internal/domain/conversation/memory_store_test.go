package conversation_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"relay-server/services/response-orchestrator/internal/domain/conversation"
	"relay-server/services/response-orchestrator/internal/domain/status"
)

func seedState(id string, lastActivity time.Time) *conversation.State {
	return &conversation.State{
		ID:     id,
		Object: "conversation",
		UserID: "user-1",
		Status: status.StatusActive,
		ContextMetadata: conversation.ContextMetadata{
			TurnCount:    1,
			LastActivity: lastActivity,
		},
		CreatedAt: lastActivity,
		UpdatedAt: lastActivity,
		Version:   1,
	}
}

func TestMemoryStore_SaveAndGet(t *testing.T) {
	store := conversation.NewMemoryStore(0)
	ctx := context.Background()

	if err := store.SaveConversation(ctx, seedState("conv_1", time.Now())); err != nil {
		t.Fatalf("SaveConversation() error = %v", err)
	}

	state, err := store.GetConversation(ctx, "conv_1")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if state == nil || state.ID != "conv_1" {
		t.Fatalf("GetConversation() = %+v, want conv_1", state)
	}
}

func TestMemoryStore_GetUnknown(t *testing.T) {
	store := conversation.NewMemoryStore(0)

	state, err := store.GetConversation(context.Background(), "conv_missing")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if state != nil {
		t.Errorf("GetConversation() = %+v, want nil", state)
	}
}

func TestMemoryStore_CloneIsolation(t *testing.T) {
	store := conversation.NewMemoryStore(0)
	ctx := context.Background()

	original := seedState("conv_1", time.Now())
	original.Metadata = map[string]string{"topic": "go"}
	if err := store.SaveConversation(ctx, original); err != nil {
		t.Fatalf("SaveConversation() error = %v", err)
	}

	// Mutating the caller's copy after save must not leak into the store.
	original.ContextMetadata.TurnCount = 99
	original.Metadata["topic"] = "rust"

	loaded, err := store.GetConversation(ctx, "conv_1")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if loaded.ContextMetadata.TurnCount != 1 {
		t.Errorf("TurnCount = %d, want 1 after caller mutation", loaded.ContextMetadata.TurnCount)
	}
	if loaded.Metadata["topic"] != "go" {
		t.Errorf("Metadata[topic] = %v, want go after caller mutation", loaded.Metadata["topic"])
	}

	// Mutating a loaded copy must not leak either.
	loaded.ContextMetadata.TurnCount = 50
	again, err := store.GetConversation(ctx, "conv_1")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if again.ContextMetadata.TurnCount != 1 {
		t.Errorf("TurnCount = %d, want 1 after reader mutation", again.ContextMetadata.TurnCount)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := conversation.NewMemoryStore(0)
	ctx := context.Background()

	if err := store.SaveConversation(ctx, seedState("conv_1", time.Now())); err != nil {
		t.Fatalf("SaveConversation() error = %v", err)
	}
	if err := store.DeleteConversation(ctx, "conv_1"); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}

	state, err := store.GetConversation(ctx, "conv_1")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if state != nil {
		t.Errorf("GetConversation() = %+v, want nil after delete", state)
	}
}

func TestMemoryStore_CleanupExpiredConversations(t *testing.T) {
	store := conversation.NewMemoryStore(time.Hour)
	ctx := context.Background()

	stale := seedState("conv_stale", time.Now().Add(-2*time.Hour))
	fresh := seedState("conv_fresh", time.Now())
	if err := store.SaveConversation(ctx, stale); err != nil {
		t.Fatalf("SaveConversation() error = %v", err)
	}
	if err := store.SaveConversation(ctx, fresh); err != nil {
		t.Fatalf("SaveConversation() error = %v", err)
	}

	removed, err := store.CleanupExpiredConversations(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredConversations() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if state, _ := store.GetConversation(ctx, "conv_stale"); state != nil {
		t.Errorf("stale conversation survived cleanup: %+v", state)
	}
	if state, _ := store.GetConversation(ctx, "conv_fresh"); state == nil {
		t.Error("fresh conversation was removed by cleanup")
	}
}

func TestMemoryStore_CleanupDisabledWithoutTTL(t *testing.T) {
	store := conversation.NewMemoryStore(0)
	ctx := context.Background()

	if err := store.SaveConversation(ctx, seedState("conv_old", time.Now().Add(-24*time.Hour))); err != nil {
		t.Fatalf("SaveConversation() error = %v", err)
	}

	removed, err := store.CleanupExpiredConversations(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredConversations() error = %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0 when retention is disabled", removed)
	}
	if state, _ := store.GetConversation(ctx, "conv_old"); state == nil {
		t.Error("conversation was removed with retention disabled")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := conversation.NewMemoryStore(0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("conv_%d", n)
			for j := 0; j < 50; j++ {
				state := seedState(id, time.Now())
				state.Version = j + 1
				if err := store.SaveConversation(ctx, state); err != nil {
					t.Errorf("SaveConversation() error = %v", err)
					return
				}
				if _, err := store.GetConversation(ctx, id); err != nil {
					t.Errorf("GetConversation() error = %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	if got := store.Len(); got != 8 {
		t.Errorf("Len() = %d, want 8", got)
	}
}
