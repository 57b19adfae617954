package conversation_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"relay-server/services/response-orchestrator/internal/domain/conversation"
	orcherrors "relay-server/services/response-orchestrator/internal/domain/errors"
	"relay-server/services/response-orchestrator/internal/domain/response"
	"relay-server/services/response-orchestrator/internal/domain/status"
)

type fakeOptimizer struct {
	lastInput conversation.OptimizationInput
	result    *conversation.OptimizationResult
	err       error
}

func (o *fakeOptimizer) OptimizeContext(ctx context.Context, input conversation.OptimizationInput) (*conversation.OptimizationResult, error) {
	o.lastInput = input
	if o.err != nil {
		return nil, o.err
	}
	return o.result, nil
}

func newManager(optimizer conversation.ContextOptimizer) *conversation.Manager {
	return conversation.NewManager(nil, optimizer, nil, zerolog.Nop())
}

func TestManager_CreateConversation(t *testing.T) {
	manager := newManager(nil)

	state, err := manager.CreateConversation(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	if !strings.HasPrefix(state.ID, "conv_") {
		t.Errorf("state.ID = %v, want conv_ prefix", state.ID)
	}
	if state.UserID != "user-1" {
		t.Errorf("state.UserID = %v, want user-1", state.UserID)
	}
	if state.ContextMetadata.TurnCount != 0 {
		t.Errorf("TurnCount = %d, want 0", state.ContextMetadata.TurnCount)
	}
	if state.PreviousResponseID != "" {
		t.Errorf("PreviousResponseID = %v, want empty", state.PreviousResponseID)
	}
	if state.Status != status.StatusCreated {
		t.Errorf("Status = %v, want %v", state.Status, status.StatusCreated)
	}
	if state.Version != 1 {
		t.Errorf("Version = %d, want 1", state.Version)
	}

	loaded, err := manager.GetConversationState(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("GetConversationState() error = %v", err)
	}
	if loaded == nil || loaded.ID != state.ID {
		t.Errorf("GetConversationState() = %+v, want persisted state", loaded)
	}
}

func TestManager_ContinueConversation(t *testing.T) {
	manager := newManager(nil)

	req := manager.ContinueConversation("resp_prev", "And then what?")

	if req.PreviousResponseID != "resp_prev" {
		t.Errorf("req.PreviousResponseID = %v, want resp_prev", req.PreviousResponseID)
	}
	if !req.Store {
		t.Error("req.Store = false, want true")
	}
	if req.Input != "And then what?" {
		t.Errorf("req.Input = %v, want the input string", req.Input)
	}
}

func TestManager_GetConversationState_Unknown(t *testing.T) {
	manager := newManager(nil)

	state, err := manager.GetConversationState(context.Background(), "conv_missing")
	if err != nil {
		t.Fatalf("GetConversationState() error = %v", err)
	}
	if state != nil {
		t.Errorf("GetConversationState() = %+v, want nil for unknown id", state)
	}
}

func TestManager_SaveConversationState_BumpsVersion(t *testing.T) {
	manager := newManager(nil)
	state, err := manager.CreateConversation(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	before := state.UpdatedAt
	version := state.Version
	time.Sleep(time.Millisecond)

	if err := manager.SaveConversationState(context.Background(), state); err != nil {
		t.Fatalf("SaveConversationState() error = %v", err)
	}

	if state.Version != version+1 {
		t.Errorf("Version = %d, want %d", state.Version, version+1)
	}
	if !state.UpdatedAt.After(before) {
		t.Errorf("UpdatedAt = %v, want later than %v", state.UpdatedAt, before)
	}
}

func TestManager_SaveConversationState_RequiresID(t *testing.T) {
	manager := newManager(nil)

	err := manager.SaveConversationState(context.Background(), &conversation.State{})
	if !orcherrors.HasCode(err, orcherrors.ErrCodeInvalidRequest) {
		t.Errorf("SaveConversationState() error = %v, want code %v", err, orcherrors.ErrCodeInvalidRequest)
	}
}

func TestManager_UpdateConversationWithResponse(t *testing.T) {
	manager := newManager(nil)
	created, err := manager.CreateConversation(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	before := time.Now()
	state, err := manager.UpdateConversationWithResponse(context.Background(), created.ID, &response.CompletedResponse{
		ID:         "resp_1",
		OutputText: "Hello world!",
	})
	if err != nil {
		t.Fatalf("UpdateConversationWithResponse() error = %v", err)
	}

	if state.PreviousResponseID != "resp_1" {
		t.Errorf("PreviousResponseID = %v, want resp_1", state.PreviousResponseID)
	}
	if state.ContextMetadata.TurnCount != 1 {
		t.Errorf("TurnCount = %d, want 1", state.ContextMetadata.TurnCount)
	}
	if state.ContextMetadata.TotalTokens != len("Hello world!") {
		t.Errorf("TotalTokens = %d, want %d", state.ContextMetadata.TotalTokens, len("Hello world!"))
	}
	if state.ContextMetadata.LastActivity.Before(before) {
		t.Errorf("LastActivity = %v, want advanced", state.ContextMetadata.LastActivity)
	}
	if state.Status != status.StatusActive {
		t.Errorf("Status = %v, want %v", state.Status, status.StatusActive)
	}
	if state.Version != created.Version+1 {
		t.Errorf("Version = %d, want %d", state.Version, created.Version+1)
	}

	// Second turn accumulates on top of the first.
	state, err = manager.UpdateConversationWithResponse(context.Background(), created.ID, &response.CompletedResponse{
		ID:         "resp_2",
		OutputText: "More.",
	})
	if err != nil {
		t.Fatalf("UpdateConversationWithResponse() error = %v", err)
	}
	if state.ContextMetadata.TurnCount != 2 {
		t.Errorf("TurnCount = %d, want 2", state.ContextMetadata.TurnCount)
	}
	if state.PreviousResponseID != "resp_2" {
		t.Errorf("PreviousResponseID = %v, want resp_2", state.PreviousResponseID)
	}
	wantTokens := len("Hello world!") + len("More.")
	if state.ContextMetadata.TotalTokens != wantTokens {
		t.Errorf("TotalTokens = %d, want %d", state.ContextMetadata.TotalTokens, wantTokens)
	}
}

func TestManager_UpdateConversationWithResponse_Unknown(t *testing.T) {
	manager := newManager(nil)

	_, err := manager.UpdateConversationWithResponse(context.Background(), "conv_missing", &response.CompletedResponse{ID: "resp_1"})
	if !orcherrors.HasCode(err, orcherrors.ErrCodeConversationNotFound) {
		t.Errorf("UpdateConversationWithResponse() error = %v, want code %v", err, orcherrors.ErrCodeConversationNotFound)
	}
}

func TestManager_UpdateConversationWithResponse_CustomCounter(t *testing.T) {
	counted := 0
	counter := func(content string) int {
		counted++
		return 7
	}
	manager := conversation.NewManager(nil, nil, counter, zerolog.Nop())
	created, err := manager.CreateConversation(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	state, err := manager.UpdateConversationWithResponse(context.Background(), created.ID, &response.CompletedResponse{
		ID:         "resp_1",
		OutputText: "whatever length",
	})
	if err != nil {
		t.Fatalf("UpdateConversationWithResponse() error = %v", err)
	}

	if counted != 1 {
		t.Errorf("counter invoked %d times, want 1", counted)
	}
	if state.ContextMetadata.TotalTokens != 7 {
		t.Errorf("TotalTokens = %d, want counter result 7", state.ContextMetadata.TotalTokens)
	}
}

func TestManager_OptimizeConversationContext_NoOptimizer(t *testing.T) {
	manager := newManager(nil)
	created, err := manager.CreateConversation(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	_, err = manager.OptimizeConversationContext(context.Background(), created.ID, conversation.OptimizationInput{})
	if !orcherrors.HasCode(err, orcherrors.ErrCodeOptimizerUnavailable) {
		t.Errorf("OptimizeConversationContext() error = %v, want code %v", err, orcherrors.ErrCodeOptimizerUnavailable)
	}
}

func TestManager_OptimizeConversationContext_PersistsScoreOnTruncate(t *testing.T) {
	optimizer := &fakeOptimizer{result: &conversation.OptimizationResult{
		ShouldTruncate: true,
		RelevanceScore: 0.42,
		Summary:        "dropping 3 oldest messages",
	}}
	manager := newManager(optimizer)
	created, err := manager.CreateConversation(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	input := conversation.OptimizationInput{
		Model:    "gpt-4o",
		Messages: []conversation.ContextMessage{{Role: "user", Content: "hi"}},
	}
	result, err := manager.OptimizeConversationContext(context.Background(), created.ID, input)
	if err != nil {
		t.Fatalf("OptimizeConversationContext() error = %v", err)
	}

	if !result.ShouldTruncate {
		t.Error("result.ShouldTruncate = false, want true")
	}
	if optimizer.lastInput.ConversationID != created.ID {
		t.Errorf("optimizer received conversation id %v, want %v", optimizer.lastInput.ConversationID, created.ID)
	}
	if optimizer.lastInput.Model != "gpt-4o" {
		t.Errorf("optimizer received model %v, want gpt-4o", optimizer.lastInput.Model)
	}

	state, err := manager.GetConversationState(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetConversationState() error = %v", err)
	}
	if state.ContextMetadata.RelevanceScore == nil || *state.ContextMetadata.RelevanceScore != 0.42 {
		t.Errorf("RelevanceScore = %v, want 0.42 persisted", state.ContextMetadata.RelevanceScore)
	}
	if state.Status != status.StatusOptimized {
		t.Errorf("Status = %v, want %v", state.Status, status.StatusOptimized)
	}
}

func TestManager_OptimizeConversationContext_NoTruncateLeavesState(t *testing.T) {
	optimizer := &fakeOptimizer{result: &conversation.OptimizationResult{
		ShouldTruncate: false,
		RelevanceScore: 0.9,
	}}
	manager := newManager(optimizer)
	created, err := manager.CreateConversation(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	if _, err := manager.OptimizeConversationContext(context.Background(), created.ID, conversation.OptimizationInput{}); err != nil {
		t.Fatalf("OptimizeConversationContext() error = %v", err)
	}

	state, err := manager.GetConversationState(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetConversationState() error = %v", err)
	}
	if state.ContextMetadata.RelevanceScore != nil {
		t.Errorf("RelevanceScore = %v, want nil when no truncation", state.ContextMetadata.RelevanceScore)
	}
	if state.Version != created.Version {
		t.Errorf("Version = %d, want unchanged %d", state.Version, created.Version)
	}
}

func TestManager_OptimizeConversationContext_OptimizerError(t *testing.T) {
	optimizer := &fakeOptimizer{err: errors.New("sizing service down")}
	manager := newManager(optimizer)
	created, err := manager.CreateConversation(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	_, err = manager.OptimizeConversationContext(context.Background(), created.ID, conversation.OptimizationInput{})
	if err == nil || !strings.Contains(err.Error(), "optimize context") {
		t.Errorf("OptimizeConversationContext() error = %v, want wrapped optimizer error", err)
	}
}

func TestManager_DeleteConversation(t *testing.T) {
	manager := newManager(nil)
	created, err := manager.CreateConversation(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	if err := manager.DeleteConversation(context.Background(), created.ID); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}

	state, err := manager.GetConversationState(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetConversationState() error = %v", err)
	}
	if state != nil {
		t.Errorf("GetConversationState() = %+v, want nil after delete", state)
	}

	err = manager.DeleteConversation(context.Background(), created.ID)
	if !orcherrors.HasCode(err, orcherrors.ErrCodeConversationNotFound) {
		t.Errorf("DeleteConversation() error = %v, want code %v", err, orcherrors.ErrCodeConversationNotFound)
	}
}
