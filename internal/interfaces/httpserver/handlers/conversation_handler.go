package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"relay-server/services/response-orchestrator/internal/domain/conversation"
	orcherrors "relay-server/services/response-orchestrator/internal/domain/errors"
	"relay-server/services/response-orchestrator/internal/infrastructure/metrics"
	"relay-server/services/response-orchestrator/internal/infrastructure/observability"
	"relay-server/services/response-orchestrator/internal/interfaces/httpserver/dto"
)

// ConversationHandler exposes conversation state CRUD and the optimization
// trigger.
type ConversationHandler struct {
	manager *conversation.Manager
	log     zerolog.Logger
}

// NewConversationHandler constructs the handler.
func NewConversationHandler(manager *conversation.Manager, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		manager: manager,
		log:     log.With().Str("handler", "conversation").Logger(),
	}
}

// Create handles POST /v1/conversations
// @Summary Create a conversation
// @Tags Conversations
// @Accept json
// @Produce json
// @Param request body dto.CreateConversationRequest true "Create request"
// @Success 200 {object} conversation.State
// @Router /v1/conversations [post]
func (h *ConversationHandler) Create(c *gin.Context) {
	var req dto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	userID := req.User
	if userID == "" {
		userID = "guest"
	}

	ctx, span := observability.StartConversationSpan(c.Request.Context(), "create", "")
	defer span.End()

	state, err := h.manager.CreateConversation(ctx, userID)
	if err != nil {
		metrics.RecordConversationOperation("create", "error")
		observability.RecordError(span, err)
		writeError(c, err)
		return
	}

	if len(req.Metadata) > 0 {
		state.Metadata = req.Metadata
		if err := h.manager.SaveConversationState(ctx, state); err != nil {
			metrics.RecordConversationOperation("create", "error")
			observability.RecordError(span, err)
			writeError(c, err)
			return
		}
	}

	metrics.RecordConversationOperation("create", "ok")
	c.JSON(http.StatusOK, state)
}

// Get handles GET /v1/conversations/:conversation_id
// @Summary Get conversation state
// @Tags Conversations
// @Produce json
// @Param conversation_id path string true "Conversation ID"
// @Success 200 {object} conversation.State
// @Failure 404 {object} map[string]any
// @Router /v1/conversations/{conversation_id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	id := c.Param("conversation_id")

	ctx, span := observability.StartConversationSpan(c.Request.Context(), "get", id)
	defer span.End()

	state, err := h.manager.GetConversationState(ctx, id)
	if err != nil {
		metrics.RecordConversationOperation("get", "error")
		observability.RecordError(span, err)
		writeError(c, err)
		return
	}
	if state == nil {
		metrics.RecordConversationOperation("get", "not_found")
		writeError(c, orcherrors.NewConversationNotFound(id))
		return
	}

	metrics.RecordConversationOperation("get", "ok")
	c.JSON(http.StatusOK, state)
}

// Delete handles DELETE /v1/conversations/:conversation_id
// @Summary Delete a conversation
// @Tags Conversations
// @Produce json
// @Param conversation_id path string true "Conversation ID"
// @Success 200 {object} dto.DeletedPayload
// @Failure 404 {object} map[string]any
// @Router /v1/conversations/{conversation_id} [delete]
func (h *ConversationHandler) Delete(c *gin.Context) {
	id := c.Param("conversation_id")

	ctx, span := observability.StartConversationSpan(c.Request.Context(), "delete", id)
	defer span.End()

	if err := h.manager.DeleteConversation(ctx, id); err != nil {
		metrics.RecordConversationOperation("delete", "error")
		observability.RecordError(span, err)
		writeError(c, err)
		return
	}

	metrics.RecordConversationOperation("delete", "ok")
	c.JSON(http.StatusOK, dto.DeletedPayload{
		ID:      id,
		Object:  "conversation.deleted",
		Deleted: true,
	})
}

// Optimize handles POST /v1/conversations/:conversation_id/optimize
// @Summary Optimize conversation context
// @Description Evaluates the submitted context against the model window and persists the relevance score when truncation is advised.
// @Tags Conversations
// @Accept json
// @Produce json
// @Param conversation_id path string true "Conversation ID"
// @Param request body dto.OptimizeContextRequest true "Context under evaluation"
// @Success 200 {object} conversation.OptimizationResult
// @Failure 404 {object} map[string]any
// @Router /v1/conversations/{conversation_id}/optimize [post]
func (h *ConversationHandler) Optimize(c *gin.Context) {
	id := c.Param("conversation_id")

	var req dto.OptimizeContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	ctx, span := observability.StartConversationSpan(c.Request.Context(), "optimize", id)
	defer span.End()

	input := conversation.OptimizationInput{
		Model:    req.Model,
		Messages: mapContextMessages(req.Messages),
	}

	result, err := h.manager.OptimizeConversationContext(ctx, id, input)
	if err != nil {
		metrics.RecordContextOptimization("error")
		observability.RecordError(span, err)
		writeError(c, err)
		return
	}

	if result.ShouldTruncate {
		metrics.RecordContextOptimization("truncated")
	} else {
		metrics.RecordContextOptimization("kept")
	}
	c.JSON(http.StatusOK, result)
}

func mapContextMessages(messages []dto.ContextMessage) []conversation.ContextMessage {
	result := make([]conversation.ContextMessage, 0, len(messages))
	for _, m := range messages {
		result = append(result, conversation.ContextMessage{Role: m.Role, Content: m.Content})
	}
	return result
}
