package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"relay-server/services/response-orchestrator/internal/domain/conversation"
	orcherrors "relay-server/services/response-orchestrator/internal/domain/errors"
	"relay-server/services/response-orchestrator/internal/domain/llm"
	"relay-server/services/response-orchestrator/internal/domain/redact"
	"relay-server/services/response-orchestrator/internal/domain/response"
	"relay-server/services/response-orchestrator/internal/domain/stream"
	"relay-server/services/response-orchestrator/internal/infrastructure/metrics"
	"relay-server/services/response-orchestrator/internal/infrastructure/observability"
	"relay-server/services/response-orchestrator/internal/interfaces/httpserver/dto"
	"relay-server/services/response-orchestrator/internal/webhook"
)

// ResponseHandler exposes HTTP entrypoints for response orchestration.
type ResponseHandler struct {
	service  response.Service
	manager  *conversation.Manager
	notifier webhook.Service
	log      zerolog.Logger
}

// NewResponseHandler constructs the handler. The notifier may be nil when
// webhook delivery is disabled.
func NewResponseHandler(
	service response.Service,
	manager *conversation.Manager,
	notifier webhook.Service,
	log zerolog.Logger,
) *ResponseHandler {
	return &ResponseHandler{
		service:  service,
		manager:  manager,
		notifier: notifier,
		log:      log.With().Str("handler", "response").Logger(),
	}
}

// Create handles POST /v1/responses
// @Summary Create a response
// @Description Executes a response against the upstream provider; "stream": true switches to SSE chunk delivery.
// @Tags Responses
// @Accept json
// @Produce json
// @Param request body dto.CreateResponseRequest true "Create request"
// @Success 200 {object} dto.ResponsePayload
// @Failure 400 {object} map[string]any
// @Router /v1/responses [post]
func (h *ResponseHandler) Create(c *gin.Context) {
	var req dto.CreateResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	input, err := mapInput(req.Input)
	if err != nil {
		writeError(c, err)
		return
	}

	domainReq := response.Request{
		Model:              req.Model,
		Input:              input,
		Instructions:       req.Instructions,
		Tools:              mapTools(req.Tools),
		PreviousResponseID: req.PreviousResponseID,
		Store:              req.Store != nil && *req.Store,
		Metadata:           req.Metadata,
	}

	authCtx := llm.ContextWithAuthToken(c.Request.Context(), strings.TrimSpace(c.GetHeader("Authorization")))
	c.Request = c.Request.WithContext(authCtx)

	// Chaining through a named conversation resolves before the upstream
	// call so unknown ids fail fast. An explicit previous_response_id wins
	// over the stored chain pointer.
	if req.Conversation != "" {
		state, err := h.manager.GetConversationState(c.Request.Context(), req.Conversation)
		if err != nil {
			writeError(c, err)
			return
		}
		if state == nil {
			writeError(c, orcherrors.NewConversationNotFound(req.Conversation))
			return
		}
		if domainReq.PreviousResponseID == "" {
			domainReq.PreviousResponseID = state.PreviousResponseID
		}
		domainReq.Store = true
	}

	h.log.Debug().
		Str("model", req.Model).
		Str("conversation_id", req.Conversation).
		Interface("metadata", redact.Map(req.Metadata)).
		Msg("response requested")

	if req.Stream != nil && *req.Stream {
		h.streamResponse(c, domainReq, req.Conversation)
		return
	}

	ctx, span := observability.StartResponseSpan(c.Request.Context(), "create", req.Model, false)
	defer span.End()

	resp, err := h.service.CreateResponse(ctx, domainReq)
	if err != nil {
		observability.RecordError(span, err)
		h.notifyFailed(domainReq.Metadata, "", err)
		writeError(c, err)
		return
	}
	observability.AddResponseIDAttribute(span, resp.ID)

	if req.Conversation != "" {
		h.advanceConversation(ctx, req.Conversation, resp)
	}
	h.notifyCompleted(domainReq.Metadata, resp.ID, resp.Output, resp.CreatedAt)

	c.JSON(http.StatusOK, dto.FromCompleted(resp))
}

// streamResponse delivers normalized chunks over SSE. Each chunk becomes one
// frame: the event field carries the chunk type, the data field its payload.
func (h *ResponseHandler) streamResponse(c *gin.Context, req response.Request, conversationID string) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "INTERNAL", "message": "streaming not supported"},
		})
		return
	}

	ctx, span := observability.StartResponseSpan(c.Request.Context(), "stream", req.Model, true)
	defer span.End()

	chunks, err := h.service.StreamResponse(ctx, req)
	if err != nil {
		observability.RecordError(span, err)
		h.notifyFailed(req.Metadata, "", err)
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	metrics.IncActiveStreams()
	defer metrics.DecActiveStreams()

	writer := newSSEWriter(c.Writer, flusher, h.log)

	var (
		responseID string
		text       strings.Builder
		count      int
		reason     = "cancelled"
	)

	for chunk := range chunks {
		count++
		metrics.RecordStreamChunk(string(chunk.Type))

		switch chunk.Type {
		case stream.ChunkText:
			if delta, ok := chunk.Data.(string); ok {
				text.WriteString(delta)
			}
		case stream.ChunkAnnotation:
			if id := responseIDFromChunk(chunk); id != "" {
				responseID = id
				observability.AddResponseIDAttribute(span, id)
			}
		case stream.ChunkDone:
			reason = "done"
		case stream.ChunkError:
			reason = "error"
		}

		writer.send(string(chunk.Type), chunk.Data)
	}

	observability.AddStreamCompletedEvent(span, count, reason)

	switch reason {
	case "done":
		if conversationID != "" && responseID != "" {
			h.advanceConversation(c.Request.Context(), conversationID, &response.CompletedResponse{
				ID:         responseID,
				OutputText: text.String(),
			})
		}
		h.notifyCompleted(req.Metadata, responseID, nil, time.Now())
	case "error":
		h.notifyFailed(req.Metadata, responseID, orcherrors.NewMidStreamFailure(nil))
	}
}

// advanceConversation moves the conversation forward after a completed turn.
// Failures are logged, not surfaced: the response itself already succeeded.
func (h *ResponseHandler) advanceConversation(ctx context.Context, conversationID string, resp *response.CompletedResponse) {
	state, err := h.manager.UpdateConversationWithResponse(ctx, conversationID, resp)
	if err != nil {
		metrics.RecordConversationOperation("advance", "error")
		h.log.Error().Err(err).Str("conversation_id", conversationID).Msg("conversation advance failed")
		return
	}
	metrics.RecordConversationOperation("advance", "ok")
	metrics.ObserveConversationTurns(state.ContextMetadata.TurnCount)
}

func (h *ResponseHandler) notifyCompleted(metadata map[string]any, responseID string, output any, completedAt time.Time) {
	if h.notifier == nil {
		return
	}
	go func() {
		if err := h.notifier.NotifyCompleted(context.Background(), responseID, output, metadata, &completedAt); err != nil {
			h.log.Warn().Err(err).Str("response_id", responseID).Msg("completion webhook not delivered")
		}
	}()
}

func (h *ResponseHandler) notifyFailed(metadata map[string]any, responseID string, cause error) {
	if h.notifier == nil {
		return
	}
	code := orcherrors.CodeOf(cause)
	if code == "" {
		code = "INTERNAL"
	}
	message := "response failed"
	var oe *orcherrors.OrchestrationError
	if errors.As(cause, &oe) {
		message = oe.Message
	}
	go func() {
		if err := h.notifier.NotifyFailed(context.Background(), responseID, code, message, metadata); err != nil {
			h.log.Warn().Err(err).Str("response_id", responseID).Msg("failure webhook not delivered")
		}
	}()
}

func responseIDFromChunk(chunk stream.Chunk) string {
	ann, ok := chunk.Data.(stream.AnnotationData)
	if !ok {
		return ""
	}
	idData, ok := ann.Data.(stream.ResponseIDData)
	if !ok {
		return ""
	}
	return idData.ResponseID
}

// mapInput resolves the JSON input union into the request builder's accepted
// shapes: a plain string or an ordered item sequence.
func mapInput(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []any:
		items := make([]response.InputItem, 0, len(v))
		for _, entry := range v {
			obj, ok := entry.(map[string]any)
			if !ok {
				return nil, orcherrors.NewInvalidRequest("input items must be objects")
			}
			item := response.InputItem{}
			if t, ok := obj["type"].(string); ok {
				item.Type = t
			}
			if content, ok := obj["content"].(string); ok {
				item.Content = content
			}
			if md, ok := obj["metadata"].(map[string]any); ok {
				item.Metadata = md
			}
			items = append(items, item)
		}
		return items, nil
	default:
		return nil, orcherrors.NewInvalidRequest("input must be a string or a sequence of input items")
	}
}

func mapTools(tools []dto.ToolDeclaration) []llm.ToolDeclaration {
	if len(tools) == 0 {
		return nil
	}
	result := make([]llm.ToolDeclaration, 0, len(tools))
	for _, t := range tools {
		result = append(result, llm.ToolDeclaration{Type: t.Type, Config: t.Config})
	}
	return result
}

// sseWriter serializes chunk frames onto the wire. Writes are mutex-guarded
// so a flush always pairs with its own frame.
type sseWriter struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	log     zerolog.Logger
	mu      sync.Mutex
}

func newSSEWriter(w http.ResponseWriter, flusher http.Flusher, log zerolog.Logger) *sseWriter {
	return &sseWriter{writer: w, flusher: flusher, log: log}
}

// send emits one event/data frame. A nil payload is sent as an empty object
// so every frame carries valid JSON.
func (w *sseWriter) send(event string, payload any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if payload == nil {
		payload = struct{}{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		w.log.Error().Err(err).Msg("marshal SSE payload")
		return
	}

	fmt.Fprintf(w.writer, "event: %s\n", event)
	fmt.Fprintf(w.writer, "data: %s\n\n", data)
	w.flusher.Flush()
}
