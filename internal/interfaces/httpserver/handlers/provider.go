package handlers

import (
	"github.com/rs/zerolog"

	"relay-server/services/response-orchestrator/internal/domain/conversation"
	"relay-server/services/response-orchestrator/internal/domain/llm"
	"relay-server/services/response-orchestrator/internal/domain/response"
	"relay-server/services/response-orchestrator/internal/webhook"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Response     *ResponseHandler
	Conversation *ConversationHandler
	Model        *ModelHandler
}

// NewProvider constructs the handler provider with domain services. The
// notifier may be nil; the model provider may be nil when metadata lookups
// are not exposed.
func NewProvider(
	responseService response.Service,
	manager *conversation.Manager,
	models llm.ModelInfoProvider,
	notifier webhook.Service,
	log zerolog.Logger,
) *Provider {
	p := &Provider{
		Response:     NewResponseHandler(responseService, manager, notifier, log),
		Conversation: NewConversationHandler(manager, log),
	}
	if models != nil {
		p.Model = NewModelHandler(models, log)
	}
	return p
}
