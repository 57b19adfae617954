package v1

import (
	"github.com/gin-gonic/gin"

	"relay-server/services/response-orchestrator/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

// NewRoutes builds the v1 route registrar.
func NewRoutes(handlerProvider *handlers.Provider) *Routes {
	return &Routes{
		handlers: handlerProvider,
	}
}

// Register attaches all v1 routes under the /v1 prefix.
func (r *Routes) Register(engine *gin.Engine) {
	group := engine.Group("/v1")
	registerResponseRoutes(group, r.handlers.Response)
	registerConversationRoutes(group, r.handlers.Conversation)

	// Model metadata passthrough (optional - only if handler is provided)
	if r.handlers.Model != nil {
		registerModelRoutes(group, r.handlers.Model)
	}
}
