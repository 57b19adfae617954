package v1

import (
	"github.com/gin-gonic/gin"

	"relay-server/services/response-orchestrator/internal/interfaces/httpserver/handlers"
)

func registerConversationRoutes(router gin.IRoutes, handler *handlers.ConversationHandler) {
	router.POST("/conversations", handler.Create)
	router.GET("/conversations/:conversation_id", handler.Get)
	router.DELETE("/conversations/:conversation_id", handler.Delete)
	router.POST("/conversations/:conversation_id/optimize", handler.Optimize)
}
