package v1

import (
	"github.com/gin-gonic/gin"

	"relay-server/services/response-orchestrator/internal/interfaces/httpserver/handlers"
)

func registerResponseRoutes(router gin.IRoutes, handler *handlers.ResponseHandler) {
	router.POST("/responses", handler.Create)
}
