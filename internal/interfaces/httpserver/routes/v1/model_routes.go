package v1

import (
	"github.com/gin-gonic/gin"

	"relay-server/services/response-orchestrator/internal/interfaces/httpserver/handlers"
)

func registerModelRoutes(router gin.IRoutes, handler *handlers.ModelHandler) {
	router.GET("/models/:model_id", handler.Get)
}
