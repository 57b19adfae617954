package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"relay-server/services/response-orchestrator/internal/domain/llm"
)

// ModelHandler passes model metadata lookups through to the upstream API.
type ModelHandler struct {
	models llm.ModelInfoProvider
	log    zerolog.Logger
}

// NewModelHandler constructs the handler.
func NewModelHandler(models llm.ModelInfoProvider, log zerolog.Logger) *ModelHandler {
	return &ModelHandler{
		models: models,
		log:    log.With().Str("handler", "model").Logger(),
	}
}

// Get handles GET /v1/models/:model_id
// @Summary Get model metadata
// @Tags Models
// @Produce json
// @Param model_id path string true "Model ID"
// @Success 200 {object} llm.ModelInfo
// @Failure 404 {object} map[string]any
// @Router /v1/models/{model_id} [get]
func (h *ModelHandler) Get(c *gin.Context) {
	modelID := c.Param("model_id")

	ctx := llm.ContextWithAuthToken(c.Request.Context(), strings.TrimSpace(c.GetHeader("Authorization")))
	info, err := h.models.GetModelInfo(ctx, modelID)
	if err != nil {
		writeError(c, err)
		return
	}
	if info == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{"code": "MODEL_NOT_FOUND", "message": "model not found"},
		})
		return
	}

	c.JSON(http.StatusOK, info)
}
