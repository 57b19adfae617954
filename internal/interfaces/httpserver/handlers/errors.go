package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	orcherrors "relay-server/services/response-orchestrator/internal/domain/errors"
)

// statusForCode maps taxonomy codes onto HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case orcherrors.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case orcherrors.ErrCodeConversationNotFound:
		return http.StatusNotFound
	case orcherrors.ErrCodeUpstreamTerminal, orcherrors.ErrCodeMidStreamFailure:
		return http.StatusBadGateway
	case orcherrors.ErrCodeUpstreamUnavailable, orcherrors.ErrCodeUpstreamRetryable:
		return http.StatusServiceUnavailable
	case orcherrors.ErrCodeOptimizerUnavailable:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a taxonomy error as JSON. Only the code and the generic
// message are exposed; causes and upstream bodies never leave the service.
func writeError(c *gin.Context, err error) {
	var oe *orcherrors.OrchestrationError
	if errors.As(err, &oe) {
		c.JSON(statusForCode(oe.Code), gin.H{
			"error": gin.H{"code": oe.Code, "message": oe.Message},
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{"code": "INTERNAL", "message": "internal error"},
	})
}

// writeBindError renders a request binding failure. Binding errors originate
// locally, so the message is safe to return.
func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{"code": orcherrors.ErrCodeInvalidRequest, "message": err.Error()},
	})
}
