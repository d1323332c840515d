package middleware

import (
	"log/slog"
	"net/http"

	"redirect-mgmt-go/pkg/models"

	"github.com/gin-gonic/gin"
)

func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("handler panicked", "panic", recovered, "path", c.Request.URL.Path, "request_id", c.GetString(RequestIDKey))
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ProviderResponse{
			Errors: []string{"internal server error"},
		})
	})
}
