package middleware

import (
	"context"
	"net/http"
	"strings"

	"redirect-mgmt-go/pkg/models"

	"github.com/gin-gonic/gin"
)

// TokenChecker validates API keys.
type TokenChecker interface {
	HasToken(ctx context.Context, token string) bool
}

func RequireAuth(tokens TokenChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ProviderResponse{Errors: []string{"Unauthenticated."}})
			return
		}

		// Extract API key from "Bearer <key>" or just "<key>"
		apiKey := strings.TrimPrefix(authHeader, "Bearer ")
		apiKey = strings.TrimSpace(apiKey)

		if !tokens.HasToken(c.Request.Context(), apiKey) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ProviderResponse{Errors: []string{"Unauthenticated."}})
			return
		}

		c.Next()
	}
}
