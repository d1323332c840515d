package api

import (
	"log/slog"

	"redirect-mgmt-go/pkg/api/handlers"
	"redirect-mgmt-go/pkg/api/middleware"
	"redirect-mgmt-go/pkg/services"
	"redirect-mgmt-go/pkg/store"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the provider emulator: the authenticated create and change
// endpoints, the public alias redirects and the preview toggles.
func NewRouter(s *store.Store, domain string, logger *slog.Logger) *gin.Engine {
	router := gin.New()

	linkService := services.NewLinkService(s, domain)

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.ErrorHandler(logger))

	router.GET("/health", handlers.HealthCheck)

	authed := router.Group("")
	authed.Use(middleware.RequireAuth(s))
	{
		authed.POST("/create", handlers.CreateLink(linkService))
		authed.PATCH("/change", handlers.ChangeLink(linkService))
	}

	admin := router.Group("/admin")
	admin.Use(middleware.RequireAuth(s))
	{
		admin.POST("/preview/:alias", handlers.SetPreview(linkService, true))
		admin.DELETE("/preview/:alias", handlers.SetPreview(linkService, false))
	}

	router.GET("/:alias", handlers.Redirect(linkService))
	router.HEAD("/:alias", handlers.Redirect(linkService))

	return router
}
