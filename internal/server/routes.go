package server

import (
	"github.com/graphweave/graphweave/internal/server/middleware"
	"github.com/graphweave/graphweave/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Extraction routes
	apiRoutes.POST("/extract", routes.ExtractHandler)
	apiRoutes.POST("/refine", routes.RefineHandler)

	// Ingestion routes
	apiRoutes.POST("/documents", routes.IngestDocumentsHandler)

	// Entity routes
	apiRoutes.GET("/entities", routes.ListEntitiesHandler)
	apiRoutes.GET("/entities/:id", routes.GetEntityHandler)
	apiRoutes.DELETE("/entities/:id", routes.DeleteEntityHandler)

	// Search routes
	apiRoutes.POST("/search", routes.SearchHandler)
}
