package server

import (
	"github.com/bitshield/procurement/backend/internal/server/middleware"
	"github.com/bitshield/procurement/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Analysis routes
	apiRoutes.POST("/analyses", routes.CreateAnalysisHandler)
	apiRoutes.GET("/analyses/:id", routes.GetAnalysisHandler)
}
