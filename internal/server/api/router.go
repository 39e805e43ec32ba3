package api

import (
	"quickshare/internal/server/config"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SetupRouter creates and configures the echo router with all routes and middleware.
func SetupRouter(handler *Handler, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))
	e.Use(RequestLogger())

	// Rate limiter on the endpoints that create work
	limiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Health & stats
	e.GET("/health", handler.HandleHealth)
	e.GET("/api/stats", handler.HandleStats)

	// Upload (rate-limited)
	e.POST("/upload", handler.HandleUpload, limiter.Middleware())

	// Download & info
	e.GET("/download/:code", handler.HandleDownload)
	e.GET("/info/:code", handler.HandleInfo)

	// Early purge
	e.DELETE("/share/:code/:token", handler.HandlePurge)

	// Social-link resolution proxy (rate-limited; it fans out to a third party)
	e.POST("/api/social-download", handler.HandleSocialDownload, limiter.Middleware())

	return e
}
