package server

import (
	"log/slog"
	"time"

	"github.com/alkime/screenrec/internal/config"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

// setupSecurityMiddleware configures and applies security middleware to the router
func setupSecurityMiddleware(router *gin.Engine, cfg *config.Config, logger *slog.Logger) {
	secureMiddleware := secure.New(secure.Config{
		AllowedHosts:          []string{ControlHost},
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'",
		IsDevelopment:         cfg.IsDevelopment(),
	})
	router.Use(secureMiddleware)

	logger.Debug("configured security middleware",
		"allowed_hosts", []string{ControlHost},
		"development", cfg.IsDevelopment(),
	)
}

// requestLogger logs each control request through slog.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("control request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
