package middleware

import (
	"log/slog"

	"booking-engine/internal/pkg/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewCORSMiddleware serves browser clients of the availability and booking
// endpoints. Without configured origins it is a no-op.
func NewCORSMiddleware(cfg config.CORSConfig, logger *slog.Logger) gin.HandlerFunc {
	if len(cfg.AllowOrigins) == 0 {
		logger.Warn("CORS disabled: no allowed origins configured")
		return func(c *gin.Context) { c.Next() }
	}
	logger.Info("CORS middleware initialized", "allow_origins", cfg.AllowOrigins, "max_age", cfg.MaxAge)
	return cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		ExposeHeaders:    cfg.ExposeHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}
