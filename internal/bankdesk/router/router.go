// Package router wires the bankdesk HTTP routes.
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/bankdesk/internal/bankdesk/handler"
)

// New builds the gin engine with all bankdesk routes registered.
func New(h *handler.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	engine.GET("/healthz", h.Healthz)
	engine.GET("/metrics", h.Metrics)

	v1 := engine.Group("/v1")
	{
		v1.POST("/query", h.Query)

		v1.GET("/queries", h.ListQueries)
		v1.GET("/queries/:id", h.GetQuery)
		v1.DELETE("/queries", h.ClearQueries)

		v1.GET("/documents", h.ListDocuments)
		v1.GET("/documents/:name", h.GetDocument)

		v1.GET("/stats", h.Stats)

		v1.POST("/index", h.Index)
		v1.DELETE("/index", h.ClearIndex)
	}

	return engine
}

// requestLogger logs one structured line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Infow("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP())
	}
}
