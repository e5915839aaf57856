package gateway

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/intelligent-react-components/irc-server/internal/auth"
)

// NewRouter builds the gin engine with all routes registered. A nil
// jwtManager leaves every endpoint open; a nil stream omits the
// artifact websocket. Health probes are never behind auth.
func NewRouter(h *Handler, stream *ArtifactStream, jwtManager *auth.JWTManager, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)

	api := router.Group("")
	if jwtManager != nil {
		api.Use(auth.RequireAuth(jwtManager, log))
	}
	api.POST("/prompt-to-code", h.PromptToCode)
	api.GET("/generations", h.Generations)
	if stream != nil {
		api.GET("/ws/artifacts", stream.Stream)
	}

	router.NoRoute(h.NotFound)
	return router
}

// requestLogger logs one structured line per request.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("client_ip", c.ClientIP()),
		}
		if clientID, ok := c.Get(auth.ClientIDKey); ok {
			fields = append(fields, zap.Any("client_id", clientID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		log.Info("request", fields...)
	}
}
