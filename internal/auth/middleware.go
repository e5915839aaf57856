package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var middlewareTracer = otel.Tracer("auth-middleware")

// Gin context keys set by the middleware.
const (
	ClientIDKey = "client_id"
	ClaimsKey   = "claims"
)

// RequireAuth validates the bearer token on protected endpoints and
// attaches the caller identity to the gin context.
func RequireAuth(jwtManager *JWTManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := middlewareTracer.Start(c.Request.Context(), "auth.require_auth")
		defer span.End()

		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			span.SetAttributes(attribute.Bool("auth.token_present", false))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid authorization header"})
			c.Abort()
			return
		}
		span.SetAttributes(attribute.Bool("auth.token_present", true))

		claims, err := jwtManager.ValidateToken(ctx, token)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.Bool("auth.token_valid", false))
			log.Warn("invalid token", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		span.SetAttributes(
			attribute.Bool("auth.token_valid", true),
			attribute.String("client.id", claims.ClientID),
		)

		c.Set(ClientIDKey, claims.ClientID)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// OptionalAuth validates a bearer token when one is present but lets
// anonymous requests through.
func OptionalAuth(jwtManager *JWTManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := middlewareTracer.Start(c.Request.Context(), "auth.optional_auth")
		defer span.End()

		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			span.SetAttributes(attribute.Bool("auth.authenticated", false))
			c.Next()
			return
		}

		claims, err := jwtManager.ValidateToken(ctx, token)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.Bool("auth.authenticated", false))
			log.Warn("invalid optional token", zap.Error(err))
			c.Next()
			return
		}

		span.SetAttributes(
			attribute.Bool("auth.authenticated", true),
			attribute.String("client.id", claims.ClientID),
		)

		c.Set(ClientIDKey, claims.ClientID)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func extractBearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
