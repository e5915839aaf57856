// Package auth provides optional bearer-token protection for the API.
// When disabled in config the middleware is never installed and every
// endpoint is open, matching local development use.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("jwt-manager")

// JWTManager manages token creation and validation.
type JWTManager struct {
	signingKey string
	algorithm  string
	issuer     string
	tracer     trace.Tracer
}

// Claims are the token claims issued for API clients.
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// NewJWTManager creates a JWT manager for the given signing secret.
func NewJWTManager(secret, issuer string) (*JWTManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth secret is required when auth is enabled")
	}
	if issuer == "" {
		issuer = "irc-server"
	}

	return &JWTManager{
		signingKey: secret,
		algorithm:  "HS256",
		issuer:     issuer,
		tracer:     tracer,
	}, nil
}

// GenerateToken issues a token for clientID valid for duration.
func (jm *JWTManager) GenerateToken(ctx context.Context, clientID string, duration time.Duration) (string, error) {
	_, span := jm.tracer.Start(ctx, "jwt.generate_token")
	defer span.End()

	span.SetAttributes(attribute.String("client.id", clientID))

	now := time.Now()
	claims := &Claims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    jm.issuer,
			Subject:   clientID,
			ID:        fmt.Sprintf("jwt-%d", now.UnixNano()),
		},
	}

	token := jwt.NewWithClaims(jwt.GetSigningMethod(jm.algorithm), claims)
	tokenString, err := token.SignedString([]byte(jm.signingKey))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	span.SetAttributes(attribute.String("jwt.id", claims.ID))
	return tokenString, nil
}

// ValidateToken parses and verifies a token string.
func (jm *JWTManager) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	_, span := jm.tracer.Start(ctx, "jwt.validate_token")
	defer span.End()

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jm.algorithm {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jm.signingKey), nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	span.SetAttributes(
		attribute.String("client.id", claims.ClientID),
		attribute.String("jwt.id", claims.ID),
	)
	return claims, nil
}
