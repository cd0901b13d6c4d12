package httpserver

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/avolkhov/melodeon/internal/errs"
	"github.com/avolkhov/melodeon/internal/token"
)

// AccessLog returns middleware for structured request logging. Metadata only,
// no payloads.
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", c.ClientIP()),
		)
	}
}

// Recovery returns middleware that converts panics into opaque 500 responses.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", c.Request.URL.Path),
				)
				writeError(c, fmt.Errorf("panic: %v", r))
			}
		}()
		c.Next()
	}
}

// bearerToken extracts the bearer token from the Authorization header. A
// missing header and a malformed one produce distinct messages in the same
// unauthorized class.
func bearerToken(c *gin.Context) (string, error) {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if h == "" {
		return "", fmt.Errorf("%w: authorization header required", errs.ErrUnauthorized)
	}
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", fmt.Errorf("%w: expected 'Bearer <token>'", errs.ErrUnauthorized)
	}
	t := strings.TrimSpace(h[7:])
	if t == "" {
		return "", fmt.Errorf("%w: expected 'Bearer <token>'", errs.ErrUnauthorized)
	}
	return t, nil
}

// authenticate resolves the request's identity through the token codec.
func authenticate(c *gin.Context, codec *token.Codec) (Identity, error) {
	raw, err := bearerToken(c)
	if err != nil {
		return Identity{}, err
	}
	claims, err := codec.Validate(raw)
	if err != nil {
		return Identity{}, err
	}
	id, err := claims.AccountID()
	if err != nil {
		return Identity{}, err
	}
	return Identity{ID: id, Username: claims.Username, IsAdmin: claims.IsAdmin}, nil
}

// RequireAuth gates a route on a valid bearer token. The resulting identity
// is derived from the claims only; the account store is deliberately not
// consulted per request.
func RequireAuth(codec *token.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := authenticate(c, codec)
		if err != nil {
			writeError(c, err)
			return
		}
		WithIdentity(c, identity)
		c.Next()
	}
}

// OptionalAuth attaches an identity when a valid token is present and lets
// the request through unauthenticated otherwise.
func OptionalAuth(codec *token.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, err := authenticate(c, codec); err == nil {
			WithIdentity(c, identity)
		}
		c.Next()
	}
}

// RequireAdmin gates a route on an already-authenticated admin identity.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			writeError(c, errs.ErrUnauthorized)
			return
		}
		if !identity.IsAdmin {
			writeError(c, fmt.Errorf("%w: admin privileges required", errs.ErrForbidden))
			return
		}
		c.Next()
	}
}
