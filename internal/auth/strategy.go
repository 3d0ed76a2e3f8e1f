package auth

import (
	"context"
	"log/slog"
	"strings"

	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/api/response"
	"ctchen222/todo-api/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const identityKey = "auth.identity"

var tracer = otel.Tracer("auth")

// Identity is the authenticated caller of a request.
type Identity struct {
	Username string
	Role     models.UserRole
}

// UserLookup finds a user by username. It returns nil, nil when there is none.
type UserLookup interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// Strategy turns bearer tokens into identities. It keeps no state between
// calls.
type Strategy struct {
	tokens   *TokenService
	users    UserLookup
	rejected metric.Int64Counter
}

// NewStrategy creates a Strategy. users may be nil, in which case a token with
// a valid signature and expiry is enough.
func NewStrategy(tokens *TokenService, users UserLookup) *Strategy {
	rejected, err := otel.Meter("auth").Int64Counter("auth.rejected",
		metric.WithDescription("Requests rejected by the authentication strategy"))
	if err != nil {
		slog.Warn("failed to create auth.rejected counter", "error", err)
		rejected = noop.Int64Counter{}
	}
	return &Strategy{tokens: tokens, users: users, rejected: rejected}
}

// Authenticate resolves token to an identity. Every failure is unauthorized.
func (s *Strategy) Authenticate(ctx context.Context, token string) (*Identity, error) {
	const op = "Strategy.Authenticate"
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, s.reject(ctx, op, "invalid or expired token", "verify")
	}

	if s.users != nil {
		user, err := s.users.FindByUsername(ctx, claims.Username)
		if err != nil {
			slog.ErrorContext(ctx, "failed to look up authenticated user", "user.name", claims.Username, "error", err)
			return nil, err
		}
		if user == nil {
			return nil, s.reject(ctx, op, "user no longer exists", "unknown_user")
		}
	}

	span.SetAttributes(attribute.String("user.name", claims.Username))
	return &Identity{Username: claims.Username, Role: claims.Role}, nil
}

func (s *Strategy) reject(ctx context.Context, op, msg, reason string) error {
	s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	slog.DebugContext(ctx, "authentication rejected", "reason", reason)
	return apperr.Unauthorized(op, msg)
}

// Middleware rejects requests without a valid bearer token before any handler
// runs, and stores the identity on the request otherwise.
func (s *Strategy) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			s.rejected.Add(c.Request.Context(), 1, metric.WithAttributes(attribute.String("reason", "missing")))
			response.AbortWithError(c, apperr.Unauthorized("Strategy.Middleware", "missing bearer token"))
			return
		}

		identity, err := s.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireRole only lets identities with one of roles through. It must run
// after Middleware.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			response.AbortWithError(c, apperr.Unauthorized("auth.RequireRole", "not authenticated"))
			return
		}
		for _, r := range roles {
			if identity.Role == r {
				c.Next()
				return
			}
		}
		response.AbortWithError(c, apperr.Forbidden("auth.RequireRole", "insufficient role"))
	}
}

// IdentityFrom returns the identity stored by Middleware.
func IdentityFrom(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*Identity)
	return identity, ok
}
