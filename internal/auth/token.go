package auth

import (
	"errors"
	"time"

	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload. It only identifies the caller.
type Claims struct {
	Username string          `json:"username"`
	Role     models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 tokens with a mandatory expiry.
type TokenService struct {
	key    []byte
	expiry time.Duration
	now    func() time.Time
}

type TokenOption func(*TokenService)

// WithClock replaces the clock used for issuing and validating tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a TokenService. Both key and expiry are required.
func NewTokenService(key []byte, expiry time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(key) == 0 {
		return nil, apperr.Configuration("auth.NewTokenService", "signing key is empty")
	}
	if expiry <= 0 {
		return nil, apperr.Configuration("auth.NewTokenService", "token expiry must be positive")
	}
	s := &TokenService{key: key, expiry: expiry, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sign issues a token for the given username and role.
func (s *TokenService) Sign(username string, role models.UserRole) (string, error) {
	now := s.now()
	claims := &Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

// Verify checks the signature and expiry of tokenString and returns its
// claims. A token that cannot be parsed at all is a validation error; every
// other failure is unauthorized.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	const op = "TokenService.Verify"
	if tokenString == "" {
		return nil, apperr.Validation(op, "token is empty")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, apperr.Wrap(apperr.KindValidation, op, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperr.Unauthorized(op, "token expired")
	case err != nil:
		return nil, apperr.Wrap(apperr.KindUnauthorized, op, err)
	case !token.Valid || claims.Username == "":
		return nil, apperr.Unauthorized(op, "invalid token")
	}
	return claims, nil
}
