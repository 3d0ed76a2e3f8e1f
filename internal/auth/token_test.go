package auth

import (
	"testing"
	"time"

	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("test-signing-key")

// fakeClock is a settable clock for token tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTokens(t *testing.T, expiry time.Duration) (*TokenService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s, err := NewTokenService(testKey, expiry, WithClock(clock.Now))
	require.NoError(t, err)
	return s, clock
}

func TestTokenService_SignVerify(t *testing.T) {
	s, _ := newTestTokens(t, time.Hour)

	token, err := s.Sign("alice", models.RoleUser)
	require.NoError(t, err)

	claims, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleUser, claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC), claims.ExpiresAt.Time.UTC())
}

func TestTokenService_Expired(t *testing.T) {
	s, clock := newTestTokens(t, time.Minute)

	token, err := s.Sign("alice", models.RoleUser)
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, err = s.Verify(token)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = s.Verify(token)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestTokenService_WrongKey(t *testing.T) {
	s, _ := newTestTokens(t, time.Hour)
	other, err := NewTokenService([]byte("another-key"), time.Hour)
	require.NoError(t, err)

	token, err := other.Sign("alice", models.RoleAdmin)
	require.NoError(t, err)

	_, err = s.Verify(token)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	s, clock := newTestTokens(t, time.Hour)

	claims := &Claims{
		Username: "alice",
		Role:     models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testKey)
	require.NoError(t, err)

	_, err = s.Verify(token)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestTokenService_RequiresExpiry(t *testing.T) {
	s, _ := newTestTokens(t, time.Hour)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Username: "alice"}).SignedString(testKey)
	require.NoError(t, err)

	_, err = s.Verify(token)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestTokenService_Malformed(t *testing.T) {
	s, _ := newTestTokens(t, time.Hour)

	_, err := s.Verify("")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = s.Verify("not.a.token")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestNewTokenService_Invalid(t *testing.T) {
	_, err := NewTokenService(nil, time.Hour)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))

	_, err = NewTokenService(testKey, 0)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
}
