package auth

import (
	"fmt"

	"ctchen222/todo-api/internal/apperr"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt work factor used when none is configured.
const DefaultHashCost = 10

// Hasher hashes and verifies secrets with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given bcrypt cost.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, apperr.Configuration("auth.NewHasher",
			fmt.Sprintf("hash cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost))
	}
	return &Hasher{cost: cost}, nil
}

// Hash returns the encoded salt and digest of secret. A new salt is generated
// on every call.
func (h *Hasher) Hash(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether secret matches the encoded hash.
func (h *Hasher) Verify(secret, encoded string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(secret)) == nil
}
