// Package credential hashes secrets with bcrypt at a fixed cost and verifies
// candidates against stored digests.
package credential

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the documented cost factor for stored digests.
const DefaultCost = bcrypt.DefaultCost

// MaxSecretBytes is the longest secret bcrypt accepts.
const MaxSecretBytes = 72

// ErrSecretTooLong is returned by Hash for secrets over MaxSecretBytes.
var ErrSecretTooLong = fmt.Errorf("secret exceeds %d bytes", MaxSecretBytes)

// ErrEmptySecret is returned by Hash for an empty secret.
var ErrEmptySecret = errors.New("secret is empty")

// Manager is the credential manager. The zero value is not usable; use New.
type Manager struct {
	cost int
}

// New returns a Manager hashing at cost. Out-of-range costs are rejected so
// verification time stays bounded.
func New(cost int) (*Manager, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("credential: cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Manager{cost: cost}, nil
}

// Cost returns the configured cost factor.
func (m *Manager) Cost() int { return m.cost }

// Hash returns a salted bcrypt digest of secret.
func (m *Manager) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	if len(secret) > MaxSecretBytes {
		return "", ErrSecretTooLong
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), m.cost)
	if err != nil {
		return "", fmt.Errorf("credential: hash: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether candidate matches digest. Comparison is done by
// bcrypt in constant time; any error, including a malformed digest, is false.
func (m *Manager) Verify(candidate, digest string) bool {
	if candidate == "" || digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(candidate)) == nil
}
