// Package token issues and parses HS256 session tokens bound to a user
// identity snapshot.
package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/docshare/identity-api/internal/core/domain"
	"github.com/docshare/identity-api/internal/core/ports"
)

const defaultTTL = 24 * time.Hour

var (
	// ErrMissingKey is returned by NewIssuer when no signing key is configured.
	ErrMissingKey = errors.New("token: signing key is empty")
	// ErrInvalidToken covers bad signatures, wrong algorithms, expiry and garbage input.
	ErrInvalidToken = errors.New("token: invalid token")
)

// Claims is the signed payload. Seq and the registered jti/iat together form
// the per-issuance uniqueness marker.
type Claims struct {
	User domain.Snapshot `json:"user"`
	Seq  uint64          `json:"seq"`
	jwt.RegisteredClaims
}

// Issuer signs tokens with a key fixed at construction.
type Issuer struct {
	key     []byte
	ttl     time.Duration
	markers ports.MarkerSource
	now     func() time.Time
}

// NewIssuer copies key and returns an Issuer. A nil markers uses an
// in-process atomic sequence.
func NewIssuer(key []byte, ttl time.Duration, markers ports.MarkerSource) (*Issuer, error) {
	if len(key) == 0 {
		return nil, ErrMissingKey
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if markers == nil {
		markers = &AtomicSequence{}
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Issuer{key: k, ttl: ttl, markers: markers, now: time.Now}, nil
}

// Issue mints a token for identity. Failures are internal: they never
// carry identity data.
func (i *Issuer) Issue(ctx context.Context, identity domain.Snapshot) (string, error) {
	seq, err := i.markers.Next(ctx)
	if err != nil {
		return "", domain.Wrap(domain.CauseInternal, fmt.Errorf("token marker: %w", err))
	}

	now := i.now()
	claims := Claims{
		User: identity,
		Seq:  seq,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(identity.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", domain.Wrap(domain.CauseInternal, fmt.Errorf("token sign: %w", err))
	}
	return signed, nil
}

// Parse verifies raw and returns its claims.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return i.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
