package ports

import (
	"context"

	"github.com/docshare/identity-api/internal/core/domain"
)

// Credentials hashes and verifies secrets.
type Credentials interface {
	Hash(secret string) (string, error)
	// Verify reports whether candidate matches digest. It never fails loudly:
	// malformed digests and empty candidates simply yield false.
	Verify(candidate, digest string) bool
}

// TokenIssuer mints signed, identity-bound session tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, identity domain.Snapshot) (string, error)
}

// MarkerSource hands out per-issuance sequence numbers. Implementations
// must be safe for concurrent use.
type MarkerSource interface {
	Next(ctx context.Context) (uint64, error)
}
