package redis

import (
	"context"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultSequenceKey holds the token issuance counter.
const DefaultSequenceKey = "docshare:token:seq"

// Sequence is a cluster-wide MarkerSource backed by INCR. When Redis is
// unreachable it falls back to a local counter; the token's jti nonce keeps
// tokens distinct either way.
type Sequence struct {
	client *redis.Client
	key    string
	log    zerolog.Logger

	fallback atomic.Uint64
}

// NewSequence creates a Sequence on key, or DefaultSequenceKey when empty.
func NewSequence(client *redis.Client, key string, log zerolog.Logger) *Sequence {
	if key == "" {
		key = DefaultSequenceKey
	}
	return &Sequence{client: client, key: key, log: log}
}

// Next returns the next sequence value.
func (s *Sequence) Next(ctx context.Context) (uint64, error) {
	n, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("redis sequence unavailable, using local counter")
		return s.fallback.Add(1), nil
	}
	return uint64(n), nil
}
