package token

import (
	"context"
	"sync/atomic"
)

// AtomicSequence is a process-local MarkerSource.
type AtomicSequence struct {
	n atomic.Uint64
}

// Next returns the next value, starting at 1.
func (s *AtomicSequence) Next(context.Context) (uint64, error) {
	return s.n.Add(1), nil
}
