package challenge

import (
	"context"
	"errors"
	"time"
)

var ErrChallengeNotFound = errors.New("challenge not found or expired")

// Challenge is a single-use nonce bound to one issuance.
type Challenge struct {
	RequestID string
	APIKey    string
	Value     string
	ExpiresAt time.Time
}

// Store keeps live challenges keyed by request id. Implementations own
// expiry: Get must never return an entry older than its ttl. Delete reports
// whether it removed a live entry; deleting a missing entry is not an error.
type Store interface {
	Put(ctx context.Context, c Challenge, ttl time.Duration) error
	Get(ctx context.Context, requestID string) (Challenge, error)
	Delete(ctx context.Context, requestID string) (bool, error)
	Close() error
}
