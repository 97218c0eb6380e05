package usecase

import (
	"context"
	"time"
)

type Clock func() time.Time

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// ObjectStore is the S3-compatible sink for exported dossiers.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// LinkGenerator returns a fresh signing link token.
type LinkGenerator func() (string, error)

// NumberGenerator returns the contract number for a branch code at now. The
// attempt argument starts at 0 and grows with each unique-key collision.
type NumberGenerator func(branchCode string, now time.Time, attempt int) (string, error)

func nowFrom(clock Clock) time.Time {
	if clock != nil {
		return clock().UTC().Truncate(time.Microsecond)
	}
	return time.Now().UTC().Truncate(time.Microsecond)
}
