package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/polkiloo/bitlend/internal/domain/model"
)

// SessionRepository stores live sessions. Saving a session replaces any
// previous session of the same user.
type SessionRepository interface {
	Save(ctx context.Context, session model.Session) error
	Get(ctx context.Context, id uuid.UUID) (*model.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// ConnectLocker guards in-flight wallet connections per address.
type ConnectLocker interface {
	// TryLock returns the owner token of a fresh lock, or false when a
	// connection for key is already pending.
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	// Unlock releases key only while token still owns it. A lock that expired
	// and was taken over stays with its new owner.
	Unlock(ctx context.Context, key, token string) error
}
