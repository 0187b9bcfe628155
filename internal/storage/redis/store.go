package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/bitlend/internal/domain/errors"
	"github.com/polkiloo/bitlend/internal/domain/model"
	"github.com/polkiloo/bitlend/internal/domain/repository"
)

const (
	sessionPrefix  = "bitlend:session:id:"
	userPrefix     = "bitlend:session:user:"
	lockPrefix     = "bitlend:lock:wallet:"
	defaultLockTTL = 30 * time.Second
	scanBatch      = 100
)

// saveSession replaces the user's previous session, if any, with the new one.
var saveSession = goredis.NewScript(`
local prev = redis.call('GET', KEYS[2])
if prev and prev ~= ARGV[3] then
	redis.call('DEL', ARGV[4] .. prev)
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
redis.call('SET', KEYS[2], ARGV[3], 'PX', ARGV[2])
return 1
`)

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = goredis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Store keeps sessions and wallet connect locks in Redis.
type Store struct {
	client goredis.UniversalClient
	logger *slog.Logger
	now    func() time.Time
}

type sessionRepository struct{ store *Store }

type connectLocker struct{ store *Store }

type sessionRecord struct {
	ID        uuid.UUID        `json:"id"`
	Token     string           `json:"token"`
	UserID    uuid.UUID        `json:"user_id"`
	Method    model.AuthMethod `json:"method"`
	IssuedAt  time.Time        `json:"issued_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// New wraps an existing client.
func New(client goredis.UniversalClient, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Sessions returns the session repository.
func (s *Store) Sessions() repository.SessionRepository {
	return &sessionRepository{store: s}
}

// Locks returns the wallet connect locker.
func (s *Store) Locks() repository.ConnectLocker {
	return &connectLocker{store: s}
}

// HealthCheck pings the server.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func sessionKey(id uuid.UUID) string { return sessionPrefix + id.String() }

func userKey(id uuid.UUID) string { return userPrefix + id.String() }

func (r *sessionRepository) Save(ctx context.Context, session model.Session) error {
	ttl := session.ExpiresAt.Sub(r.store.now())
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	raw, err := json.Marshal(sessionRecord(session))
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	keys := []string{sessionKey(session.ID), userKey(session.UserID)}
	if err := saveSession.Run(ctx, r.store.client, keys, raw, ttl.Milliseconds(), session.ID.String(), sessionPrefix).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	raw, err := r.store.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}

	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	session := model.Session(rec)
	return &session, nil
}

func (r *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	session, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := r.store.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return err
	}
	return compareAndDelete.Run(ctx, r.store.client, []string{userKey(session.UserID)}, id.String()).Err()
}

// PurgeExpired drops sessions whose expiry passed according to now. Redis
// evicts them on its own once the key TTL elapses, so this only matters when
// clocks disagree.
func (r *sessionRepository) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	purged := 0
	iter := r.store.client.Scan(ctx, 0, sessionPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		id, err := uuid.Parse(iter.Val()[len(sessionPrefix):])
		if err != nil {
			continue
		}
		session, err := r.Get(ctx, id)
		if errors.Is(err, domainErrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return purged, err
		}
		if !session.Expired(now) {
			continue
		}
		if err := r.Delete(ctx, id); err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
			return purged, err
		}
		purged++
	}
	return purged, iter.Err()
}

func (l *connectLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	token, err := newToken()
	if err != nil {
		return "", false, err
	}

	ok, err := l.store.client.SetNX(ctx, lockPrefix+key, token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// Unlock releases key only while it still holds token.
func (l *connectLocker) Unlock(ctx context.Context, key, token string) error {
	if token == "" {
		return nil
	}
	return compareAndDelete.Run(ctx, l.store.client, []string{lockPrefix + key}, token).Err()
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
