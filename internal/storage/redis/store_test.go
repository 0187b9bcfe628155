package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	domainErrors "github.com/polkiloo/bitlend/internal/domain/errors"
	"github.com/polkiloo/bitlend/internal/domain/model"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, slog.New(slog.NewJSONHandler(io.Discard, nil))), mr
}

func newSession(user uuid.UUID, issued time.Time, ttl time.Duration) model.Session {
	id := uuid.New()
	return model.Session{
		ID:        id,
		Token:     "token-" + id.String(),
		UserID:    user,
		Method:    model.AuthMethodCredential,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(ttl),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	repo := store.Sessions()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	s := newSession(uuid.New(), now, time.Hour)
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, s.ID, got.ID)
	require.Equal(t, s.Token, got.Token)
	require.Equal(t, s.UserID, got.UserID)
	require.Equal(t, s.Method, got.Method)
	require.True(t, s.ExpiresAt.Equal(got.ExpiresAt))

	ttl := mr.TTL(sessionKey(s.ID))
	require.Greater(t, ttl, 59*time.Minute)
	require.LessOrEqual(t, ttl, time.Hour)

	_, err = repo.Get(ctx, uuid.New())
	require.ErrorIs(t, err, domainErrors.ErrNotFound)
}

func TestSessionSaveReplacesPrevious(t *testing.T) {
	store, mr := newTestStore(t)
	repo := store.Sessions()
	ctx := context.Background()

	user := uuid.New()
	now := time.Now().UTC()
	first := newSession(user, now, time.Hour)
	second := newSession(user, now, time.Hour)
	other := newSession(uuid.New(), now, time.Hour)

	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, other))
	require.NoError(t, repo.Save(ctx, second))

	_, err := repo.Get(ctx, first.ID)
	require.ErrorIs(t, err, domainErrors.ErrNotFound)
	_, err = repo.Get(ctx, second.ID)
	require.NoError(t, err)
	_, err = repo.Get(ctx, other.ID)
	require.NoError(t, err)

	index, err := mr.Get(userKey(user))
	require.NoError(t, err)
	require.Equal(t, second.ID.String(), index)

	// saving the same session again must not delete it
	require.NoError(t, repo.Save(ctx, second))
	_, err = repo.Get(ctx, second.ID)
	require.NoError(t, err)
}

func TestSessionDelete(t *testing.T) {
	store, mr := newTestStore(t)
	repo := store.Sessions()
	ctx := context.Background()

	user := uuid.New()
	s := newSession(user, time.Now(), time.Hour)
	require.NoError(t, repo.Save(ctx, s))

	require.NoError(t, repo.Delete(ctx, s.ID))
	_, err := repo.Get(ctx, s.ID)
	require.ErrorIs(t, err, domainErrors.ErrNotFound)
	require.False(t, mr.Exists(userKey(user)))

	require.ErrorIs(t, repo.Delete(ctx, s.ID), domainErrors.ErrNotFound)
}

func TestSessionExpiresWithKeyTTL(t *testing.T) {
	store, mr := newTestStore(t)
	repo := store.Sessions()
	ctx := context.Background()

	s := newSession(uuid.New(), time.Now(), time.Minute)
	require.NoError(t, repo.Save(ctx, s))

	mr.FastForward(2 * time.Minute)
	_, err := repo.Get(ctx, s.ID)
	require.ErrorIs(t, err, domainErrors.ErrNotFound)
}

func TestSessionPurgeExpired(t *testing.T) {
	store, _ := newTestStore(t)
	repo := store.Sessions()
	ctx := context.Background()

	now := time.Now().UTC()
	short := newSession(uuid.New(), now, time.Minute)
	long := newSession(uuid.New(), now, time.Hour)
	require.NoError(t, repo.Save(ctx, short))
	require.NoError(t, repo.Save(ctx, long))

	n, err := repo.PurgeExpired(ctx, now.Add(10*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = repo.Get(ctx, short.ID)
	require.ErrorIs(t, err, domainErrors.ErrNotFound)
	_, err = repo.Get(ctx, long.ID)
	require.NoError(t, err)

	n, err = repo.PurgeExpired(ctx, now.Add(10*time.Minute))
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestConnectLocker(t *testing.T) {
	store, mr := newTestStore(t)
	locks := store.Locks()
	ctx := context.Background()

	token, ok, err := locks.TryLock(ctx, "bl1abc", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locks.TryLock(ctx, "bl1abc", time.Second)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = locks.TryLock(ctx, "bl1def", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locks.Unlock(ctx, "bl1abc", token))
	_, ok, err = locks.TryLock(ctx, "bl1abc", 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, defaultLockTTL, mr.TTL(lockPrefix+"bl1abc"))

	require.NoError(t, locks.Unlock(ctx, "never-locked", ""))
}

func TestConnectLockerExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	locks := store.Locks()
	ctx := context.Background()

	stale, ok, err := locks.TryLock(ctx, "bl1abc", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	// a second attempt in the same process takes over the expired lock
	current, ok, err := locks.TryLock(ctx, "bl1abc", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locks.Unlock(ctx, "bl1abc", stale))
	held, err := mr.Get(lockPrefix + "bl1abc")
	require.NoError(t, err)
	require.Equal(t, current, held, "unlock must not release a lock owned by someone else")

	require.NoError(t, locks.Unlock(ctx, "bl1abc", current))
	require.False(t, mr.Exists(lockPrefix+"bl1abc"))
}

func TestStoreErrors(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.HealthCheck(ctx))

	mr.Close()
	require.Error(t, store.HealthCheck(ctx))
	require.Error(t, store.Sessions().Save(ctx, newSession(uuid.New(), time.Now(), time.Hour)))
	_, err := store.Sessions().Get(ctx, uuid.New())
	require.Error(t, err)
	require.NotErrorIs(t, err, domainErrors.ErrNotFound)
	_, _, err = store.Locks().TryLock(ctx, "bl1abc", time.Second)
	require.Error(t, err)
}

func TestSessionGetCorruptRecord(t *testing.T) {
	store, mr := newTestStore(t)
	id := uuid.New()
	require.NoError(t, mr.Set(sessionKey(id), "{not json"))
	_, err := store.Sessions().Get(context.Background(), id)
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	lc := fxtest.NewLifecycle(t)
	store, err := Open(context.Background(), lc, mr.Addr(), logger)
	require.NoError(t, err)
	lc.RequireStart()
	require.NoError(t, store.HealthCheck(context.Background()))
	lc.RequireStop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = Open(ctx, fxtest.NewLifecycle(t), "127.0.0.1:1", logger)
	require.Error(t, err)
}
