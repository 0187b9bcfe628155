package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/bitlend/internal/domain/errors"
	"github.com/polkiloo/bitlend/internal/domain/model"
	"github.com/polkiloo/bitlend/internal/domain/repository"
	pkgAuth "github.com/polkiloo/bitlend/internal/pkg/auth"
	"github.com/polkiloo/bitlend/internal/pkg/wallet"
)

const (
	defaultSessionTTL     = 24 * time.Hour
	defaultConnectTimeout = 10 * time.Second
)

// AuthOptions tunes session lifetime and wallet connection bounds.
type AuthOptions struct {
	SessionTTL     time.Duration
	ConnectTimeout time.Duration
}

// AuthUseCase handles user lifecycle and session management.
type AuthUseCase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	locks    repository.ConnectLocker
	hasher   pkgAuth.PasswordHasher
	tokens   pkgAuth.Strategy
	opts     AuthOptions
	log      *slog.Logger
	now      func() time.Time
}

// NewAuthUseCase constructs AuthUseCase.
func NewAuthUseCase(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	locks repository.ConnectLocker,
	hasher pkgAuth.PasswordHasher,
	strategy pkgAuth.Strategy,
	opts AuthOptions,
	log *slog.Logger,
) *AuthUseCase {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &AuthUseCase{
		users:    users,
		sessions: sessions,
		locks:    locks,
		hasher:   hasher,
		tokens:   strategy,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

// Register creates a credential user and opens a session for them.
func (u *AuthUseCase) Register(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	email, err := ValidateCredentials(email, password)
	if err != nil {
		return nil, nil, err
	}

	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, nil, err
	}

	usr, err := u.users.Create(ctx, model.User{
		ID:           uuid.New(),
		Method:       model.AuthMethodCredential,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    u.now().UTC(),
	})
	if err != nil {
		return nil, nil, err
	}

	session, err := u.openSession(ctx, usr)
	if err != nil {
		return nil, nil, err
	}
	return usr, session, nil
}

// LoginWithCredentials validates credentials and replaces any prior session
// of the user.
func (u *AuthUseCase) LoginWithCredentials(ctx context.Context, email, password string) (*model.Session, error) {
	email, err := ValidateCredentials(email, password)
	if err != nil {
		return nil, err
	}

	usr, err := u.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if usr.Method != model.AuthMethodCredential {
		return nil, domainErrors.ErrInvalidCredentials
	}

	if err := u.hasher.Compare(usr.PasswordHash, password); err != nil {
		return nil, domainErrors.ErrInvalidCredentials
	}

	return u.openSession(ctx, usr)
}

// ConnectWallet proves ownership of the provider's address by a signed
// challenge. The call is bounded by the context deadline, or the configured
// connect timeout when ctx has none. At most one connection per address is
// in flight.
func (u *AuthUseCase) ConnectWallet(ctx context.Context, provider wallet.Provider) (*model.Session, error) {
	if provider == nil {
		return nil, domainErrors.ErrProviderUnavailable
	}

	cancel := func() {}
	if _, ok := ctx.Deadline(); !ok {
		ctx, cancel = context.WithTimeout(ctx, u.opts.ConnectTimeout)
	}
	defer cancel()

	address, err := awaitProvider(ctx, provider.Address)
	if err != nil {
		return nil, providerError(err)
	}
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return nil, domainErrors.ErrProviderUnavailable
	}

	lockToken, acquired, err := u.locks.TryLock(ctx, address, u.lockTTL(ctx))
	if err != nil {
		return nil, fmt.Errorf("acquire connect lock: %w", err)
	}
	if !acquired {
		return nil, domainErrors.ErrConnectionInProgress
	}
	defer func() {
		if err := u.locks.Unlock(context.WithoutCancel(ctx), address, lockToken); err != nil {
			u.log.Error("release connect lock", slog.String("address", address), slog.String("error", err.Error()))
		}
	}()

	challenge, err := wallet.NewChallenge()
	if err != nil {
		return nil, err
	}

	sig, err := awaitProvider(ctx, func(ctx context.Context) (wallet.Signature, error) {
		return provider.RequestSignature(ctx, address, challenge)
	})
	if err != nil {
		return nil, providerError(err)
	}
	if !wallet.Verify(address, challenge, sig) {
		return nil, domainErrors.ErrInvalidSignature
	}

	usr, err := u.walletUser(ctx, address)
	if err != nil {
		return nil, err
	}

	session, err := u.openSession(ctx, usr)
	if err != nil {
		return nil, err
	}
	u.log.Info("wallet connected", slog.String("user_id", usr.ID.String()), slog.String("address", address))
	return session, nil
}

// CurrentSession returns the live session behind token, or nil when the
// token is unknown, superseded, revoked or expired. Expired sessions are
// removed on sight.
func (u *AuthUseCase) CurrentSession(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := u.tokens.ParseToken(token)
	if err != nil && !errors.Is(err, pkgAuth.ErrTokenExpired) {
		return nil, nil
	}

	session, err := u.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if session.Token != token {
		return nil, nil
	}

	if session.Expired(u.now()) {
		if err := u.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
			return nil, err
		}
		return nil, nil
	}
	return session, nil
}

// Logout revokes the session behind token. Unknown tokens are ignored.
func (u *AuthUseCase) Logout(ctx context.Context, token string) error {
	session, err := u.CurrentSession(ctx, token)
	if err != nil || session == nil {
		return err
	}
	if err := u.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
		return err
	}
	u.log.Info("session revoked", slog.String("user_id", session.UserID.String()))
	return nil
}

// ParseToken resolves token to the user owning its live session.
func (u *AuthUseCase) ParseToken(ctx context.Context, token string) (uuid.UUID, error) {
	session, err := u.CurrentSession(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	if session == nil {
		return uuid.Nil, pkgAuth.ErrInvalidToken
	}
	return session.UserID, nil
}

// PurgeExpiredSessions compacts the session store. Expiry is enforced on
// lookup regardless of whether a sweep ran.
func (u *AuthUseCase) PurgeExpiredSessions(ctx context.Context) (int, error) {
	return u.sessions.PurgeExpired(ctx, u.now())
}

// GetByID fetches user by identifier.
func (u *AuthUseCase) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return u.users.GetByID(ctx, id)
}

func (u *AuthUseCase) openSession(ctx context.Context, usr *model.User) (*model.Session, error) {
	now := u.now().UTC().Truncate(time.Second)
	session := model.Session{
		ID:        uuid.New(),
		UserID:    usr.ID,
		Method:    usr.Method,
		IssuedAt:  now,
		ExpiresAt: now.Add(u.opts.SessionTTL),
	}

	token, err := u.tokens.IssueToken(pkgAuth.Claims{
		UserID:    session.UserID,
		SessionID: session.ID,
		IssuedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}
	session.Token = token

	if err := u.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (u *AuthUseCase) walletUser(ctx context.Context, address string) (*model.User, error) {
	usr, err := u.users.GetByWallet(ctx, address)
	if err == nil {
		return usr, nil
	}
	if !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, err
	}

	usr, err = u.users.Create(ctx, model.User{
		ID:            uuid.New(),
		Method:        model.AuthMethodWallet,
		WalletAddress: address,
		CreatedAt:     u.now().UTC(),
	})
	if errors.Is(err, domainErrors.ErrAlreadyExists) {
		return u.users.GetByWallet(ctx, address)
	}
	return usr, err
}

func (u *AuthUseCase) lockTTL(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if ttl := time.Until(deadline); ttl > 0 {
			return ttl
		}
	}
	return u.opts.ConnectTimeout
}

// awaitProvider runs fn so that a provider ignoring ctx cannot outlive it.
func awaitProvider[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		val, err := fn(ctx)
		done <- result{val: val, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-done:
		return r.val, r.err
	}
}

func providerError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domainErrors.ErrProviderTimeout
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("wallet connect cancelled: %w", err)
	case errors.Is(err, wallet.ErrUserRejected):
		return domainErrors.ErrUserRejected
	default:
		return fmt.Errorf("%w: %v", domainErrors.ErrProviderUnavailable, err)
	}
}
