package test

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/polkiloo/bitlend/internal/domain/model"
	pkgAuth "github.com/polkiloo/bitlend/internal/pkg/auth"
	"github.com/polkiloo/bitlend/internal/pkg/wallet"
)

// HasherStub provides deterministic hashing for tests.
type HasherStub struct {
	HashFn    func(string) (string, error)
	CompareFn func(string, string) error
}

// Hash returns a predictable hash for the supplied password.
func (h HasherStub) Hash(password string) (string, error) {
	if h.HashFn != nil {
		return h.HashFn(password)
	}
	return "hash:" + password, nil
}

// Compare validates password against stored hash.
func (h HasherStub) Compare(hash string, password string) error {
	if h.CompareFn != nil {
		return h.CompareFn(hash, password)
	}
	if hash != "hash:"+password {
		return errors.New("mismatch")
	}
	return nil
}

// StrategyStub issues and parses tokens via function overrides. Without
// overrides a token is the session ID itself.
type StrategyStub struct {
	IssueFn func(pkgAuth.Claims) (string, error)
	ParseFn func(string) (pkgAuth.Claims, error)
	NameVal string
}

// IssueToken returns deterministic tokens for tests.
func (s StrategyStub) IssueToken(claims pkgAuth.Claims) (string, error) {
	if s.IssueFn != nil {
		return s.IssueFn(claims)
	}
	return claims.SessionID.String(), nil
}

// ParseToken parses previously issued token strings.
func (s StrategyStub) ParseToken(token string) (pkgAuth.Claims, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	id, err := uuid.Parse(token)
	if err != nil {
		return pkgAuth.Claims{}, pkgAuth.ErrInvalidToken
	}
	return pkgAuth.Claims{SessionID: id}, nil
}

// Name returns the strategy identifier used in tests.
func (s StrategyStub) Name() string {
	if s.NameVal != "" {
		return s.NameVal
	}
	return "stub"
}

// TokenParserStub implements middleware token parsing contract.
type TokenParserStub struct {
	ID      uuid.UUID
	Err     error
	ParseFn func(context.Context, string) (uuid.UUID, error)
}

// ParseToken either delegates to override or returns predefined result.
func (s TokenParserStub) ParseToken(ctx context.Context, token string) (uuid.UUID, error) {
	if s.ParseFn != nil {
		return s.ParseFn(ctx, token)
	}
	if s.Err != nil {
		return uuid.Nil, s.Err
	}
	return s.ID, nil
}

// AuthFacadeStub simulates authentication facade interactions.
type AuthFacadeStub struct {
	RegisterFn func(context.Context, string, string) (*model.Session, error)
	LoginFn    func(context.Context, string, string) (*model.Session, error)
	ConnectFn  func(context.Context, wallet.Provider) (*model.Session, error)
	SessionFn  func(context.Context, string) (*model.Session, error)
	LogoutFn   func(context.Context, string) error
	ParseFn    func(context.Context, string) (uuid.UUID, error)
}

// Register returns a session for successful registration scenarios.
func (s AuthFacadeStub) Register(ctx context.Context, email, password string) (*model.Session, error) {
	if s.RegisterFn != nil {
		return s.RegisterFn(ctx, email, password)
	}
	return &model.Session{Token: "token"}, nil
}

// Login returns a session for successful login scenarios.
func (s AuthFacadeStub) Login(ctx context.Context, email, password string) (*model.Session, error) {
	if s.LoginFn != nil {
		return s.LoginFn(ctx, email, password)
	}
	return &model.Session{Token: "token"}, nil
}

// ConnectWallet delegates to override or returns a fixed session.
func (s AuthFacadeStub) ConnectWallet(ctx context.Context, provider wallet.Provider) (*model.Session, error) {
	if s.ConnectFn != nil {
		return s.ConnectFn(ctx, provider)
	}
	return &model.Session{Token: "wallet-token", Method: model.AuthMethodWallet}, nil
}

// CurrentSession returns configured session lookup.
func (s AuthFacadeStub) CurrentSession(ctx context.Context, token string) (*model.Session, error) {
	if s.SessionFn != nil {
		return s.SessionFn(ctx, token)
	}
	return nil, nil
}

// Logout executes configured override.
func (s AuthFacadeStub) Logout(ctx context.Context, token string) error {
	if s.LogoutFn != nil {
		return s.LogoutFn(ctx, token)
	}
	return nil
}

// ParseToken returns stored identifier for authenticated user.
func (s AuthFacadeStub) ParseToken(ctx context.Context, token string) (uuid.UUID, error) {
	if s.ParseFn != nil {
		return s.ParseFn(ctx, token)
	}
	return uuid.Nil, nil
}

// LendingFacadeStub aggregates facade dependencies for HTTP layer tests.
type LendingFacadeStub struct {
	AuthFacadeStub
	LoanFacadeStub
}

var _ pkgAuth.PasswordHasher = HasherStub{}
var _ pkgAuth.Strategy = StrategyStub{}
