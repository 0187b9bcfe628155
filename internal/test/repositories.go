package test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/bitlend/internal/domain/errors"
	"github.com/polkiloo/bitlend/internal/domain/model"
	"github.com/polkiloo/bitlend/internal/domain/repository"
)

// UserRepositoryStub stores users in-memory for tests.
type UserRepositoryStub struct {
	mu      sync.Mutex
	ByID    map[uuid.UUID]*model.User
	Emails  map[string]*model.User
	Wallets map[string]*model.User
	Err     error
}

// NewUserRepositoryStub constructs stub repository with initialized maps.
func NewUserRepositoryStub() *UserRepositoryStub {
	return &UserRepositoryStub{
		ByID:    make(map[uuid.UUID]*model.User),
		Emails:  make(map[string]*model.User),
		Wallets: make(map[string]*model.User),
	}
}

// Create registers user unless already exists or stub has explicit error.
func (s *UserRepositoryStub) Create(ctx context.Context, user model.User) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if _, exists := s.Emails[user.Email]; exists && user.Email != "" {
		return nil, domainErrors.ErrAlreadyExists
	}
	if _, exists := s.Wallets[user.WalletAddress]; exists && user.WalletAddress != "" {
		return nil, domainErrors.ErrAlreadyExists
	}
	stored := user
	s.ByID[user.ID] = &stored
	if user.Email != "" {
		s.Emails[user.Email] = &stored
	}
	if user.WalletAddress != "" {
		s.Wallets[user.WalletAddress] = &stored
	}
	return &stored, nil
}

// GetByEmail fetches user by email or returns not found.
func (s *UserRepositoryStub) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.get(s.Emails, email)
}

// GetByWallet fetches user by wallet address or returns not found.
func (s *UserRepositoryStub) GetByWallet(ctx context.Context, address string) (*model.User, error) {
	return s.get(s.Wallets, address)
}

// GetByID fetches user by identifier or returns not found.
func (s *UserRepositoryStub) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := s.ByID[id]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

func (s *UserRepositoryStub) get(index map[string]*model.User, key string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := index[key]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

// SessionRepositoryStub keeps sessions in a map and allows error injection.
type SessionRepositoryStub struct {
	mu       sync.Mutex
	Sessions map[uuid.UUID]model.Session
	SaveErr  error
	GetErr   error
	Purged   []time.Time
}

// NewSessionRepositoryStub constructs an empty stub.
func NewSessionRepositoryStub() *SessionRepositoryStub {
	return &SessionRepositoryStub{Sessions: make(map[uuid.UUID]model.Session)}
}

// Save replaces sessions of the same user.
func (s *SessionRepositoryStub) Save(ctx context.Context, session model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	for id, existing := range s.Sessions {
		if existing.UserID == session.UserID {
			delete(s.Sessions, id)
		}
	}
	s.Sessions[session.ID] = session
	return nil
}

// Get returns stored session or not found.
func (s *SessionRepositoryStub) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	session, ok := s.Sessions[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &session, nil
}

// Delete removes a session.
func (s *SessionRepositoryStub) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Sessions[id]; !ok {
		return domainErrors.ErrNotFound
	}
	delete(s.Sessions, id)
	return nil
}

// PurgeExpired records the sweep time and drops expired sessions.
func (s *SessionRepositoryStub) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Purged = append(s.Purged, now)
	n := 0
	for id, session := range s.Sessions {
		if session.Expired(now) {
			delete(s.Sessions, id)
			n++
		}
	}
	return n, nil
}

// Len reports how many sessions are stored.
func (s *SessionRepositoryStub) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Sessions)
}

// ConnectLockerStub tracks held keys.
type ConnectLockerStub struct {
	mu      sync.Mutex
	Held    map[string]string
	LockErr error
	Unlocks int
	seq     int
}

// NewConnectLockerStub constructs a locker without held keys.
func NewConnectLockerStub() *ConnectLockerStub {
	return &ConnectLockerStub{Held: make(map[string]string)}
}

// TryLock fails when key is held.
func (l *ConnectLockerStub) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.LockErr != nil {
		return "", false, l.LockErr
	}
	if _, held := l.Held[key]; held {
		return "", false, nil
	}
	l.seq++
	token := fmt.Sprintf("lock-%d", l.seq)
	l.Held[key] = token
	return token, true, nil
}

// Unlock releases key when token owns it.
func (l *ConnectLockerStub) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Held[key] == token {
		delete(l.Held, key)
	}
	l.Unlocks++
	return nil
}

// IsHeld reports whether key is currently locked.
func (l *ConnectLockerStub) IsHeld(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, held := l.Held[key]
	return held
}

// LoanRepositoryStub lets tests override individual loan operations.
type LoanRepositoryStub struct {
	CreateFn       func(context.Context, model.Loan) error
	GetFn          func(context.Context, uuid.UUID) (*model.Loan, error)
	UpdateFn       func(context.Context, uuid.UUID, repository.LoanMutation) (*model.Loan, error)
	ListByStatusFn func(context.Context, model.LoanStatus) ([]model.Loan, error)
	ListByUserFn   func(context.Context, uuid.UUID) ([]model.Loan, error)
}

func (s *LoanRepositoryStub) Create(ctx context.Context, loan model.Loan) error {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, loan)
	}
	return nil
}

func (s *LoanRepositoryStub) Get(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, id)
	}
	return nil, domainErrors.ErrNotFound
}

func (s *LoanRepositoryStub) Update(ctx context.Context, id uuid.UUID, fn repository.LoanMutation) (*model.Loan, error) {
	if s.UpdateFn != nil {
		return s.UpdateFn(ctx, id, fn)
	}
	return nil, domainErrors.ErrNotFound
}

func (s *LoanRepositoryStub) ListByStatus(ctx context.Context, status model.LoanStatus) ([]model.Loan, error) {
	if s.ListByStatusFn != nil {
		return s.ListByStatusFn(ctx, status)
	}
	return nil, nil
}

func (s *LoanRepositoryStub) ListByUser(ctx context.Context, user uuid.UUID) ([]model.Loan, error) {
	if s.ListByUserFn != nil {
		return s.ListByUserFn(ctx, user)
	}
	return nil, nil
}

// TransactionRepositoryStub returns configured ledger entries.
type TransactionRepositoryStub struct {
	ListFn func(context.Context, uuid.UUID) ([]model.Transaction, error)
	Items  []model.Transaction
}

// ListByUser returns configured transactions.
func (s *TransactionRepositoryStub) ListByUser(ctx context.Context, user uuid.UUID) ([]model.Transaction, error) {
	if s.ListFn != nil {
		return s.ListFn(ctx, user)
	}
	return s.Items, nil
}
