// Package memory keeps all repositories in process memory. It backs the
// service when no database is configured and serves as the reference
// implementation in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/bitlend/internal/domain/errors"
	"github.com/polkiloo/bitlend/internal/domain/model"
	"github.com/polkiloo/bitlend/internal/domain/repository"
)

// Storage acts as repository facade over in-memory maps.
//
// Loan mutations hold the loan's own mutex while fn runs and take the store
// lock only to publish the result, so readers are never blocked by caller code.
type Storage struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]model.User
	emails  map[string]uuid.UUID
	wallets map[string]uuid.UUID
	loans   map[uuid.UUID]*loanEntry
	ledger  []model.Transaction

	sessMu   sync.Mutex
	sessions map[uuid.UUID]model.Session
	byUser   map[uuid.UUID]uuid.UUID
	pending  map[string]pendingLock

	now func() time.Time
}

type pendingLock struct {
	token   string
	expires time.Time
}

type loanEntry struct {
	mu   sync.Mutex
	loan model.Loan
}

type userRepository struct{ storage *Storage }

type loanRepository struct{ storage *Storage }

type transactionRepository struct{ storage *Storage }

type sessionRepository struct{ storage *Storage }

type connectLocker struct{ storage *Storage }

// New creates empty storage.
func New() *Storage {
	return &Storage{
		users:    make(map[uuid.UUID]model.User),
		emails:   make(map[string]uuid.UUID),
		wallets:  make(map[string]uuid.UUID),
		loans:    make(map[uuid.UUID]*loanEntry),
		sessions: make(map[uuid.UUID]model.Session),
		byUser:   make(map[uuid.UUID]uuid.UUID),
		pending:  make(map[string]pendingLock),
		now:      time.Now,
	}
}

func (s *Storage) Users() repository.UserRepository {
	return &userRepository{storage: s}
}

func (s *Storage) Loans() repository.LoanRepository {
	return &loanRepository{storage: s}
}

func (s *Storage) Transactions() repository.TransactionRepository {
	return &transactionRepository{storage: s}
}

func (s *Storage) Sessions() repository.SessionRepository {
	return &sessionRepository{storage: s}
}

func (s *Storage) Locks() repository.ConnectLocker {
	return &connectLocker{storage: s}
}

// --- UserRepository implementation ---

func (r *userRepository) Create(_ context.Context, user model.User) (*model.User, error) {
	s := r.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return nil, domainErrors.ErrAlreadyExists
	}
	if user.Email != "" {
		if _, exists := s.emails[user.Email]; exists {
			return nil, domainErrors.ErrAlreadyExists
		}
	}
	if user.WalletAddress != "" {
		if _, exists := s.wallets[user.WalletAddress]; exists {
			return nil, domainErrors.ErrAlreadyExists
		}
	}

	s.users[user.ID] = user
	if user.Email != "" {
		s.emails[user.Email] = user.ID
	}
	if user.WalletAddress != "" {
		s.wallets[user.WalletAddress] = user.ID
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return r.lookup(r.storage.emails, email)
}

func (r *userRepository) GetByWallet(_ context.Context, address string) (*model.User, error) {
	return r.lookup(r.storage.wallets, address)
}

func (r *userRepository) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s := r.storage
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &user, nil
}

func (r *userRepository) lookup(index map[string]uuid.UUID, key string) (*model.User, error) {
	s := r.storage
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := index[key]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	user := s.users[id]
	return &user, nil
}

// --- LoanRepository implementation ---

func (r *loanRepository) Create(_ context.Context, loan model.Loan) error {
	s := r.storage
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.loans[loan.ID]; exists {
		return domainErrors.ErrAlreadyExists
	}
	s.loans[loan.ID] = &loanEntry{loan: loan.Clone()}
	return nil
}

func (r *loanRepository) Get(_ context.Context, id uuid.UUID) (*model.Loan, error) {
	s := r.storage
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.loans[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	loan := e.loan.Clone()
	return &loan, nil
}

func (r *loanRepository) Update(ctx context.Context, id uuid.UUID, fn repository.LoanMutation) (*model.Loan, error) {
	s := r.storage
	s.mu.RLock()
	e, ok := s.loans[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domainErrors.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	next := e.loan.Clone()
	s.mu.RUnlock()

	txs, err := fn(&next)
	if err != nil {
		return nil, err
	}
	next.ID = id

	s.mu.Lock()
	e.loan = next.Clone()
	s.ledger = append(s.ledger, txs...)
	s.mu.Unlock()

	return &next, nil
}

func (r *loanRepository) ListByStatus(_ context.Context, status model.LoanStatus) ([]model.Loan, error) {
	return r.filter(func(l model.Loan) bool { return l.Status == status }), nil
}

func (r *loanRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Loan, error) {
	return r.filter(func(l model.Loan) bool { return l.BorrowerID == userID || l.IsLender(userID) }), nil
}

func (r *loanRepository) filter(keep func(model.Loan) bool) []model.Loan {
	s := r.storage
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]model.Loan, 0)
	for _, e := range s.loans {
		if keep(e.loan) {
			result = append(result, e.loan.Clone())
		}
	}
	return result
}

// --- TransactionRepository implementation ---

func (r *transactionRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Transaction, error) {
	s := r.storage
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]model.Transaction, 0)
	for i := len(s.ledger) - 1; i >= 0; i-- {
		if s.ledger[i].UserID == userID {
			result = append(result, s.ledger[i])
		}
	}
	return result, nil
}

// --- SessionRepository implementation ---

func (r *sessionRepository) Save(_ context.Context, session model.Session) error {
	s := r.storage
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	if prev, ok := s.byUser[session.UserID]; ok {
		delete(s.sessions, prev)
	}
	s.sessions[session.ID] = session
	s.byUser[session.UserID] = session.ID
	return nil
}

func (r *sessionRepository) Get(_ context.Context, id uuid.UUID) (*model.Session, error) {
	s := r.storage
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &session, nil
}

func (r *sessionRepository) Delete(_ context.Context, id uuid.UUID) error {
	s := r.storage
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	s.drop(session)
	return nil
}

func (r *sessionRepository) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	s := r.storage
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	purged := 0
	for _, session := range s.sessions {
		if session.Expired(now) {
			s.drop(session)
			purged++
		}
	}
	return purged, nil
}

// drop requires sessMu.
func (s *Storage) drop(session model.Session) {
	delete(s.sessions, session.ID)
	if s.byUser[session.UserID] == session.ID {
		delete(s.byUser, session.UserID)
	}
}

// --- ConnectLocker implementation ---

func (l *connectLocker) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	s := l.storage
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	now := s.now()
	if held, ok := s.pending[key]; ok && now.Before(held.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	s.pending[key] = pendingLock{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

func (l *connectLocker) Unlock(_ context.Context, key, token string) error {
	s := l.storage
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	if held, ok := s.pending[key]; ok && held.token == token {
		delete(s.pending, key)
	}
	return nil
}
