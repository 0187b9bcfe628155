package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/polkiloo/bitlend/internal/domain/errors"
	"github.com/polkiloo/bitlend/internal/domain/model"
	"github.com/polkiloo/bitlend/internal/domain/repository"
)

const uniqueViolation = "23505"

type pgxPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error)
	Ping(context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type userRepository struct {
	storage *Storage
}

type loanRepository struct {
	storage *Storage
}

type transactionRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Users() repository.UserRepository {
	return &userRepository{storage: s}
}

func (s *Storage) Loans() repository.LoanRepository {
	return &loanRepository{storage: s}
}

func (s *Storage) Transactions() repository.TransactionRepository {
	return &transactionRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            method TEXT NOT NULL,
            email TEXT UNIQUE,
            password_hash TEXT NOT NULL DEFAULT '',
            wallet_address TEXT UNIQUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS loans (
            id UUID PRIMARY KEY,
            borrower_id UUID NOT NULL REFERENCES users(id),
            lender_id UUID REFERENCES users(id),
            principal BIGINT NOT NULL CHECK (principal > 0),
            rate_bps INTEGER NOT NULL CHECK (rate_bps >= 0),
            term_days INTEGER NOT NULL CHECK (term_days > 0),
            status TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            funded_at TIMESTAMPTZ,
            due_at TIMESTAMPTZ,
            repaid_at TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS transactions (
            seq BIGSERIAL PRIMARY KEY,
            id UUID UNIQUE NOT NULL,
            loan_id UUID REFERENCES loans(id),
            user_id UUID NOT NULL REFERENCES users(id),
            type TEXT NOT NULL,
            direction TEXT NOT NULL,
            amount BIGINT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_borrower ON loans(borrower_id)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_lender ON loans(lender_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, seq DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// --- UserRepository implementation ---

const userColumns = `id, method, email, password_hash, wallet_address, created_at`

func (r *userRepository) Create(ctx context.Context, user model.User) (*model.User, error) {
	const query = `INSERT INTO users (id, method, email, password_hash, wallet_address, created_at)
                   VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.storage.pool.Exec(ctx, query,
		user.ID, user.Method, nullable(user.Email), user.PasswordHash, nullable(user.WalletAddress), user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *userRepository) GetByWallet(ctx context.Context, address string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE wallet_address=$1`, address)
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var (
		u             model.User
		email, wallet *string
	)
	err := r.storage.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Method, &email, &u.PasswordHash, &wallet, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	u.Email = deref(email)
	u.WalletAddress = deref(wallet)
	return &u, nil
}

// --- LoanRepository implementation ---

const loanColumns = `id, borrower_id, lender_id, principal, rate_bps, term_days, status, created_at, funded_at, due_at, repaid_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanLoan(row scanner) (model.Loan, error) {
	var l model.Loan
	err := row.Scan(&l.ID, &l.BorrowerID, &l.LenderID, &l.Principal, &l.RateBps, &l.TermDays, &l.Status,
		&l.CreatedAt, &l.FundedAt, &l.DueAt, &l.RepaidAt)
	return l, err
}

func (r *loanRepository) Create(ctx context.Context, loan model.Loan) error {
	const query = `INSERT INTO loans (` + loanColumns + `)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.storage.pool.Exec(ctx, query,
		loan.ID, loan.BorrowerID, loan.LenderID, loan.Principal, loan.RateBps, loan.TermDays, loan.Status,
		loan.CreatedAt, loan.FundedAt, loan.DueAt, loan.RepaidAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domainErrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *loanRepository) Get(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	const query = `SELECT ` + loanColumns + ` FROM loans WHERE id=$1`
	loan, err := scanLoan(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &loan, nil
}

// Update locks the loan row for the duration of fn. The mutated loan and the
// produced ledger entries commit together.
func (r *loanRepository) Update(ctx context.Context, id uuid.UUID, fn repository.LoanMutation) (*model.Loan, error) {
	const (
		selectQuery = `SELECT ` + loanColumns + ` FROM loans WHERE id=$1 FOR UPDATE`
		updateQuery = `UPDATE loans SET lender_id=$2, status=$3, funded_at=$4, due_at=$5, repaid_at=$6 WHERE id=$1`
		insertTx    = `INSERT INTO transactions (id, loan_id, user_id, type, direction, amount, created_at)
                       VALUES ($1, $2, $3, $4, $5, $6, $7)`
	)

	var result model.Loan
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		loan, err := scanLoan(tx.QueryRow(ctx, selectQuery, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}

		txs, err := fn(&loan)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, updateQuery, loan.ID, loan.LenderID, loan.Status, loan.FundedAt, loan.DueAt, loan.RepaidAt); err != nil {
			return err
		}
		for _, t := range txs {
			if _, err := tx.Exec(ctx, insertTx, t.ID, t.LoanID, t.UserID, t.Type, t.Direction, t.Amount, t.CreatedAt); err != nil {
				return err
			}
		}

		result = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *loanRepository) ListByStatus(ctx context.Context, status model.LoanStatus) ([]model.Loan, error) {
	const query = `SELECT ` + loanColumns + ` FROM loans WHERE status=$1 ORDER BY created_at DESC`
	return r.list(ctx, query, status)
}

func (r *loanRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Loan, error) {
	const query = `SELECT ` + loanColumns + ` FROM loans WHERE borrower_id=$1 OR lender_id=$1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *loanRepository) list(ctx context.Context, query string, arg any) ([]model.Loan, error) {
	rows, err := r.storage.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- TransactionRepository implementation ---

func (r *transactionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Transaction, error) {
	const query = `SELECT id, loan_id, user_id, type, direction, amount, created_at
                   FROM transactions WHERE user_id=$1 ORDER BY seq DESC`
	rows, err := r.storage.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.LoanID, &t.UserID, &t.Type, &t.Direction, &t.Amount, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
