package handlers

import (
	"context"
	"iter"

	"github.com/google/uuid"

	"github.com/polkiloo/bitlend/internal/domain/model"
	"github.com/polkiloo/bitlend/internal/pkg/wallet"
)

// AuthFacade describes authentication capabilities required by handlers.
type AuthFacade interface {
	Register(ctx context.Context, email, password string) (*model.Session, error)
	Login(ctx context.Context, email, password string) (*model.Session, error)
	ConnectWallet(ctx context.Context, provider wallet.Provider) (*model.Session, error)
	CurrentSession(ctx context.Context, token string) (*model.Session, error)
	Logout(ctx context.Context, token string) error
	ParseToken(ctx context.Context, token string) (uuid.UUID, error)
}

// LoanFacade encapsulates loan commands and read-models exposed via HTTP.
type LoanFacade interface {
	PublishLoan(ctx context.Context, borrower uuid.UUID, principal model.Amount, rateBps, termDays int) (*model.Loan, error)
	DraftLoan(ctx context.Context, borrower uuid.UUID, principal model.Amount, rateBps, termDays int) (*model.Loan, error)
	PublishDraft(ctx context.Context, borrower, id uuid.UUID) (*model.Loan, error)
	AcceptLoan(ctx context.Context, lender, id uuid.UUID) (*model.Loan, error)
	DisburseLoan(ctx context.Context, actor, id uuid.UUID) (*model.Loan, error)
	RecordRepayment(ctx context.Context, payer, id uuid.UUID, amount model.Amount) (*model.Transaction, error)
	CancelLoan(ctx context.Context, borrower, id uuid.UUID) (*model.Loan, error)
	Loan(ctx context.Context, id uuid.UUID) (*model.Loan, error)
	ActiveLoans(ctx context.Context, user uuid.UUID) ([]model.Loan, error)
	Marketplace(ctx context.Context, filter model.MarketplaceFilter) (iter.Seq[model.MarketplaceListing], error)
	Transactions(ctx context.Context, user uuid.UUID) ([]model.Transaction, error)
	Stats(ctx context.Context, user uuid.UUID) (*model.PortfolioStats, error)
}

// LendingFacade aggregates the full set of operations used across handlers.
type LendingFacade interface {
	AuthFacade
	LoanFacade
}

// HealthChecker pings backing stores.
type HealthChecker interface {
	Check(ctx context.Context) error
}
