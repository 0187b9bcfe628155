package app

import (
	"context"
	"iter"

	"github.com/google/uuid"

	"github.com/polkiloo/bitlend/internal/domain/model"
	"github.com/polkiloo/bitlend/internal/pkg/wallet"
	"github.com/polkiloo/bitlend/internal/usecase"
)

// LendingFacade exposes authentication and the loan engine to transport and
// background workers.
type LendingFacade struct {
	auth  *usecase.AuthUseCase
	loans *usecase.LoanUseCase
}

func NewLendingFacade(auth *usecase.AuthUseCase, loans *usecase.LoanUseCase) *LendingFacade {
	return &LendingFacade{auth: auth, loans: loans}
}

func (f *LendingFacade) Register(ctx context.Context, email, password string) (*model.Session, error) {
	_, session, err := f.auth.Register(ctx, email, password)
	return session, err
}

func (f *LendingFacade) Login(ctx context.Context, email, password string) (*model.Session, error) {
	return f.auth.LoginWithCredentials(ctx, email, password)
}

func (f *LendingFacade) ConnectWallet(ctx context.Context, provider wallet.Provider) (*model.Session, error) {
	return f.auth.ConnectWallet(ctx, provider)
}

func (f *LendingFacade) CurrentSession(ctx context.Context, token string) (*model.Session, error) {
	return f.auth.CurrentSession(ctx, token)
}

func (f *LendingFacade) Logout(ctx context.Context, token string) error {
	return f.auth.Logout(ctx, token)
}

func (f *LendingFacade) ParseToken(ctx context.Context, token string) (uuid.UUID, error) {
	return f.auth.ParseToken(ctx, token)
}

func (f *LendingFacade) PurgeExpiredSessions(ctx context.Context) (int, error) {
	return f.auth.PurgeExpiredSessions(ctx)
}

func (f *LendingFacade) PublishLoan(ctx context.Context, borrower uuid.UUID, principal model.Amount, rateBps, termDays int) (*model.Loan, error) {
	return f.loans.PublishLoan(ctx, borrower, principal, rateBps, termDays)
}

func (f *LendingFacade) DraftLoan(ctx context.Context, borrower uuid.UUID, principal model.Amount, rateBps, termDays int) (*model.Loan, error) {
	return f.loans.DraftLoan(ctx, borrower, principal, rateBps, termDays)
}

func (f *LendingFacade) PublishDraft(ctx context.Context, borrower, id uuid.UUID) (*model.Loan, error) {
	return f.loans.PublishDraft(ctx, borrower, id)
}

func (f *LendingFacade) AcceptLoan(ctx context.Context, lender, id uuid.UUID) (*model.Loan, error) {
	return f.loans.AcceptLoan(ctx, lender, id)
}

func (f *LendingFacade) DisburseLoan(ctx context.Context, actor, id uuid.UUID) (*model.Loan, error) {
	return f.loans.DisburseLoan(ctx, actor, id)
}

func (f *LendingFacade) RecordRepayment(ctx context.Context, payer, id uuid.UUID, amount model.Amount) (*model.Transaction, error) {
	return f.loans.RecordRepayment(ctx, payer, id, amount)
}

func (f *LendingFacade) CancelLoan(ctx context.Context, borrower, id uuid.UUID) (*model.Loan, error) {
	return f.loans.CancelLoan(ctx, borrower, id)
}

func (f *LendingFacade) Loan(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	return f.loans.GetLoan(ctx, id)
}

func (f *LendingFacade) ActiveLoans(ctx context.Context, user uuid.UUID) ([]model.Loan, error) {
	return f.loans.ActiveLoans(ctx, user)
}

func (f *LendingFacade) Marketplace(ctx context.Context, filter model.MarketplaceFilter) (iter.Seq[model.MarketplaceListing], error) {
	return f.loans.ListMarketplace(ctx, filter)
}

func (f *LendingFacade) Transactions(ctx context.Context, user uuid.UUID) ([]model.Transaction, error) {
	return f.loans.Transactions(ctx, user)
}

func (f *LendingFacade) Stats(ctx context.Context, user uuid.UUID) (*model.PortfolioStats, error) {
	return f.loans.ComputeStats(ctx, user)
}
