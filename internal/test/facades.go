package test

import (
	"context"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/polkiloo/bitlend/internal/domain/model"
	"github.com/polkiloo/bitlend/internal/pkg/wallet"
)

// LoanCreateCall records arguments of PublishLoan and DraftLoan.
type LoanCreateCall struct {
	Borrower  uuid.UUID
	Principal model.Amount
	RateBps   int
	TermDays  int
	Draft     bool
}

// LoanFacadeStub provides controllable behaviour for loan endpoints.
type LoanFacadeStub struct {
	CreateFn       func(context.Context, LoanCreateCall) (*model.Loan, error)
	PublishDraftFn func(context.Context, uuid.UUID, uuid.UUID) (*model.Loan, error)
	AcceptFn       func(context.Context, uuid.UUID, uuid.UUID) (*model.Loan, error)
	DisburseFn     func(context.Context, uuid.UUID, uuid.UUID) (*model.Loan, error)
	RepayFn        func(context.Context, uuid.UUID, uuid.UUID, model.Amount) (*model.Transaction, error)
	CancelFn       func(context.Context, uuid.UUID, uuid.UUID) (*model.Loan, error)
	LoanFn         func(context.Context, uuid.UUID) (*model.Loan, error)
	ActiveFn       func(context.Context, uuid.UUID) ([]model.Loan, error)
	MarketplaceFn  func(context.Context, model.MarketplaceFilter) (iter.Seq[model.MarketplaceListing], error)
	TransactionsFn func(context.Context, uuid.UUID) ([]model.Transaction, error)
	StatsFn        func(context.Context, uuid.UUID) (*model.PortfolioStats, error)
}

func (s LoanFacadeStub) create(ctx context.Context, call LoanCreateCall) (*model.Loan, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, call)
	}
	status := model.LoanStatusOpen
	if call.Draft {
		status = model.LoanStatusDraft
	}
	return &model.Loan{
		ID:         uuid.New(),
		BorrowerID: call.Borrower,
		Principal:  call.Principal,
		RateBps:    call.RateBps,
		TermDays:   call.TermDays,
		Status:     status,
	}, nil
}

// PublishLoan delegates to CreateFn.
func (s LoanFacadeStub) PublishLoan(ctx context.Context, borrower uuid.UUID, principal model.Amount, rateBps, termDays int) (*model.Loan, error) {
	return s.create(ctx, LoanCreateCall{Borrower: borrower, Principal: principal, RateBps: rateBps, TermDays: termDays})
}

// DraftLoan delegates to CreateFn with Draft set.
func (s LoanFacadeStub) DraftLoan(ctx context.Context, borrower uuid.UUID, principal model.Amount, rateBps, termDays int) (*model.Loan, error) {
	return s.create(ctx, LoanCreateCall{Borrower: borrower, Principal: principal, RateBps: rateBps, TermDays: termDays, Draft: true})
}

func (s LoanFacadeStub) PublishDraft(ctx context.Context, borrower, id uuid.UUID) (*model.Loan, error) {
	return s.command(ctx, s.PublishDraftFn, borrower, id, model.LoanStatusOpen)
}

func (s LoanFacadeStub) AcceptLoan(ctx context.Context, lender, id uuid.UUID) (*model.Loan, error) {
	return s.command(ctx, s.AcceptFn, lender, id, model.LoanStatusFunded)
}

func (s LoanFacadeStub) DisburseLoan(ctx context.Context, actor, id uuid.UUID) (*model.Loan, error) {
	return s.command(ctx, s.DisburseFn, actor, id, model.LoanStatusActive)
}

func (s LoanFacadeStub) CancelLoan(ctx context.Context, borrower, id uuid.UUID) (*model.Loan, error) {
	return s.command(ctx, s.CancelFn, borrower, id, model.LoanStatusCancelled)
}

func (s LoanFacadeStub) command(ctx context.Context, fn func(context.Context, uuid.UUID, uuid.UUID) (*model.Loan, error), actor, id uuid.UUID, status model.LoanStatus) (*model.Loan, error) {
	if fn != nil {
		return fn(ctx, actor, id)
	}
	return &model.Loan{ID: id, Status: status}, nil
}

// RecordRepayment returns a borrower repayment entry by default.
func (s LoanFacadeStub) RecordRepayment(ctx context.Context, payer, id uuid.UUID, amount model.Amount) (*model.Transaction, error) {
	if s.RepayFn != nil {
		return s.RepayFn(ctx, payer, id, amount)
	}
	return &model.Transaction{
		ID:        uuid.New(),
		LoanID:    &id,
		UserID:    payer,
		Type:      model.TxRepayment,
		Direction: model.DirectionOut,
		Amount:    amount,
		CreatedAt: time.Unix(0, 0).UTC(),
	}, nil
}

// Loan returns configured loan lookup.
func (s LoanFacadeStub) Loan(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	if s.LoanFn != nil {
		return s.LoanFn(ctx, id)
	}
	return &model.Loan{ID: id, Status: model.LoanStatusOpen}, nil
}

// ActiveLoans returns configured loans.
func (s LoanFacadeStub) ActiveLoans(ctx context.Context, user uuid.UUID) ([]model.Loan, error) {
	if s.ActiveFn != nil {
		return s.ActiveFn(ctx, user)
	}
	return nil, nil
}

// Marketplace returns configured listings.
func (s LoanFacadeStub) Marketplace(ctx context.Context, filter model.MarketplaceFilter) (iter.Seq[model.MarketplaceListing], error) {
	if s.MarketplaceFn != nil {
		return s.MarketplaceFn(ctx, filter)
	}
	return slices.Values([]model.MarketplaceListing(nil)), nil
}

// Transactions returns configured ledger entries.
func (s LoanFacadeStub) Transactions(ctx context.Context, user uuid.UUID) ([]model.Transaction, error) {
	if s.TransactionsFn != nil {
		return s.TransactionsFn(ctx, user)
	}
	return nil, nil
}

// Stats returns configured portfolio stats.
func (s LoanFacadeStub) Stats(ctx context.Context, user uuid.UUID) (*model.PortfolioStats, error) {
	if s.StatsFn != nil {
		return s.StatsFn(ctx, user)
	}
	return &model.PortfolioStats{}, nil
}

// JanitorFacadeStub counts session sweeps.
type JanitorFacadeStub struct {
	PurgeFn func(context.Context) (int, error)
	calls   int32
}

// PurgeExpiredSessions records the invocation.
func (s *JanitorFacadeStub) PurgeExpiredSessions(ctx context.Context) (int, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.PurgeFn != nil {
		return s.PurgeFn(ctx)
	}
	return 0, nil
}

// Calls reports how many sweeps ran.
func (s *JanitorFacadeStub) Calls() int {
	return int(atomic.LoadInt32(&s.calls))
}

// WalletProviderStub is a scripted wallet.Provider.
type WalletProviderStub struct {
	AddressFn func(context.Context) (string, error)
	SignFn    func(context.Context, string, []byte) (wallet.Signature, error)

	mu         sync.Mutex
	Challenges [][]byte
}

// Address delegates to AddressFn.
func (p *WalletProviderStub) Address(ctx context.Context) (string, error) {
	if p.AddressFn != nil {
		return p.AddressFn(ctx)
	}
	return "", wallet.ErrUnavailable
}

// RequestSignature records the challenge and delegates to SignFn.
func (p *WalletProviderStub) RequestSignature(ctx context.Context, address string, challenge []byte) (wallet.Signature, error) {
	p.mu.Lock()
	p.Challenges = append(p.Challenges, challenge)
	p.mu.Unlock()
	if p.SignFn != nil {
		return p.SignFn(ctx, address, challenge)
	}
	return wallet.Signature{}, wallet.ErrUnavailable
}
