package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/bitlend/internal/domain/errors"
	"github.com/polkiloo/bitlend/internal/domain/model"
	"github.com/polkiloo/bitlend/internal/domain/repository"
)

// LoanUseCase owns the loan state machine and the ledger it produces.
type LoanUseCase struct {
	loans repository.LoanRepository
	txs   repository.TransactionRepository
	log   *slog.Logger
	now   func() time.Time
}

// NewLoanUseCase constructs LoanUseCase.
func NewLoanUseCase(loans repository.LoanRepository, txs repository.TransactionRepository, log *slog.Logger) *LoanUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &LoanUseCase{loans: loans, txs: txs, log: log, now: time.Now}
}

// PublishLoan creates a funding request visible on the marketplace.
func (u *LoanUseCase) PublishLoan(ctx context.Context, borrower uuid.UUID, principal model.Amount, rateBps, termDays int) (*model.Loan, error) {
	return u.create(ctx, borrower, principal, rateBps, termDays, model.LoanStatusOpen)
}

// DraftLoan creates a funding request that stays private until published.
func (u *LoanUseCase) DraftLoan(ctx context.Context, borrower uuid.UUID, principal model.Amount, rateBps, termDays int) (*model.Loan, error) {
	return u.create(ctx, borrower, principal, rateBps, termDays, model.LoanStatusDraft)
}

func (u *LoanUseCase) create(ctx context.Context, borrower uuid.UUID, principal model.Amount, rateBps, termDays int, status model.LoanStatus) (*model.Loan, error) {
	if err := ValidateLoanTerms(principal, rateBps, termDays); err != nil {
		return nil, err
	}

	loan := model.Loan{
		ID:         uuid.New(),
		BorrowerID: borrower,
		Principal:  principal,
		RateBps:    rateBps,
		TermDays:   termDays,
		Status:     status,
		CreatedAt:  u.now().UTC(),
	}
	if err := u.loans.Create(ctx, loan); err != nil {
		return nil, err
	}

	u.log.Info("loan created", loanAttrs(loan)...)
	return &loan, nil
}

// PublishDraft moves a draft to the marketplace.
func (u *LoanUseCase) PublishDraft(ctx context.Context, borrower, loanID uuid.UUID) (*model.Loan, error) {
	return u.mutate(ctx, loanID, func(l *model.Loan) ([]model.Transaction, error) {
		if l.BorrowerID != borrower {
			return nil, domainErrors.ErrForbidden
		}
		if err := transition(l, model.LoanStatusOpen); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

// AcceptLoan assigns lender to an open loan. Exactly one of any number of
// concurrent accepts succeeds; the rest observe ErrAlreadyFunded.
func (u *LoanUseCase) AcceptLoan(ctx context.Context, lender, loanID uuid.UUID) (*model.Loan, error) {
	return u.mutate(ctx, loanID, func(l *model.Loan) ([]model.Transaction, error) {
		if l.BorrowerID == lender {
			return nil, domainErrors.ErrSelfDealingNotAllowed
		}
		switch l.Status {
		case model.LoanStatusOpen:
		case model.LoanStatusDraft, model.LoanStatusCancelled:
			return nil, domainErrors.ErrInvalidState
		default:
			return nil, domainErrors.ErrAlreadyFunded
		}

		now := u.now().UTC()
		l.LenderID = &lender
		l.FundedAt = &now
		return nil, transition(l, model.LoanStatusFunded)
	})
}

// DisburseLoan records the transfer of principal from lender to borrower and
// starts the loan term.
func (u *LoanUseCase) DisburseLoan(ctx context.Context, actor, loanID uuid.UUID) (*model.Loan, error) {
	return u.mutate(ctx, loanID, func(l *model.Loan) ([]model.Transaction, error) {
		if err := transition(l, model.LoanStatusActive); err != nil {
			return nil, err
		}
		if !l.IsLender(actor) {
			return nil, domainErrors.ErrForbidden
		}

		now := u.now().UTC()
		due := l.FundedAt.Add(l.Term())
		l.DueAt = &due

		return []model.Transaction{
			u.entry(l, *l.LenderID, model.TxLendFunding, model.DirectionOut, l.Principal, now),
			u.entry(l, l.BorrowerID, model.TxBorrowDisbursement, model.DirectionIn, l.Principal, now),
		}, nil
	})
}

// RecordRepayment settles an active loan in full. amount must equal
// principal plus interest exactly. The borrower's ledger entry is returned.
func (u *LoanUseCase) RecordRepayment(ctx context.Context, payer, loanID uuid.UUID, amount model.Amount) (*model.Transaction, error) {
	var paid model.Transaction
	_, err := u.mutate(ctx, loanID, func(l *model.Loan) ([]model.Transaction, error) {
		if err := transition(l, model.LoanStatusRepaid); err != nil {
			return nil, err
		}
		if l.BorrowerID != payer {
			return nil, domainErrors.ErrForbidden
		}
		interest := Interest(l.Principal, l.RateBps, l.TermDays)
		if amount != l.Principal+interest {
			return nil, domainErrors.ErrAmountMismatch
		}

		now := u.now().UTC()
		l.RepaidAt = &now

		paid = u.entry(l, l.BorrowerID, model.TxRepayment, model.DirectionOut, amount, now)
		txs := []model.Transaction{
			paid,
			u.entry(l, *l.LenderID, model.TxRepayment, model.DirectionIn, l.Principal, now),
		}
		if interest > 0 {
			txs = append(txs, u.entry(l, *l.LenderID, model.TxInterestPayment, model.DirectionIn, interest, now))
		}
		return txs, nil
	})
	if err != nil {
		return nil, err
	}
	return &paid, nil
}

// CancelLoan withdraws a loan that has not been funded.
func (u *LoanUseCase) CancelLoan(ctx context.Context, borrower, loanID uuid.UUID) (*model.Loan, error) {
	return u.mutate(ctx, loanID, func(l *model.Loan) ([]model.Transaction, error) {
		if err := transition(l, model.LoanStatusCancelled); err != nil {
			return nil, err
		}
		if l.BorrowerID != borrower {
			return nil, domainErrors.ErrForbidden
		}
		return nil, nil
	})
}

// GetLoan returns a loan, defaulting it first if it is overdue.
func (u *LoanUseCase) GetLoan(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	loan, err := u.loans.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if loan.Overdue(u.now()) {
		return u.markDefaulted(ctx, id)
	}
	return loan, nil
}

// ActiveLoans lists funded and active loans the user is a party to, newest first.
func (u *LoanUseCase) ActiveLoans(ctx context.Context, user uuid.UUID) ([]model.Loan, error) {
	loans, err := u.userLoans(ctx, user)
	if err != nil {
		return nil, err
	}
	active := make([]model.Loan, 0, len(loans))
	for _, l := range loans {
		if l.Status == model.LoanStatusFunded || l.Status == model.LoanStatusActive {
			active = append(active, l)
		}
	}
	return active, nil
}

// Transactions returns the user's ledger entries, newest first.
func (u *LoanUseCase) Transactions(ctx context.Context, user uuid.UUID) ([]model.Transaction, error) {
	return u.txs.ListByUser(ctx, user)
}

// mutate applies op under the loan's exclusive lock. Overdue loans are
// defaulted first so op never sees a stale active state.
func (u *LoanUseCase) mutate(ctx context.Context, id uuid.UUID, op repository.LoanMutation) (*model.Loan, error) {
	if _, err := u.GetLoan(ctx, id); err != nil {
		return nil, err
	}

	before := model.LoanStatus("")
	loan, err := u.loans.Update(ctx, id, func(l *model.Loan) ([]model.Transaction, error) {
		if l.Overdue(u.now()) {
			return nil, domainErrors.ErrInvalidState
		}
		before = l.Status
		return op(l)
	})
	if err != nil {
		return nil, err
	}

	u.log.Info("loan transition", append(loanAttrs(*loan), slog.String("from", string(before)))...)
	return loan, nil
}

func (u *LoanUseCase) markDefaulted(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	loan, err := u.loans.Update(ctx, id, func(l *model.Loan) ([]model.Transaction, error) {
		if !l.Overdue(u.now()) {
			return nil, nil
		}
		return nil, transition(l, model.LoanStatusDefaulted)
	})
	if err != nil {
		return nil, err
	}
	if loan.Status == model.LoanStatusDefaulted {
		u.log.Info("loan defaulted", loanAttrs(*loan)...)
	}
	return loan, nil
}

// userLoans returns every loan user borrowed or funded, settled and newest first.
func (u *LoanUseCase) userLoans(ctx context.Context, user uuid.UUID) ([]model.Loan, error) {
	loans, err := u.loans.ListByUser(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := u.settle(ctx, loans); err != nil {
		return nil, err
	}
	sort.SliceStable(loans, func(i, j int) bool { return loans[i].NewerThan(loans[j]) })
	return loans, nil
}

// settle defaults overdue loans in place.
func (u *LoanUseCase) settle(ctx context.Context, loans []model.Loan) error {
	now := u.now()
	for i := range loans {
		if !loans[i].Overdue(now) {
			continue
		}
		loan, err := u.markDefaulted(ctx, loans[i].ID)
		if err != nil {
			if errors.Is(err, domainErrors.ErrNotFound) {
				continue
			}
			return err
		}
		loans[i] = *loan
	}
	return nil
}

func (u *LoanUseCase) entry(l *model.Loan, user uuid.UUID, typ model.TransactionType, dir model.Direction, amount model.Amount, at time.Time) model.Transaction {
	loanID := l.ID
	return model.Transaction{
		ID:        uuid.New(),
		LoanID:    &loanID,
		UserID:    user,
		Type:      typ,
		Direction: dir,
		Amount:    amount,
		CreatedAt: at,
	}
}

func transition(l *model.Loan, to model.LoanStatus) error {
	if !l.Status.CanTransition(to) {
		return domainErrors.ErrInvalidState
	}
	l.Status = to
	return nil
}

func loanAttrs(l model.Loan) []any {
	return []any{
		slog.String("loan_id", l.ID.String()),
		slog.String("status", string(l.Status)),
		slog.String("borrower_id", l.BorrowerID.String()),
	}
}
