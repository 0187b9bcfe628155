package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/polkiloo/bitlend/internal/domain/model"
)

// LoanMutation receives the current loan and returns its new state with
// ledger entries to append. Returning an error aborts without side effects.
type LoanMutation func(loan *model.Loan) ([]model.Transaction, error)

// LoanRepository describes persistence operations for loans.
type LoanRepository interface {
	Create(ctx context.Context, loan model.Loan) error
	Get(ctx context.Context, id uuid.UUID) (*model.Loan, error)
	// Update applies fn under exclusive access to the loan; the loan and the
	// returned transactions are committed together.
	Update(ctx context.Context, id uuid.UUID, fn LoanMutation) (*model.Loan, error)
	ListByStatus(ctx context.Context, status model.LoanStatus) ([]model.Loan, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Loan, error)
}
