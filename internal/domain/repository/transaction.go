package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/polkiloo/bitlend/internal/domain/model"
)

// TransactionRepository provides access to the ledger. Entries are appended
// through LoanRepository.Update only.
type TransactionRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Transaction, error)
}
