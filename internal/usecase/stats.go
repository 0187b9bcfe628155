package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/polkiloo/bitlend/internal/domain/model"
)

// ComputeStats aggregates the user's portfolio from loans and ledger on
// every call.
func (u *LoanUseCase) ComputeStats(ctx context.Context, user uuid.UUID) (*model.PortfolioStats, error) {
	loans, err := u.userLoans(ctx, user)
	if err != nil {
		return nil, err
	}
	txs, err := u.txs.ListByUser(ctx, user)
	if err != nil {
		return nil, err
	}

	var stats model.PortfolioStats
	for _, l := range loans {
		if l.BorrowerID == user && l.FundedAt != nil {
			stats.TotalBorrowed = stats.TotalBorrowed.Plus(l.Principal)
		}
		if l.IsLender(user) {
			stats.TotalLent = stats.TotalLent.Plus(l.Principal)
		}
		if l.Status == model.LoanStatusFunded || l.Status == model.LoanStatusActive {
			stats.ActiveLoans++
		}
	}
	for _, tx := range txs {
		if tx.Type == model.TxInterestPayment && tx.Direction == model.DirectionIn && tx.UserID == user {
			stats.InterestEarned = stats.InterestEarned.Plus(tx.Amount)
		}
	}
	return &stats, nil
}
