package usecase

import (
	"context"
	"iter"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/polkiloo/bitlend/internal/domain/model"
)

// ListMarketplace snapshots open loans once and returns a sequence over
// that snapshot. Ranging over it again yields the same listings.
func (u *LoanUseCase) ListMarketplace(ctx context.Context, filter model.MarketplaceFilter) (iter.Seq[model.MarketplaceListing], error) {
	open, err := u.loans.ListByStatus(ctx, model.LoanStatusOpen)
	if err != nil {
		return nil, err
	}

	selected := open[:0]
	for _, l := range open {
		if filter.Match(l) {
			selected = append(selected, l)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool { return filter.Less(selected[i], selected[j]) })
	if filter.Limit > 0 && len(selected) > filter.Limit {
		selected = selected[:filter.Limit]
	}

	ratings := make(map[uuid.UUID]float64)
	listings := make([]model.MarketplaceListing, 0, len(selected))
	for _, l := range selected {
		rating, ok := ratings[l.BorrowerID]
		if !ok {
			if rating, err = u.borrowerRating(ctx, l.BorrowerID); err != nil {
				return nil, err
			}
			ratings[l.BorrowerID] = rating
		}
		listings = append(listings, model.MarketplaceListing{Loan: l, Rating: rating})
	}

	return func(yield func(model.MarketplaceListing) bool) {
		for _, listing := range listings {
			if !yield(listing) {
				return
			}
		}
	}, nil
}

// borrowerRating scores repayment history on a 1.0 to 5.0 scale. A borrower
// without history starts at 3.0.
func (u *LoanUseCase) borrowerRating(ctx context.Context, borrower uuid.UUID) (float64, error) {
	loans, err := u.userLoans(ctx, borrower)
	if err != nil {
		return 0, err
	}
	var repaid, defaulted int
	for _, l := range loans {
		if l.BorrowerID != borrower {
			continue
		}
		switch l.Status {
		case model.LoanStatusRepaid:
			repaid++
		case model.LoanStatusDefaulted:
			defaulted++
		}
	}
	score := 1 + 4*float64(repaid+1)/float64(repaid+defaulted+2)
	return math.Round(score*10) / 10, nil
}
