package model

import "github.com/google/uuid"

// MarketplaceListing is an open loan with a derived borrower rating.
type MarketplaceListing struct {
	Loan   Loan
	Rating float64
}

// SortKey selects marketplace ordering. Ties are broken newest first.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortRate      SortKey = "rate"      // highest rate first
	SortPrincipal SortKey = "principal" // smallest principal first
	SortTerm      SortKey = "term"      // shortest term first
)

// ParseSortKey returns the key for s, defaulting to newest.
func ParseSortKey(s string) (SortKey, bool) {
	switch SortKey(s) {
	case "", SortNewest:
		return SortNewest, true
	case SortRate, SortPrincipal, SortTerm:
		return SortKey(s), true
	}
	return SortNewest, false
}

// MarketplaceFilter narrows the listing. Zero values disable a criterion.
type MarketplaceFilter struct {
	MinPrincipal    Amount
	MaxPrincipal    Amount
	MinRateBps      int
	MaxTermDays     int
	ExcludeBorrower uuid.UUID
	SortBy          SortKey
	Limit           int
}

// Match reports whether l is an open loan satisfying every criterion.
func (f MarketplaceFilter) Match(l Loan) bool {
	switch {
	case l.Status != LoanStatusOpen:
		return false
	case f.MinPrincipal > 0 && l.Principal < f.MinPrincipal:
		return false
	case f.MaxPrincipal > 0 && l.Principal > f.MaxPrincipal:
		return false
	case l.RateBps < f.MinRateBps:
		return false
	case f.MaxTermDays > 0 && l.TermDays > f.MaxTermDays:
		return false
	case f.ExcludeBorrower != uuid.Nil && l.BorrowerID == f.ExcludeBorrower:
		return false
	}
	return true
}

// Less orders a before b according to SortBy.
func (f MarketplaceFilter) Less(a, b Loan) bool {
	switch f.SortBy {
	case SortRate:
		if a.RateBps != b.RateBps {
			return a.RateBps > b.RateBps
		}
	case SortPrincipal:
		if a.Principal != b.Principal {
			return a.Principal < b.Principal
		}
	case SortTerm:
		if a.TermDays != b.TermDays {
			return a.TermDays < b.TermDays
		}
	}
	return a.NewerThan(b)
}
