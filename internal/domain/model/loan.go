package model

import (
	"time"

	"github.com/google/uuid"
)

// LoanStatus is a position in the loan state machine.
type LoanStatus string

const (
	LoanStatusDraft     LoanStatus = "draft"
	LoanStatusOpen      LoanStatus = "open"
	LoanStatusFunded    LoanStatus = "funded"
	LoanStatusActive    LoanStatus = "active"
	LoanStatusRepaid    LoanStatus = "repaid"
	LoanStatusDefaulted LoanStatus = "defaulted"
	LoanStatusCancelled LoanStatus = "cancelled"
)

var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanStatusDraft:  {LoanStatusOpen, LoanStatusCancelled},
	LoanStatusOpen:   {LoanStatusFunded, LoanStatusCancelled},
	LoanStatusFunded: {LoanStatusActive},
	LoanStatusActive: {LoanStatusRepaid, LoanStatusDefaulted},
}

// Valid reports whether s is one of the enumerated statuses.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusDraft, LoanStatusOpen, LoanStatusFunded, LoanStatusActive,
		LoanStatusRepaid, LoanStatusDefaulted, LoanStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows s -> to.
func (s LoanStatus) CanTransition(to LoanStatus) bool {
	for _, next := range loanTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s LoanStatus) Terminal() bool {
	return len(loanTransitions[s]) == 0
}

// Loan is a funding request and, once accepted, the resulting obligation.
type Loan struct {
	ID         uuid.UUID
	BorrowerID uuid.UUID
	LenderID   *uuid.UUID
	Principal  Amount
	RateBps    int
	TermDays   int
	Status     LoanStatus
	CreatedAt  time.Time
	FundedAt   *time.Time
	DueAt      *time.Time
	RepaidAt   *time.Time
}

// Term returns the loan duration.
func (l Loan) Term() time.Duration {
	return time.Duration(l.TermDays) * 24 * time.Hour
}

// Overdue reports whether an active loan has passed its due date at now.
func (l Loan) Overdue(now time.Time) bool {
	return l.Status == LoanStatusActive && l.DueAt != nil && now.After(*l.DueAt)
}

// IsLender reports whether user funded this loan.
func (l Loan) IsLender(user uuid.UUID) bool {
	return l.LenderID != nil && *l.LenderID == user
}

// Clone returns a deep copy so callers never share pointer fields with storage.
func (l Loan) Clone() Loan {
	c := l
	if l.LenderID != nil {
		id := *l.LenderID
		c.LenderID = &id
	}
	c.FundedAt = cloneTime(l.FundedAt)
	c.DueAt = cloneTime(l.DueAt)
	c.RepaidAt = cloneTime(l.RepaidAt)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// NewerThan orders loans newest first with ID as a tiebreaker.
func (l Loan) NewerThan(o Loan) bool {
	if !l.CreatedAt.Equal(o.CreatedAt) {
		return l.CreatedAt.After(o.CreatedAt)
	}
	return l.ID.String() > o.ID.String()
}
