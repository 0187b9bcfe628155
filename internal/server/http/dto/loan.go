package dto

import "time"

// CreateLoanRequest describes a new loan request. Principal is a BTC decimal
// string such as "0.001".
type CreateLoanRequest struct {
	Principal string `json:"principal"`
	RateBps   int    `json:"rate_bps"`
	TermDays  int    `json:"term_days"`
	Draft     bool   `json:"draft"`
}

// RepayRequest describes a repayment. Amount must equal amount_due.
type RepayRequest struct {
	Amount string `json:"amount"`
}

// LoanResponse describes a loan with derived repayment figures.
type LoanResponse struct {
	ID         string     `json:"id"`
	BorrowerID string     `json:"borrower_id"`
	LenderID   *string    `json:"lender_id,omitempty"`
	Principal  string     `json:"principal"`
	RateBps    int        `json:"rate_bps"`
	TermDays   int        `json:"term_days"`
	Interest   string     `json:"interest"`
	AmountDue  string     `json:"amount_due"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	FundedAt   *time.Time `json:"funded_at,omitempty"`
	DueAt      *time.Time `json:"due_at,omitempty"`
	RepaidAt   *time.Time `json:"repaid_at,omitempty"`
}

// ListingResponse is a marketplace entry.
type ListingResponse struct {
	LoanResponse
	Rating float64 `json:"rating"`
}

// MarketplaceQuery holds marketplace filter and sort parameters.
type MarketplaceQuery struct {
	Sort         string `form:"sort"`
	MinPrincipal string `form:"min_principal"`
	MaxPrincipal string `form:"max_principal"`
	MinRateBps   int    `form:"min_rate_bps" binding:"gte=0"`
	MaxTermDays  int    `form:"max_term_days" binding:"gte=0"`
	Limit        int    `form:"limit" binding:"gte=0"`
}
