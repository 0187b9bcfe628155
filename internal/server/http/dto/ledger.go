package dto

import "time"

// TransactionResponse describes a ledger entry from the owner's perspective.
type TransactionResponse struct {
	ID        string    `json:"id"`
	LoanID    *string   `json:"loan_id,omitempty"`
	Type      string    `json:"type"`
	Direction string    `json:"direction"`
	Amount    string    `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// StatsResponse summarizes a user's portfolio.
type StatsResponse struct {
	TotalBorrowed  string `json:"total_borrowed"`
	TotalLent      string `json:"total_lent"`
	ActiveLoans    int    `json:"active_loans"`
	InterestEarned string `json:"interest_earned"`
}
