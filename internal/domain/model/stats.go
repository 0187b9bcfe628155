package model

// PortfolioStats aggregates a user's lending activity.
type PortfolioStats struct {
	TotalBorrowed  Amount
	TotalLent      Amount
	ActiveLoans    int
	InterestEarned Amount
}
