package model

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TxBorrowDisbursement TransactionType = "borrow-disbursement"
	TxLendFunding        TransactionType = "lend-funding"
	TxRepayment          TransactionType = "repayment"
	TxInterestPayment    TransactionType = "interest-payment"
)

// Direction is relative to the user owning the entry.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Transaction is an append-only ledger entry.
type Transaction struct {
	ID        uuid.UUID
	LoanID    *uuid.UUID
	UserID    uuid.UUID
	Type      TransactionType
	Direction Direction
	Amount    Amount
	CreatedAt time.Time
}
