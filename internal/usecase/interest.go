package usecase

import (
	"github.com/shopspring/decimal"

	"github.com/polkiloo/bitlend/internal/domain/model"
)

var interestDenominator = decimal.NewFromInt(10_000 * 365)

// Interest returns simple interest for the loan term, rounded half up to
// whole satoshis.
func Interest(principal model.Amount, rateBps, termDays int) model.Amount {
	num := decimal.NewFromInt(int64(principal)).
		Mul(decimal.NewFromInt(int64(rateBps))).
		Mul(decimal.NewFromInt(int64(termDays)))
	return model.Amount(num.Div(interestDenominator).Round(0).IntPart())
}

// AmountDue is principal plus interest owed at repayment.
func AmountDue(loan model.Loan) model.Amount {
	return loan.Principal + Interest(loan.Principal, loan.RateBps, loan.TermDays)
}
