package usecase

import (
	"testing"

	"github.com/polkiloo/bitlend/internal/domain/model"
)

func TestInterest(t *testing.T) {
	cases := []struct {
		principal model.Amount
		rate      int
		term      int
		want      model.Amount
	}{
		{100000, 500, 30, 411},
		{100000, 0, 30, 0},
		{100000000, 1000, 365, 10000000},
		{1, 500, 1, 0},
		{73, 10000, 365, 73},
		// exactly half a satoshi
		{365, 5000, 1, 1},
		{365, 4999, 1, 0},
	}

	for _, tc := range cases {
		if got := Interest(tc.principal, tc.rate, tc.term); got != tc.want {
			t.Errorf("Interest(%d, %d, %d) = %d, want %d", tc.principal, tc.rate, tc.term, got, tc.want)
		}
	}
}

func TestInterestAtLimits(t *testing.T) {
	principal, err := model.ParseBTC("21000000")
	if err != nil {
		t.Fatalf("parse supply cap: %v", err)
	}
	if err := ValidateLoanTerms(principal, MaxRateBps, MaxTermDays); err != nil {
		t.Fatalf("largest allowed terms rejected: %v", err)
	}

	// 1000% a year for ten years is exactly 100x the principal
	interest := Interest(principal, MaxRateBps, MaxTermDays)
	if interest != principal*100 {
		t.Fatalf("expected %d, got %d", principal*100, interest)
	}
	due := AmountDue(model.Loan{Principal: principal, RateBps: MaxRateBps, TermDays: MaxTermDays})
	if due != principal*101 {
		t.Fatalf("expected %d, got %d", principal*101, due)
	}
	if _, err := model.ParseBTC(due.BTC()); err == nil {
		t.Fatal("amount due above the supply cap must not parse as a principal")
	}

	if _, err := model.ParseBTC("40000000000"); err == nil {
		t.Fatal("principal above the supply cap accepted")
	}
}

func TestAmountDue(t *testing.T) {
	loan := model.Loan{Principal: 100000, RateBps: 500, TermDays: 30}
	if got := AmountDue(loan); got != 100411 {
		t.Fatalf("expected 100411, got %d", got)
	}
}
