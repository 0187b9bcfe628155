package model

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// SatoshisPerBTC is the fixed-point scale of Amount.
const SatoshisPerBTC = 100_000_000

// MaxAmount is the full bitcoin supply. Larger amounts cannot exist and
// keep interest arithmetic within int64.
const MaxAmount Amount = 21_000_000 * SatoshisPerBTC

const btcExp = 8

var satoshiScale = decimal.NewFromInt(SatoshisPerBTC)

// Amount is a non-negative quantity of satoshis.
type Amount int64

// ParseBTC converts a decimal BTC string into satoshis.
// Negative values, values finer than one satoshi and values above MaxAmount
// are rejected.
func ParseBTC(s string) (Amount, error) {
	return ParseBTCUpTo(s, MaxAmount)
}

// ParseBTCUpTo is ParseBTC with limit as the upper bound. Repayments owe
// principal plus interest and may legitimately exceed MaxAmount.
func ParseBTCUpTo(s string, limit Amount) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %q is negative", s)
	}
	if !d.Equal(d.Truncate(btcExp)) {
		return 0, fmt.Errorf("amount %q has more than %d fractional digits", s, btcExp)
	}
	sats := d.Mul(satoshiScale)
	if sats.GreaterThan(decimal.NewFromInt(int64(limit))) {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return Amount(sats.IntPart()), nil
}

// Plus adds b to a, saturating at math.MaxInt64 instead of wrapping.
func (a Amount) Plus(b Amount) Amount {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// BTC formats the amount as a BTC decimal string with eight fractional digits.
func (a Amount) BTC() string {
	return decimal.New(int64(a), -btcExp).StringFixed(btcExp)
}

func (a Amount) String() string { return a.BTC() }
