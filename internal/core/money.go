// Package core holds the ledger domain types.
//
// Amounts are kept as integer cents so that totals are exact. Decimal input
// is parsed with shopspring/decimal and rounded to two places.
package core

import (
	"bytes"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

// MaxAmountCents bounds a single amount so that totals over large ledgers
// stay within int64.
const MaxAmountCents = 1_000_000_000_000_000

// maxAmountIntDigits is the number of integer digits of MaxAmountCents in
// currency units.
const maxAmountIntDigits = 14

// maxAmountLen caps the textual form of an amount before it is parsed.
const maxAmountLen = 64

var maxCents = decimal.NewFromInt(MaxAmountCents)

// ParseAmount converts a decimal string to Money.
//
// Negative values are stored as their magnitude since the sign of a
// transaction is carried by its type. The third decimal place is rounded
// half-up.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("-5")     -> 500
//	ParseAmount("1.005")  -> 101
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, NewValidationError("amount", "is required")
	}
	if len(s) > maxAmountLen {
		return Money{}, NewValidationError("amount", "has too many digits")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, NewValidationError("amount", "must be a number")
	}
	return FromDecimal(d)
}

// FromDecimal rounds d to cents and drops its sign.
func FromDecimal(d decimal.Decimal) (Money, error) {
	// Rounding rescales by 10^exponent, so bound the magnitude first.
	intDigits := int64(d.NumDigits()) + int64(d.Exponent())
	if intDigits > maxAmountIntDigits {
		return Money{}, NewValidationError("amount", "is too large")
	}
	if intDigits < -2 {
		return Money{}, nil
	}
	cents := d.Abs().Round(2).Shift(2)
	if cents.GreaterThan(maxCents) {
		return Money{}, NewValidationError("amount", "is too large")
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// CheckedAdd is Add that reports int64 overflow instead of wrapping.
func (m Money) CheckedAdd(o Money) (Money, bool) {
	if (o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents) ||
		(o.Cents < 0 && m.Cents < math.MinInt64-o.Cents) {
		return Money{}, false
	}
	return m.Add(o), true
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return NewValidationError("amount", "must not be negative")
	}
	if m.Cents > MaxAmountCents {
		return NewValidationError("amount", "is too large")
	}
	return nil
}

// MarshalJSON writes the amount as a plain JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return NewValidationError("amount", "is required")
	}
	raw := string(bytes.Trim(data, `"`))
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
