// Package money provides the fixed-point amount and currency types used by
// the ledger. Amounts are non-negative decimals quantized to two fraction
// digits; direction (credit vs debit) is carried by the ledger entry type,
// never by the sign of the amount.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fraction digits stored for every amount.
const Scale = 2

var (
	ErrInvalidAmount  = errors.New("invalid amount format")
	ErrNegativeAmount = errors.New("amount cannot be negative")
	ErrInsufficient   = errors.New("insufficient amount")
	ErrInvalidCurrency = errors.New("currency must be a 3-letter code")
)

// Currency is a 3-letter uppercase currency code.
type Currency string

// ParseCurrency validates and normalizes a currency code.
func ParseCurrency(s string) (Currency, error) {
	if len(s) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
		}
	}
	return Currency(s), nil
}

func (c Currency) String() string { return string(c) }

// Money is an immutable non-negative monetary amount with scale 2.
type Money struct {
	amount decimal.Decimal
}

// Parse builds a Money from a decimal string such as "100.50".
// Amounts with more than two fraction digits are rejected, not rounded.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d)
}

// FromDecimal builds a Money from a decimal value.
func FromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	if d.Exponent() < -Scale && !d.Equal(d.Round(Scale)) {
		return Money{}, fmt.Errorf("%w: more than %d fraction digits", ErrInvalidAmount, Scale)
	}
	return Money{amount: d.Round(Scale)}, nil
}

// MustParse is Parse for test fixtures and constants; it panics on error.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns the zero amount.
func Zero() Money { return Money{amount: decimal.Zero} }

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.amount }

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub returns m - other, or ErrInsufficient when the result would be negative.
func (m Money) Sub(other Money) (Money, error) {
	d := m.amount.Sub(other.amount)
	if d.IsNegative() {
		return Money{}, ErrInsufficient
	}
	return Money{amount: d}, nil
}

func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

func (m Money) Equal(other Money) bool    { return m.amount.Equal(other.amount) }
func (m Money) LessThan(other Money) bool { return m.amount.LessThan(other.amount) }
func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.amount.GreaterThanOrEqual(other.amount)
}

// String renders the amount with exactly two fraction digits, e.g. "60.00".
func (m Money) String() string { return m.amount.StringFixed(Scale) }

// MarshalJSON encodes the amount as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both string and number forms on the wire.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
