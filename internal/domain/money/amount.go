// Package money represents monetary values as integer minor units.
package money

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for malformed, over-precise or overflowing amounts
var ErrInvalidAmount = errors.New("invalid monetary amount")

// Amount is a count of cents. 100.50 is stored as 10050.
type Amount int64

const fractionDigits = 2

var (
	minCents = decimal.NewFromInt(math.MinInt64)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

// FromCents builds an Amount from a cent count
func FromCents(cents int64) Amount {
	return Amount(cents)
}

// Cents returns the raw minor-unit count
func (a Amount) Cents() int64 {
	return int64(a)
}

func (a Amount) IsPositive() bool {
	return a > 0
}

// Parse reads a decimal literal such as "100", "100.5" or "-3.25"
func Parse(raw string) (Amount, error) {
	s := strings.TrimSpace(raw)
	if strings.ContainsAny(s, "eE") {
		return 0, fmt.Errorf("%w: exponent notation is not supported", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return fromDecimal(d)
}

func fromDecimal(d decimal.Decimal) (Amount, error) {
	if d.Exponent() < -fractionDigits {
		return 0, fmt.Errorf("%w: at most two decimal places are allowed", ErrInvalidAmount)
	}
	cents := d.Shift(fractionDigits)
	if cents.LessThan(minCents) || cents.GreaterThan(maxCents) {
		return 0, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	return Amount(cents.IntPart()), nil
}

// Decimal returns the amount in major units
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -fractionDigits)
}

// String renders the amount with exactly two fraction digits
func (a Amount) String() string {
	return a.Decimal().StringFixed(fractionDigits)
}

// Add returns a+b, failing on overflow
func (a Amount) Add(b Amount) (Amount, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, ErrInvalidAmount
	}
	return a + b, nil
}

// Sub returns a-b, failing on overflow
func (a Amount) Sub(b Amount) (Amount, error) {
	if b == math.MinInt64 {
		return 0, ErrInvalidAmount
	}
	return a.Add(-b)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a decimal string
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	// decimal treats null as zero
	if bytes.Equal(data, []byte("null")) {
		return ErrInvalidAmount
	}
	if bytes.ContainsAny(data, "eE") {
		return fmt.Errorf("%w: exponent notation is not supported", ErrInvalidAmount)
	}

	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	parsed, err := fromDecimal(d)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
