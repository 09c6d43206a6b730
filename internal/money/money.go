// Package money provides a fixed two-digit decimal type for every monetary field.
// Values are rounded half away from zero at every construction and arithmetic step.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits kept
const Precision = 2

const (
	// MaxIntegerDigits is the widest integer part a stored amount may have.
	// Stores keep amounts as NUMERIC(14,2) or Decimal128.
	MaxIntegerDigits = 12

	// maxInputScale bounds fractional digits accepted before rounding
	maxInputScale = 20

	// maxInputLength bounds the textual form of an amount
	maxInputLength = 64
)

// ErrInvalidAmount is returned for input that is not a finite decimal number
var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// MaxAmount is the largest absolute value any amount may take, 999999999999.99
var MaxAmount = Money{d: decimal.New(1, MaxIntegerDigits).Sub(decimal.New(1, -Precision))}

// Money is an immutable decimal amount with two fractional digits.
// The zero value is 0.00.
type Money struct {
	d decimal.Decimal
}

// Zero is 0.00
var Zero = Money{}

// New rounds d to the money precision
func New(d decimal.Decimal) Money {
	return Money{d: d.Round(Precision)}
}

// MustParse is FromInput for literals known to be valid. It panics otherwise.
func MustParse(s string) Money {
	m, err := FromInput(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromInput parses a string, integer, float, json.Number or decimal into Money.
// Floats are converted through their shortest decimal representation, so
// 19.995 becomes 20.00 and not 19.99.
func FromInput(value any) (Money, error) {
	var (
		d   decimal.Decimal
		err error
	)

	switch v := value.(type) {
	case Money:
		return v, nil
	case decimal.Decimal:
		d = v
	case string:
		d, err = parseString(v)
	case json.Number:
		d, err = parseString(v.String())
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Zero, invalid(v)
		}
		d = decimal.NewFromFloat(v)
	case float32:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Zero, invalid(v)
		}
		d = decimal.NewFromFloat32(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int32:
		d = decimal.NewFromInt32(v)
	case int64:
		d = decimal.NewFromInt(v)
	case nil:
		return Zero, errors.Wrap(ErrInvalidAmount, "amount is required")
	default:
		return Zero, invalid(v)
	}
	if err != nil {
		return Zero, err
	}
	if err := checkMagnitude(d); err != nil {
		return Zero, err
	}

	m := New(d)
	if m.ExceedsMax() {
		return Zero, errors.Wrapf(ErrInvalidAmount, "%s exceeds the maximum amount %s", m, MaxAmount)
	}
	return m, nil
}

// checkMagnitude rejects values too wide to store before they are rounded,
// since rounding materialises every digit implied by the exponent
func checkMagnitude(d decimal.Decimal) error {
	if d.IsZero() {
		return nil
	}
	if d.Exponent() < -maxInputScale {
		return errors.Wrapf(ErrInvalidAmount, "more than %d fractional digits", maxInputScale)
	}
	if int64(d.NumDigits())+int64(d.Exponent()) > MaxIntegerDigits {
		return errors.Wrapf(ErrInvalidAmount, "more than %d integer digits", MaxIntegerDigits)
	}
	return nil
}

func parseString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.Wrap(ErrInvalidAmount, "amount is empty")
	}
	if len(s) > maxInputLength {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "amount longer than %d characters", maxInputLength)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "%q is not a decimal number", s)
	}
	return d, nil
}

func invalid(v any) error {
	return errors.Wrapf(ErrInvalidAmount, "%v (%T) is not a finite decimal number", v, v)
}

// Add returns m + o
func (m Money) Add(o Money) Money {
	return New(m.d.Add(o.d))
}

// Sub returns m - o
func (m Money) Sub(o Money) Money {
	return New(m.d.Sub(o.d))
}

// Mul returns m × factor rounded to two digits
func (m Money) Mul(factor decimal.Decimal) Money {
	return New(m.d.Mul(factor))
}

// Times multiplies two money-precision quantities, e.g. quantity × rate
func (m Money) Times(o Money) Money {
	return m.Mul(o.d)
}

// PercentageOf returns pct percent of m, rounded once
func (m Money) PercentageOf(pct decimal.Decimal) Money {
	return New(m.d.Mul(pct).Div(hundred))
}

// Sum adds all values starting at Zero
func Sum(values ...Money) Money {
	total := Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Decimal returns the underlying decimal value
func (m Money) Decimal() decimal.Decimal { return m.d }

// Cmp returns -1, 0 or 1 as m is less than, equal to or greater than o
func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

// Equal reports whether m and o are the same amount
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// IsZero reports whether m is 0.00
func (m Money) IsZero() bool { return m.d.IsZero() }

// IsNegative reports whether m < 0
func (m Money) IsNegative() bool { return m.d.IsNegative() }

// IsPositive reports whether m > 0
func (m Money) IsPositive() bool { return m.d.IsPositive() }

// ExceedsMax reports whether |m| is larger than MaxAmount
func (m Money) ExceedsMax() bool { return m.d.Abs().GreaterThan(MaxAmount.d) }

// String renders exactly two fractional digits with no separators
func (m Money) String() string {
	return m.d.StringFixed(Precision)
}

// MarshalJSON always writes a quoted string so clients never see a float
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "12.50" and 12.5
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Zero
		return nil
	}

	var raw any
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	} else {
		raw = json.Number(string(data))
	}

	parsed, err := FromInput(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value stores the canonical string, which numeric columns accept losslessly
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan reads numeric, text and float columns
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Zero
		return nil
	case []byte:
		parsed, err := FromInput(string(v))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	default:
		parsed, err := FromInput(v)
		if err != nil {
			return errors.Wrapf(err, "money: cannot scan %T", src)
		}
		*m = parsed
		return nil
	}
}
