// Package money holds monetary values as 6-decimal fixed point numbers.
//
// Values never pass through binary floating point once parsed. The only float
// input is a payout factor, which MulFactor rounds to 6 decimals before use.
// Every operation that can produce more than 6 decimals truncates toward zero.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places kept (micro-units).
const Scale = 6

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrDivisionByZero = errors.New("division by zero")
)

// Amount is an immutable 6-decimal value.
type Amount struct {
	d decimal.Decimal
}

func Zero() Amount { return Amount{} }

// Parse reads a base-10 string. Digits beyond the 6th decimal are truncated.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Amount{d: d.Truncate(Scale)}, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromFloat rounds f to 6 decimals, half away from zero.
func FromFloat(f float64) Amount {
	return Amount{d: decimal.NewFromFloat(f).Round(Scale)}
}

func FromInt(n int64) Amount { return Amount{d: decimal.NewFromInt(n)} }

func (a Amount) Add(o Amount) Amount { return Amount{d: a.d.Add(o.d)} }
func (a Amount) Sub(o Amount) Amount { return Amount{d: a.d.Sub(o.d)} }
func (a Amount) Neg() Amount         { return Amount{d: a.d.Neg()} }

// Mul multiplies two fixed point values and truncates the product.
func (a Amount) Mul(o Amount) Amount { return Amount{d: a.d.Mul(o.d).Truncate(Scale)} }

// Div divides and truncates the quotient toward zero.
func (a Amount) Div(o Amount) (Amount, error) {
	if o.d.IsZero() {
		return Amount{}, ErrDivisionByZero
	}
	q, _ := a.d.QuoRem(o.d, Scale)
	return Amount{d: q}, nil
}

// MulFactor multiplies by a float payout factor. The factor is rounded to 6
// decimals half away from zero, the exact product is then truncated toward zero.
func (a Amount) MulFactor(f float64) Amount {
	factor := decimal.NewFromFloat(f).Round(Scale)
	return Amount{d: a.d.Mul(factor).Truncate(Scale)}
}

func Max(a, o Amount) Amount {
	if a.d.GreaterThanOrEqual(o.d) {
		return a
	}
	return o
}

func (a Amount) Cmp(o Amount) int         { return a.d.Cmp(o.d) }
func (a Amount) Equal(o Amount) bool      { return a.d.Equal(o.d) }
func (a Amount) IsZero() bool             { return a.d.IsZero() }
func (a Amount) IsNegative() bool         { return a.d.IsNegative() }
func (a Amount) IsPositive() bool         { return a.d.IsPositive() }
func (a Amount) Decimal() decimal.Decimal { return a.d }

// Float64 is for reporting only (RTP ratios, metrics).
func (a Amount) Float64() float64 {
	f, _ := a.d.Float64()
	return f
}

// String renders the canonical form: no exponent, trailing fractional zeros trimmed.
func (a Amount) String() string { return a.d.String() }

func (a Amount) Micros() *big.Int { return a.d.Shift(Scale).BigInt() }

func ToMicros(s string) (*big.Int, error) {
	a, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return a.Micros(), nil
}

// FromMicros renders a scaled integer back into canonical decimal form.
func FromMicros(m *big.Int) string {
	return decimal.NewFromBigInt(m, -Scale).String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts both "1.5" and 1.5. A bare null leaves a untouched,
// so a required amount still fails its positivity check.
func (a *Amount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	s := string(b)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidAmount, b)
		}
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case []byte:
		return a.parseInto(string(v))
	case string:
		return a.parseInto(v)
	case int64:
		*a = FromInt(v)
		return nil
	case float64:
		*a = FromFloat(v)
		return nil
	default:
		return fmt.Errorf("money: cannot scan %T", src)
	}
}

func (a *Amount) parseInto(s string) error {
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (a Amount) Value() (driver.Value, error) {
	return a.d.StringFixed(Scale), nil
}
