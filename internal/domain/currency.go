package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
)

// Currency is a validated ISO 4217 currency code.
type Currency struct {
	code  string
	scale int32
}

// NewCurrency parses and validates an ISO 4217 code. Input is case-insensitive.
func NewCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	if len(code) != 3 {
		return Currency{}, fmt.Errorf("%w: %q must be exactly 3 characters", ErrInvalidCurrency, code)
	}

	unit, err := currency.ParseISO(code)
	if err != nil {
		return Currency{}, fmt.Errorf("%w: %s is not a valid ISO 4217 currency code", ErrInvalidCurrency, code)
	}

	scale, _ := currency.Standard.Rounding(unit)

	return Currency{code: unit.String(), scale: int32(scale)}, nil
}

// MustCurrency is like NewCurrency but panics on invalid input.
func MustCurrency(code string) Currency {
	c, err := NewCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

// Code returns the upper-case ISO code.
func (c Currency) Code() string {
	return c.code
}

// Scale returns the number of minor-unit digits (2 for EUR, 0 for JPY).
func (c Currency) Scale() int32 {
	return c.scale
}

// IsZero reports whether c is the zero value.
func (c Currency) IsZero() bool {
	return c.code == ""
}

// Equal reports whether both currencies have the same code.
func (c Currency) Equal(other Currency) bool {
	return c.code == other.code
}

func (c Currency) String() string {
	return c.code
}

// MarshalText implements encoding.TextMarshaler.
func (c Currency) MarshalText() ([]byte, error) {
	return []byte(c.code), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Currency) UnmarshalText(text []byte) error {
	parsed, err := NewCurrency(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
