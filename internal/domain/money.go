package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a non-negative amount in a single currency, held at the
// currency's minor-unit scale.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney normalizes amount to the currency's scale using banker's rounding.
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency.IsZero() {
		return Money{}, fmt.Errorf("%w: currency is required", ErrInvalidCurrency)
	}

	if amount.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidAmount, amount.String())
	}

	return Money{amount: amount.RoundBank(currency.Scale()), currency: currency}, nil
}

// ParseMoney parses a decimal string such as "35.55".
func ParseMoney(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, amount)
	}
	return NewMoney(d, currency)
}

// MustMoney is like ParseMoney but panics on invalid input.
func MustMoney(amount string, currency Currency) Money {
	m, err := ParseMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in currency.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal magnitude.
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the money's currency.
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero reports whether the magnitude is zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return NewMoney(m.amount.Add(other.amount), m.currency)
}

// Sub returns m - other. A negative result is rejected with ErrInvalidAmount.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return NewMoney(m.amount.Sub(other.amount), m.currency)
}

// Mul scales m by a non-negative factor and re-normalizes to the currency's scale.
func (m Money) Mul(factor decimal.Decimal) (Money, error) {
	if factor.IsNegative() {
		return Money{}, fmt.Errorf("%w: factor %s is negative", ErrInvalidAmount, factor.String())
	}
	return NewMoney(m.amount.Mul(factor), m.currency)
}

// Cmp returns -1, 0 or +1 like decimal.Decimal.Cmp.
func (m Money) Cmp(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

// GreaterThanOrEqual reports whether m >= other.
func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	c, err := m.Cmp(other)
	if err != nil {
		return false, err
	}
	return c >= 0, nil
}

// Equal reports whether both values have the same currency and magnitude.
func (m Money) Equal(other Money) bool {
	return m.currency.Equal(other.currency) && m.amount.Equal(other.amount)
}

// Float64 returns the magnitude as a float64, for display only.
func (m Money) Float64() float64 {
	return m.amount.InexactFloat64()
}

// StringFixed returns the magnitude at the currency's scale, e.g. "235.55".
func (m Money) StringFixed() string {
	return m.amount.StringFixed(m.currency.Scale())
}

// String returns "NNNN.NN CUR".
func (m Money) String() string {
	return m.StringFixed() + " " + m.currency.Code()
}

func (m Money) sameCurrency(other Money) error {
	if !m.currency.Equal(other.currency) {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return nil
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON encodes as {"amount":"235.55","currency":"EUR"}.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.StringFixed(), Currency: m.currency.Code()})
}

// UnmarshalJSON decodes and re-validates the amount and currency.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	currency, err := NewCurrency(raw.Currency)
	if err != nil {
		return err
	}

	parsed, err := ParseMoney(raw.Amount, currency)
	if err != nil {
		return err
	}

	*m = parsed
	return nil
}
