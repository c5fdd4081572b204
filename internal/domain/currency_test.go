package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCurrency(t *testing.T) {
	t.Parallel()

	t.Run("valid codes", func(t *testing.T) {
		for _, code := range []string{"PLN", "EUR", "USD", "GBP", "JPY", "CHF"} {
			c, err := NewCurrency(code)
			require.NoError(t, err, code)
			assert.Equal(t, code, c.Code())
			assert.Equal(t, code, c.String())
		}
	})

	t.Run("lowercase is normalized", func(t *testing.T) {
		c, err := NewCurrency(" usd ")
		require.NoError(t, err)
		assert.Equal(t, "USD", c.Code())
	})

	t.Run("wrong length", func(t *testing.T) {
		for _, code := range []string{"", "EU", "EURO"} {
			_, err := NewCurrency(code)
			assert.ErrorIs(t, err, ErrInvalidCurrency, code)
		}
	})

	t.Run("not an ISO code", func(t *testing.T) {
		_, err := NewCurrency("XYZ")
		assert.ErrorIs(t, err, ErrInvalidCurrency)
	})
}

func TestCurrency_Scale(t *testing.T) {
	assert.Equal(t, int32(2), MustCurrency("EUR").Scale())
	assert.Equal(t, int32(2), MustCurrency("PLN").Scale())
	assert.Equal(t, int32(0), MustCurrency("JPY").Scale())
}

func TestCurrency_Equal(t *testing.T) {
	assert.True(t, MustCurrency("EUR").Equal(MustCurrency("eur")))
	assert.False(t, MustCurrency("EUR").Equal(MustCurrency("PLN")))
}

func TestCurrency_Text(t *testing.T) {
	var c Currency
	require.NoError(t, c.UnmarshalText([]byte("pln")))
	assert.Equal(t, "PLN", c.Code())

	assert.ErrorIs(t, c.UnmarshalText([]byte("ZZ")), ErrInvalidCurrency)
}
