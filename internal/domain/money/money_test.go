package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("accepts two fraction digits", func(t *testing.T) {
		m, err := Parse("100.50")
		require.NoError(t, err)
		assert.Equal(t, "100.50", m.String())
	})

	t.Run("normalizes to two fraction digits", func(t *testing.T) {
		m, err := Parse("60")
		require.NoError(t, err)
		assert.Equal(t, "60.00", m.String())
	})

	t.Run("rejects three fraction digits", func(t *testing.T) {
		_, err := Parse("1.999")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("rejects negative amounts", func(t *testing.T) {
		_, err := Parse("-5.00")
		assert.ErrorIs(t, err, ErrNegativeAmount)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := Parse("not-a-number")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestFromDecimal(t *testing.T) {
	t.Run("accepts trailing zeros beyond scale", func(t *testing.T) {
		m, err := FromDecimal(decimal.RequireFromString("10.100"))
		require.NoError(t, err)
		assert.Equal(t, "10.10", m.String())
	})

	t.Run("rejects sub-cent precision", func(t *testing.T) {
		_, err := FromDecimal(decimal.RequireFromString("10.101"))
		assert.Error(t, err)
	})
}

func TestSub(t *testing.T) {
	m := MustParse("60.00")

	got, err := m.Sub(MustParse("15.00"))
	require.NoError(t, err)
	assert.Equal(t, "45.00", got.String())

	_, err = m.Sub(MustParse("60.01"))
	assert.ErrorIs(t, err, ErrInsufficient)

	zero, err := m.Sub(m)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func TestJSON(t *testing.T) {
	t.Run("marshals as fixed string", func(t *testing.T) {
		b, err := json.Marshal(MustParse("7.5"))
		require.NoError(t, err)
		assert.Equal(t, `"7.50"`, string(b))
	})

	t.Run("unmarshals string and number forms", func(t *testing.T) {
		var fromString, fromNumber Money
		require.NoError(t, json.Unmarshal([]byte(`"12.34"`), &fromString))
		require.NoError(t, json.Unmarshal([]byte(`12.34`), &fromNumber))
		assert.True(t, fromString.Equal(fromNumber))
	})

	t.Run("rejects over-precise wire amounts", func(t *testing.T) {
		var m Money
		assert.Error(t, json.Unmarshal([]byte(`"1.999"`), &m))
	})
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency("USD")
	require.NoError(t, err)
	assert.Equal(t, "USD", c.String())

	for _, bad := range []string{"usd", "US", "USDC", "U$D", ""} {
		_, err := ParseCurrency(bad)
		assert.ErrorIs(t, err, ErrInvalidCurrency, "input %q", bad)
	}
}
