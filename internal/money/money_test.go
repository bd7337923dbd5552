package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinor(t *testing.T) {
	cases := map[string]int64{
		"159":    15900,
		"199.99": 19999,
		"0.005":  1,
		"0.1":    10,
		"0":      0,
	}
	for in, want := range cases {
		got, err := ToMinor(decimal.RequireFromString(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestToMinor_Negative(t *testing.T) {
	_, err := ToMinor(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "497.00", Format(49700))
	assert.Equal(t, "0.05", Format(5))
	assert.True(t, FromMinor(12345).Equal(decimal.RequireFromString("123.45")))
}
