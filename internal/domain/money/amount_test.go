package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Amount
		wantErr  bool
	}{
		{"Whole", "100", 10000, false},
		{"OneDecimal", "100.5", 10050, false},
		{"TwoDecimals", "0.01", 1, false},
		{"LeadingPoint", ".75", 75, false},
		{"Negative", "-3.25", -325, false},
		{"Plus", "+7", 700, false},
		{"Padded", "  12.30 ", 1230, false},
		{"ThreeDecimals", "1.005", 0, true},
		{"Empty", "", 0, true},
		{"TrailingPoint", "5.", 500, false},
		{"MinInt64", "-92233720368547758.08", math.MinInt64, false},
		{"TrailingZerosBeyondCents", "1.000", 0, true},
		{"Exponent", "1e2", 0, true},
		{"Letters", "12a", 0, true},
		{"Overflow", "92233720368547758.08", 0, true},
		{"DoubleSign", "--1", 0, true},
		{"NegativeOverflow", "-92233720368547758.09", 0, true},
		{"DoublePoint", "1.2.3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAmount_String(t *testing.T) {
	assert.Equal(t, "100.00", Amount(10000).String())
	assert.Equal(t, "0.05", Amount(5).String())
	assert.Equal(t, "-1.50", Amount(-150).String())
	assert.Equal(t, "-92233720368547758.08", Amount(math.MinInt64).String())

	for _, raw := range []string{"0.00", "12.34", "-0.99", "1000000.01"} {
		parsed, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, parsed.String())
	}
}

func TestAmount_JSON(t *testing.T) {
	t.Run("number and string inputs", func(t *testing.T) {
		var body struct {
			A Amount `json:"a"`
			B Amount `json:"b"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"a": 100.5, "b": "20.25"}`), &body))
		assert.Equal(t, Amount(10050), body.A)
		assert.Equal(t, Amount(2025), body.B)
	})

	t.Run("rejects too many decimals", func(t *testing.T) {
		var a Amount
		err := json.Unmarshal([]byte(`10.123`), &a)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("rejects exponent and null", func(t *testing.T) {
		var a Amount
		assert.ErrorIs(t, json.Unmarshal([]byte(`1e3`), &a), ErrInvalidAmount)
		assert.ErrorIs(t, json.Unmarshal([]byte(`"1E3"`), &a), ErrInvalidAmount)
		assert.ErrorIs(t, a.UnmarshalJSON([]byte(`null`)), ErrInvalidAmount)
	})

	t.Run("rejects overflow and garbage", func(t *testing.T) {
		var a Amount
		assert.ErrorIs(t, json.Unmarshal([]byte(`92233720368547758.08`), &a), ErrInvalidAmount)
		assert.ErrorIs(t, json.Unmarshal([]byte(`"abc"`), &a), ErrInvalidAmount)
		assert.ErrorIs(t, json.Unmarshal([]byte(`true`), &a), ErrInvalidAmount)
	})

	t.Run("marshals with two decimals", func(t *testing.T) {
		out, err := json.Marshal(map[string]Amount{"balance": 10000})
		require.NoError(t, err)
		assert.JSONEq(t, `{"balance": 100.00}`, string(out))
	})
}

func TestAmount_Arithmetic(t *testing.T) {
	sum, err := Amount(150).Add(50)
	require.NoError(t, err)
	assert.Equal(t, Amount(200), sum)

	diff, err := Amount(150).Sub(200)
	require.NoError(t, err)
	assert.Equal(t, Amount(-50), diff)

	_, err = Amount(math.MaxInt64).Add(1)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Amount(0).Sub(math.MinInt64)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
