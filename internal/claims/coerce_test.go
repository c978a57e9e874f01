package claims

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToNumberOrNull(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *float64
	}{
		{"nil", nil, nil},
		{"float", 12.5, ptr(12.5)},
		{"int", 7, ptr(7.0)},
		{"currency string", "$1,234.50", ptr(1234.5)},
		{"rupee string", "₹ 45,000", ptr(45000.0)},
		{"negative", "-20", ptr(-20.0)},
		{"json number", json.Number("3.25"), ptr(3.25)},
		{"empty", "", nil},
		{"letters only", "n/a", nil},
		{"two dots", "1.2.3", nil},
		{"bare minus", "-", nil},
		{"nan", math.NaN(), nil},
		{"inf", math.Inf(1), nil},
		{"bool", true, nil},
		{"object", map[string]any{"a": 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToNumberOrNull(tt.in))
		})
	}
}

func TestToIntOrNull(t *testing.T) {
	assert.Equal(t, ptr(5), ToIntOrNull(5.9))
	assert.Equal(t, ptr(-5), ToIntOrNull("-5.9"))
	assert.Equal(t, ptr(3), ToIntOrNull("3 days"))
	assert.Nil(t, ToIntOrNull("none"))
	assert.Equal(t, ptr(1<<53), ToIntOrNull(1e300))
	assert.Equal(t, ptr(-(1 << 53)), ToIntOrNull(-1e300))
}

func TestToStringOrNull(t *testing.T) {
	assert.Equal(t, ptr("P-1"), ToStringOrNull("  P-1 "))
	assert.Equal(t, ptr("80053"), ToStringOrNull(80053.0))
	assert.Equal(t, ptr("1.5"), ToStringOrNull(1.5))
	assert.Equal(t, ptr("true"), ToStringOrNull(true))
	assert.Equal(t, ptr(`["a"]`), ToStringOrNull([]any{"a"}))
	assert.Nil(t, ToStringOrNull("   "))
	assert.Nil(t, ToStringOrNull(nil))
}

func TestToISODateOrNull(t *testing.T) {
	tests := []struct {
		in   any
		want *string
	}{
		{"2024-01-10", ptr("2024-01-10")},
		{" 2024-01-10 ", ptr("2024-01-10")},
		{"2024-01-10T23:30:00-05:00", ptr("2024-01-11")},
		{"2024-01-10T08:00:00Z", ptr("2024-01-10")},
		{"01/15/2024", ptr("2024-01-15")},
		{"2024/1/5", ptr("2024-01-05")},
		{"January 5, 2024", ptr("2024-01-05")},
		{"5 Jan 2024", ptr("2024-01-05")},
		{"yesterday", nil},
		{"", nil},
		{nil, nil},
		{12345, nil},
	}
	for _, tt := range tests {
		got := ToISODateOrNull(tt.in)
		if tt.want == nil {
			assert.Nil(t, got, "input %v", tt.in)
			continue
		}
		require.NotNil(t, got, "input %v", tt.in)
		assert.Equal(t, *tt.want, *got, "input %v", tt.in)
	}
}

func ptr[T any](v T) *T { return &v }
