package contour

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegion(t *testing.T) {
	tests := []struct {
		expr string
		x, y float64
		want bool
	}{
		{"y <= x", 500, 400, true},
		{"y <= x", 400, 500, false},
		{"y <= x", 450, 450, true},
		{"mn2 <= msb - 100", 500, 400, true},
		{"mn2 <= msb - 100", 500, 401, false},
		{"mn2 < msb && mn2 >= 0", 500, -1, false},
		{"mn2 > msb || mn2 == 0", 500, 0, true},
		{"!(y > x)", 2, 1, true},
		{"y <= 0.5*x + 10", 100, 60, true},
		{"y <= 0.5*x + 10", 100, 61, false},
		{"sqrt(x*x + y*y) < 5", 3, 3.9, true},
		{"sqrt(x*x + y*y) < 5", 3, 4.1, false},
		{"max(x, y) <= 10", 4, 11, false},
		{"log10(x) >= 2", 1000, 0, true},
		{"abs(x - y) != 0", 3, 3, false},
		{"-y >= -x", 5, 4, true},
		{"y/2 < x", 1, 1.5, true},
		{"pow(x, 2) > y", 3, 8, true},
	}
	for _, tt := range tests {
		r, err := ParseRegion(tt.expr, "msb", "mn2")
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.want, r.Contains(tt.x, tt.y), "%s at (%v, %v)", tt.expr, tt.x, tt.y)
		assert.Equal(t, tt.expr, r.String())
	}
}

func TestParseRegion_Errors(t *testing.T) {
	for _, expr := range []string{
		"",
		"y <=",
		"x + y",
		"z <= x",
		"y <= foo(x)",
		"y <= sqrt(x, y)",
		"y <= max(x)",
		`y <= "x"`,
		"x && y",
		"y <= x % 2",
		"y[0] <= x",
	} {
		_, err := ParseRegion(expr, "msb", "mn2")
		if assert.Error(t, err, expr) {
			assert.True(t, errors.Is(err, ErrConfig), "%q: %v", expr, err)
		}
	}
}

func TestRegion_NilAllowsEverything(t *testing.T) {
	var r *Region
	assert.True(t, r.Contains(1e9, -1e9))
	assert.Equal(t, "<everywhere>", r.String())
}

func TestNewRegion(t *testing.T) {
	r := NewRegion("upper half", func(_, y float64) bool { return y >= 0 })
	assert.True(t, r.Contains(0, 1))
	assert.False(t, r.Contains(0, -1))
	assert.Equal(t, "upper half", r.String())
}
