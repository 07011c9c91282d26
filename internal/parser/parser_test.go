package parser

import (
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	return NewParser(slog.New(slog.DiscardHandler))
}

func TestWhole(t *testing.T) {
	tests := []struct {
		in      string
		lo, hi  int64
		want    int64
		wantErr string
	}{
		{"32", 0, 255, 32, ""},
		{"32.00", 0, 255, 32, ""},
		{"-1", -1, 10, -1, ""},
		{"-1.0", -5, 10, -1, ""},
		{"4294967295", 0, math.MaxUint32, math.MaxUint32, ""},
		{"256", 0, 255, 0, "out of range"},
		{"-1", 0, 255, 0, "out of range"},
		{"10.99", 0, 255, 0, "not a whole number"},
		{"1e300", 0, 255, 0, "not a whole number"},
		{"", 0, 255, 0, "not a whole number"},
		{"north", 0, 255, 0, "not a whole number"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := whole(tt.in, "owner", tt.lo, tt.hi)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.ErrorContains(t, err, "owner")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClean(t *testing.T) {
	args := []string{`"1"`, `"say ""hi"""`, `plain`}
	require.NoError(t, clean(args, 3))
	assert.Equal(t, []string{"1", `say "hi`, "plain"}, args)

	assert.ErrorContains(t, clean([]string{"1"}, 2), "expected 2 arguments, got 1")
}
