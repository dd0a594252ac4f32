package cdtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromNanos(t *testing.T) {
	tests := []struct {
		name     string
		input    uint64
		expected Time
	}{
		{"Zero", 0, 0},
		{"One second", 1_000_000_000, 1 << 30},
		{"One and a half seconds", 1_500_000_000, 1<<30 | 1<<29},
		{"Ten seconds", 10_000_000_000, 10 << 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, FromNanos(tt.input))
		})
	}
}

func TestTimeRoundTrip(t *testing.T) {
	inputs := []time.Time{
		time.Unix(1500000000, 123456789),
		time.Unix(1, 1),
		time.Unix(1700000000, 999999999),
	}
	for _, in := range inputs {
		out := New(in).Time()
		require.True(t, in.Equal(out), "expected %v, got %v", in, out)
	}
}

func TestZeroTime(t *testing.T) {
	require.Equal(t, Time(0), New(time.Time{}))
	require.True(t, Time(0).Time().IsZero())
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name  string
		input time.Duration
	}{
		{"Ten seconds", 10 * time.Second},
		{"Millisecond", time.Millisecond},
		{"Odd", 1234567891 * time.Nanosecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.input, NewDuration(tt.input).Duration())
		})
	}

	require.Equal(t, Time(0), NewDuration(-time.Second))
}

func TestString(t *testing.T) {
	require.Equal(t, "1.500000000", FromNanos(1_500_000_000).String())
}
