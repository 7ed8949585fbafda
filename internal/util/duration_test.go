package util

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Duration
		expected string
	}{
		{
			name:     "zero",
			input:    0,
			expected: "0.0s",
		},
		{
			name:     "negative clamps to zero",
			input:    -time.Second,
			expected: "0.0s",
		},
		{
			name:     "sub-second",
			input:    300 * time.Millisecond,
			expected: "0.3s",
		},
		{
			name:     "idle threshold",
			input:    10 * time.Second,
			expected: "10.0s",
		},
		{
			name:     "minutes",
			input:    2*time.Minute + 5*time.Second,
			expected: "2m05s",
		},
		{
			name:     "rounds to seconds above a minute",
			input:    time.Minute + 1500*time.Millisecond,
			expected: "1m02s",
		},
		{
			name:     "hours",
			input:    3*time.Hour + 4*time.Minute + 5*time.Second,
			expected: "3h04m05s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.input); got != tt.expected {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
