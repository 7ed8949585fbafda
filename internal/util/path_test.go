package util

import (
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare tilde",
			input:    "~",
			expected: home,
		},
		{
			name:     "tilde prefix",
			input:    "~/.local/state/padalive.log",
			expected: filepath.Join(home, ".local/state/padalive.log"),
		},
		{
			name:     "absolute path untouched",
			input:    "/dev/input/event7",
			expected: "/dev/input/event7",
		},
		{
			name:     "tilde inside a name untouched",
			input:    "logs/~padalive",
			expected: "logs/~padalive",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandHome(tt.input)
			if err != nil {
				t.Fatalf("ExpandHome(%q) returned error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ExpandHome(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
