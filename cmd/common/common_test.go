package common

import (
	"testing"
	"time"
)

func TestFormatOffset(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{0, "0:00.000"},
		{2 * time.Second, "0:02.000"},
		{2500 * time.Millisecond, "0:02.500"},
		{62500 * time.Millisecond, "1:02.500"},
		{10*time.Minute + 1234*time.Millisecond, "10:01.234"},
		{-time.Second, "0:00.000"},
	}

	for _, tt := range tests {
		result := FormatOffset(tt.input)
		if result != tt.expected {
			t.Errorf("FormatOffset(%v) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
