package main

import (
	"testing"
	"time"
)

func TestParseScheduleTime(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{
			name:     "friendly format",
			input:    "2026-09-01 07:00",
			expected: time.Date(2026, 9, 1, 7, 0, 0, 0, time.UTC),
		},
		{
			name:     "friendly format with seconds",
			input:    "2026-09-01 07:00:30",
			expected: time.Date(2026, 9, 1, 7, 0, 30, 0, time.UTC),
		},
		{
			name:     "rfc3339",
			input:    "2026-09-01T07:00:00Z",
			expected: time.Date(2026, 9, 1, 7, 0, 0, 0, time.UTC),
		},
		{
			name:     "trailing UTC suffix",
			input:    "2026-09-01 07:00 UTC",
			expected: time.Date(2026, 9, 1, 7, 0, 0, 0, time.UTC),
		},
		{
			name:     "surrounding whitespace",
			input:    "  2026-09-01 07:00  ",
			expected: time.Date(2026, 9, 1, 7, 0, 0, 0, time.UTC),
		},
		{
			name:    "garbage",
			input:   "tomorrow at noon",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScheduleTime(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseScheduleTime(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseScheduleTime(%q): %v", tt.input, err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("ParseScheduleTime(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
