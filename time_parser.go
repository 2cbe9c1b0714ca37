package main

import (
	"fmt"
	"strings"
	"time"
)

// scheduleTimeLayouts are tried in order. Layouts without a zone are
// interpreted as UTC.
var scheduleTimeLayouts = []string{
	time.RFC3339,          // "2026-01-15T16:00:00Z"
	"2006-01-02 15:04",    // "2026-01-15 16:00"
	"2006-01-02 15:04:05", // "2026-01-15 16:00:00"
}

// ParseScheduleTime parses user-friendly time formats into time.Time.
// A trailing "UTC" is accepted and stripped; all zone-less input is UTC.
func ParseScheduleTime(timeStr string) (time.Time, error) {
	timeStr = strings.TrimSpace(timeStr)
	timeStr = strings.TrimSuffix(timeStr, "UTC")
	timeStr = strings.TrimSpace(timeStr)

	for _, layout := range scheduleTimeLayouts {
		if t, err := time.ParseInLocation(layout, timeStr, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid time format '%s'. Use format: YYYY-MM-DD HH:MM (e.g., 2026-01-15 16:00). Time is assumed to be UTC", timeStr)
}
