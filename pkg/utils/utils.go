// Package utils holds small formatting and process helpers.
package utils

import (
	"fmt"
	"time"
)

// FormatRoundedUnit renders a span of seconds in its largest whole unit:
// "45s", "12m", "3h". The sign is dropped.
func FormatRoundedUnit(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	default:
		return fmt.Sprintf("%dh", seconds/3600)
	}
}

// FormatDuration is FormatRoundedUnit for a time.Duration
func FormatDuration(d time.Duration) string {
	return FormatRoundedUnit(int64(d / time.Second))
}
