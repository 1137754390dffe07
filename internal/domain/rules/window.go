package rules

import (
	"fmt"
	"time"
)

// Brewing window: 20:00 to 04:00 local time.
const (
	BrewingWindowStartHour = 20
	BrewingWindowEndHour   = 4
	brewingWindowMinutes   = 8 * 60
)

// BrewingWindowProgress returns the percentage of the nightly brewing window
// elapsed at t. Outside the window it reports 0.
func BrewingWindowProgress(t time.Time) float64 {
	hours, minutes := t.Hour(), t.Minute()

	var elapsed int
	switch {
	case hours >= BrewingWindowStartHour:
		elapsed = (hours-BrewingWindowStartHour)*60 + minutes
	case hours < BrewingWindowEndHour:
		elapsed = (24-BrewingWindowStartHour+hours)*60 + minutes
	default:
		elapsed = 0
	}

	return Clamp(float64(elapsed)/brewingWindowMinutes*100, 0, 100)
}

// FormatSleepDuration renders d as "Xh Ym Zs", dropping hours when zero.
func FormatSleepDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	hours := secs / 3600
	mins := (secs % 3600) / 60
	secs = secs % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, mins, secs)
	}
	return fmt.Sprintf("%dm %ds", mins, secs)
}
