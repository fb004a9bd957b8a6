package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// parseClock converts an "HH:MM" string into minutes from midnight.
func parseClock(raw string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("time %q is not in HH:MM form", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("time %q has a bad hour: %w", raw, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("time %q has a bad minute: %w", raw, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %q is out of range", raw)
	}
	return hour*60 + minute, nil
}

// formatClock renders minutes from midnight as "HH:MM".
func formatClock(minute int) string {
	if minute < 0 {
		minute = 0
	}
	minute %= minutesPerDay
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// parseWeekDate parses a plain YYYY-MM-DD date.
func parseWeekDate(raw string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not a YYYY-MM-DD date", raw)
	}
	return day.UTC(), nil
}

// parseWeekStart parses a YYYY-MM-DD date and requires it to be a Monday.
func parseWeekStart(raw string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("weekStart %q is not a YYYY-MM-DD date", raw)
	}
	if day.Weekday() != time.Monday {
		return time.Time{}, fmt.Errorf("weekStart %q is not a Monday", raw)
	}
	return day.UTC(), nil
}
