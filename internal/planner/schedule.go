// Package planner holds the pure parts of plan generation: date scheduling,
// model output validation and the retry policy.
package planner

import (
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// StartOfDay zeroes the time-of-day of t in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FormatDate renders t as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseTargetDate parses a deadline given as YYYY-MM-DD or RFC3339 in loc
func ParseTargetDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), true
	}
	return time.Time{}, false
}

// endOfDay returns the last representable instant of t's calendar day
func endOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// EligibleDays enumerates calendar days from startDate through the end of targetDate,
// dropping Saturdays and Sundays when skipWeekends is set. An unparseable target
// or one before startDate yields an empty sequence.
func EligibleDays(startDate time.Time, targetDate string, skipWeekends bool) []time.Time {
	return eligibleDays(startDate, targetDate, skipWeekends, 0)
}

// eligibleDays stops after limit entries when limit > 0
func eligibleDays(startDate time.Time, targetDate string, skipWeekends bool, limit int) []time.Time {
	target, ok := ParseTargetDate(targetDate, startDate.Location())
	if !ok {
		return nil
	}
	end := endOfDay(target)

	var days []time.Time
	for current := startDate; !current.After(end); current = current.AddDate(0, 0, 1) {
		if skipWeekends && isWeekend(current) {
			continue
		}
		days = append(days, current)
		if limit > 0 && len(days) >= limit {
			break
		}
	}
	return days
}

// CalculateTaskDate maps a 1-based day index onto a calendar date.
//
// Without a target date the result is startDate + (dayIndex-1) days, weekends
// included. With a target date the dayIndex-th eligible day is returned, clamped
// to the last eligible day, or to startDate when there is none.
func CalculateTaskDate(dayIndex int, startDate time.Time, targetDate string, skipWeekends bool) time.Time {
	if dayIndex < 1 {
		dayIndex = 1
	}

	if strings.TrimSpace(targetDate) == "" {
		return startDate.AddDate(0, 0, dayIndex-1)
	}

	days := eligibleDays(startDate, targetDate, skipWeekends, dayIndex)
	if len(days) == 0 {
		return startDate
	}
	if dayIndex > len(days) {
		return days[len(days)-1]
	}
	return days[dayIndex-1]
}
