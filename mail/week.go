package mail

import (
	"fmt"
	"time"
)

// DateLayout is the --date flag format.
const DateLayout = "2006-01-02"

// WeekStart returns midnight of the Sunday that starts t's week, in t's
// location.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// DateToken names the weekly folder and document of a message sent at t.
func DateToken(t time.Time) string {
	return WeekStart(t).Format("20060102")
}

// ParseDay parses a --date value in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", s, err)
	}
	return day, nil
}

// DayWindow widens a single day to the server-side search window. Servers
// compare INTERNALDATE in their own zone, so the window starts a day early
// and ends two days late; SameDay filters the exact day afterwards.
func DayWindow(day time.Time) (since, before time.Time) {
	return day.AddDate(0, 0, -1), day.AddDate(0, 0, 2)
}

// LookbackWindow returns the search window ending now.
func LookbackWindow(now time.Time, days int) (since, before time.Time) {
	return now.AddDate(0, 0, -days), time.Time{}
}

// SameDay reports whether t falls on day in day's location.
func SameDay(t, day time.Time) bool {
	t = t.In(day.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
