// Package esttime owns the challenge's day bucketing. All date-keyed
// computations use a fixed UTC-5 offset, not real US Eastern time: the
// original rollout pinned the offset and every stored date key depends on
// it, so it must not be swapped for a DST-aware zone without a data
// migration.
package esttime

import "time"

const offset = -5 * time.Hour

// DateKey returns the YYYY-MM-DD calendar date of an instant after applying
// the fixed offset.
func DateKey(t time.Time) string {
	return t.Add(offset).UTC().Format("2006-01-02")
}

// ConvertToEST shifts an instant by the fixed offset and truncates it to
// midnight. The result is a pure calendar-day marker; its location is UTC.
func ConvertToEST(t time.Time) time.Time {
	shifted := t.Add(offset).UTC()
	return time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, time.UTC)
}

// CurrentDateEST returns today's offset-adjusted date at midnight.
func CurrentDateEST() time.Time {
	return ConvertToEST(time.Now())
}

// IsNewDay reports whether the offset-adjusted calendar day has rolled over
// since the given instant.
func IsNewDay(last time.Time) bool {
	return DateKey(time.Now()) != DateKey(last)
}

// IsBefore7AM reports whether an instant falls before 07:00 in the fixed
// offset timezone.
func IsBefore7AM(t time.Time) bool {
	return t.Add(offset).UTC().Hour() < 7
}
