// Package markethours guards trading against the weekend close of the spot
// metals market. XAUUSD trades continuously from the Sunday open to the
// Friday close (New York 5 PM boundary, expressed here in UTC); evaluation
// cycles during the gap are skipped rather than fed stale Friday prices.
package markethours

import "time"

// Weekly session boundary in UTC: closes Friday 21:00, reopens Sunday 22:00.
const (
	FridayCloseHourUTC = 21
	SundayOpenHourUTC  = 22
)

// IsMarketOpen returns true if t falls inside the weekly trading session.
func IsMarketOpen(t time.Time) bool {
	u := t.UTC()
	switch u.Weekday() {
	case time.Saturday:
		return false
	case time.Friday:
		return u.Hour() < FridayCloseHourUTC
	case time.Sunday:
		return u.Hour() >= SundayOpenHourUTC
	default:
		return true
	}
}

// NextOpen returns the next session open at or after t. During the week it
// returns t itself.
func NextOpen(t time.Time) time.Time {
	u := t.UTC()
	if IsMarketOpen(u) {
		return u
	}
	d := u
	for d.Weekday() != time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	open := time.Date(d.Year(), d.Month(), d.Day(), SundayOpenHourUTC, 0, 0, 0, time.UTC)
	if u.Weekday() == time.Sunday && u.After(open) {
		return u
	}
	return open
}
