// Package entity defines the domain models for the backfill feature.
package entity

import "time"

// DateLayout is the wire form of a calendar date.
const DateLayout = "2006-01-02"

// Window is the inclusive [From, To] date range still missing for a symbol.
// Both bounds are UTC midnights.
type Window struct {
	From time.Time
	To   time.Time
}

// Days returns the number of calendar days the window covers.
func (w Window) Days() int {
	return int(w.To.Sub(w.From).Hours()/24) + 1
}

func (w Window) String() string {
	return w.From.Format(DateLayout) + ".." + w.To.Format(DateLayout)
}

// Date truncates t to its UTC calendar date.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
