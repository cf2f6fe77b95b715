// Package domain contains the core data types for the Travel Journal.
// This package has no dependencies outside the standard library and is
// imported by every other internal package.
package domain

import "time"

// DateLayout is the calendar-date format used for VisitDate everywhere a
// date crosses a boundary (forms, JSON, CSV).
const DateLayout = "2006-01-02"

// TravelRecord is one visit pinned on the map.
// ID, Latitude, Longitude and CreatedAt are fixed when the record is created;
// an edit replaces Location, VisitDate and Feelings only.
type TravelRecord struct {
	ID        string
	Location  string
	Latitude  float64
	Longitude float64
	VisitDate time.Time // date granularity; the time of day is always zero UTC
	Feelings  string
	CreatedAt time.Time
}

// ParseDate parses a "YYYY-MM-DD" string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// TruncateToDate drops the clock part of t, keeping its calendar date.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
