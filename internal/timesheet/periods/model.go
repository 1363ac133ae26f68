package periods

import "time"

// Period is a calendar (year, month) bucket namespacing declarations.
// Immutable once created.
type Period struct {
	ID        int64
	Year      int
	Month     int
	CreatedAt time.Time
}

// Contains reports whether the date falls inside the period's month.
func (p Period) Contains(date time.Time) bool {
	return date.Year() == p.Year && int(date.Month()) == p.Month
}
