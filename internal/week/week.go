// Package week implements ISO-8601 week arithmetic for the reporting
// pipeline. A Key identifies one seven-day reporting window; all artifact
// names and cache lookups are derived from it.
package week

import (
	"fmt"
	"time"
)

// Key identifies an ISO-8601 week. Week 1 is the week containing January 4;
// weeks start on Monday.
type Key struct {
	Year int
	Week int
}

// New validates the week number and returns a Key.
func New(year, wk int) (Key, error) {
	if wk < 1 || wk > 53 {
		return Key{}, fmt.Errorf("week: number %d out of range 1-53", wk)
	}
	if year < 1 {
		return Key{}, fmt.Errorf("week: invalid year %d", year)
	}
	return Key{Year: year, Week: wk}, nil
}

// Of returns the ISO week containing the given instant.
func Of(t time.Time) Key {
	year, wk := t.ISOWeek()
	return Key{Year: year, Week: wk}
}

// LastComplete returns the most recent fully elapsed week relative to now:
// the ISO week of seven days ago. Whatever weekday now falls on, the
// returned week has already ended.
func LastComplete(now time.Time) Key {
	return Of(now.AddDate(0, 0, -7))
}

// Bounds returns the UTC interval covered by the key: Monday 00:00:00
// through Sunday 23:59:59 inclusive. The start is located from the January 4
// anchor, which keeps years whose first days belong to the previous ISO year
// correct.
func (k Key) Bounds() (time.Time, time.Time) {
	jan4 := time.Date(k.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	week1Start := jan4.AddDate(0, 0, -mondayOffset(jan4))
	start := week1Start.AddDate(0, 0, (k.Week-1)*7)
	end := start.Add(7*24*time.Hour - time.Second)
	return start, end
}

// Start returns the Monday 00:00:00 UTC opening the week.
func (k Key) Start() time.Time {
	start, _ := k.Bounds()
	return start
}

// End returns the Sunday 23:59:59 UTC closing the week.
func (k Key) End() time.Time {
	_, end := k.Bounds()
	return end
}

// Contains reports whether t falls inside the week, inclusive on both ends.
func (k Key) Contains(t time.Time) bool {
	start, end := k.Bounds()
	return !t.Before(start) && !t.After(end)
}

// Prev returns the week immediately before this one, rolling over year
// boundaries through the ISO calendar.
func (k Key) Prev() Key {
	return Of(k.Start().AddDate(0, 0, -7))
}

// Before reports chronological ordering between keys.
func (k Key) Before(other Key) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Week < other.Week
}

// String renders the key as e.g. "2025-W03".
func (k Key) String() string {
	return fmt.Sprintf("%d-W%02d", k.Year, k.Week)
}

// Slug renders the filename stem shared by every artifact of this week,
// e.g. "week-03-2025".
func (k Key) Slug() string {
	return fmt.Sprintf("week-%02d-%d", k.Week, k.Year)
}

// RangeLabel renders the covered dates as "2025-01-13 to 2025-01-19".
func (k Key) RangeLabel() string {
	start, end := k.Bounds()
	return fmt.Sprintf("%s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// Sequence returns n weeks in chronological order ending at anchor. The walk
// steps backward seven days at a time from the anchor's Monday and rereads
// the ISO calendar at each step, so year boundaries with 52 or 53 weeks come
// out right.
func Sequence(n int, anchor Key) ([]Key, error) {
	if n < 1 {
		return nil, fmt.Errorf("week: sequence length %d must be positive", n)
	}
	keys := make([]Key, n)
	cursor := anchor.Start()
	for i := n - 1; i >= 0; i-- {
		keys[i] = Of(cursor)
		cursor = cursor.AddDate(0, 0, -7)
	}
	return keys, nil
}

// mondayOffset counts days since the preceding (or same) Monday.
func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
