/*
period.go - Calendar quarter arithmetic

PURPOSE:
  Pure calendar math: mapping dates to quarters, testing quarter
  membership, enumerating quarter boundaries, and stepping between
  quarters (including the year-over-year mapping used for deltas).

  Nothing in this file consults the wall clock. Only the calendar
  fields of the supplied date matter, so results are identical in
  every time zone.

KEY TYPES:
  Date:    A calendar date (no time-of-day, always UTC-normalized)
  Quarter: A (year, quarter 1..4) pair with a canonical string key

SEE ALSO:
  - aggregate.go: Buckets obligations by Quarter
  - prefs.go: Persists the user's last-viewed Quarter
*/
package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar date value type
// =============================================================================

// Date is a calendar date with day granularity. The zero value is invalid.
type Date struct {
	t time.Time
}

// NewDate builds a Date from calendar fields.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates any timestamp to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// dateFormats are the representations accepted at ingestion. Storage and
// API output always use the first.
var dateFormats = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

// ParseDate coerces a string to a Date, accepting the canonical form plus
// the loose formats seen in externally produced records.
func ParseDate(s string) (Date, error) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("unparseable date %q", s)
}

func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) IsZero() bool      { return d.t.IsZero() }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

// String returns the canonical "2006-01-02" form.
func (d Date) String() string { return d.t.Format("2006-01-02") }

// =============================================================================
// QUARTER - (year, quarter) pair
// =============================================================================

// Quarter identifies one calendar quarter: Q1 = Jan-Mar ... Q4 = Oct-Dec.
type Quarter struct {
	Year int
	Q    int // 1..4
}

// QuarterOf returns the quarter containing the date.
func QuarterOf(d Date) Quarter {
	return Quarter{Year: d.Year(), Q: (int(d.Month())-1)/3 + 1}
}

// Key returns the canonical "{year}-Q{quarter}" form, e.g. "2024-Q2".
func (q Quarter) Key() string {
	return fmt.Sprintf("%d-Q%d", q.Year, q.Q)
}

// ParseQuarterKey is the inverse of Key. Only the exact canonical form
// is accepted: Sscanf alone would tolerate trailing garbage, so the
// parsed value must round-trip back to the input.
func ParseQuarterKey(key string) (Quarter, error) {
	var q Quarter
	if _, err := fmt.Sscanf(key, "%d-Q%d", &q.Year, &q.Q); err != nil {
		return Quarter{}, fmt.Errorf("malformed quarter key %q", key)
	}
	if q.Key() != key {
		return Quarter{}, fmt.Errorf("malformed quarter key %q", key)
	}
	if q.Q < 1 || q.Q > 4 || q.Year < 1 {
		return Quarter{}, fmt.Errorf("quarter key %q out of range", key)
	}
	return q, nil
}

// Contains reports whether the date falls inside the quarter, both month
// boundaries inclusive: the 1st and the last day of the quarter's last
// month both belong to the quarter.
func (q Quarter) Contains(d Date) bool {
	if d.Year() != q.Year {
		return false
	}
	m := int(d.Month()) - 1 // 0-indexed
	return m >= (q.Q-1)*3 && m <= (q.Q-1)*3+2
}

// Start returns the first calendar day of the quarter.
func (q Quarter) Start() Date {
	return NewDate(q.Year, time.Month((q.Q-1)*3+1), 1)
}

// End returns the last calendar day of the quarter.
func (q Quarter) End() Date {
	firstOfNext := q.Next().Start()
	return DateOf(firstOfNext.t.AddDate(0, 0, -1))
}

// Next returns the quarter immediately after this one.
func (q Quarter) Next() Quarter {
	if q.Q == 4 {
		return Quarter{Year: q.Year + 1, Q: 1}
	}
	return Quarter{Year: q.Year, Q: q.Q + 1}
}

// Previous returns the quarter immediately before this one.
func (q Quarter) Previous() Quarter {
	if q.Q == 1 {
		return Quarter{Year: q.Year - 1, Q: 4}
	}
	return Quarter{Year: q.Year, Q: q.Q - 1}
}

// PreviousYear returns the same quarter one year earlier. This is the
// period mapping behind year-over-year deltas.
func (q Quarter) PreviousYear() Quarter {
	return Quarter{Year: q.Year - 1, Q: q.Q}
}

// before orders quarters chronologically.
func (q Quarter) before(o Quarter) bool {
	if q.Year != o.Year {
		return q.Year < o.Year
	}
	return q.Q < o.Q
}
