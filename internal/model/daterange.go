package model

import "time"

// DateLayout is the day layout used for range flags and report keys.
const DateLayout = "2006-01-02"

// DateRange represents an inclusive, day-granular period.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange builds a range covering whole days from start through end.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: truncateDay(start), End: truncateDay(end)}
}

// ParseDateRange parses two YYYY-MM-DD values into a range.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(s, e), nil
}

// Valid reports whether the start day is not after the end day.
func (r DateRange) Valid() bool {
	return !truncateDay(r.Start).After(truncateDay(r.End))
}

// Contains reports whether t falls on or between the start and end days.
func (r DateRange) Contains(t time.Time) bool {
	start := truncateDay(r.Start)
	limit := truncateDay(r.End).AddDate(0, 0, 1)
	// Compare in the range's location so wall-clock days line up.
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), start.Location())
	return !t.Before(start) && t.Before(limit)
}

// String formats the range for logs.
func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + " to " + r.End.Format(DateLayout)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
