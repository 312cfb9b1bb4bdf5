package clock

import "time"

// DateOf returns midnight in loc of the calendar day written in t. The day
// is read in t's own offset; t is not converted to loc first.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Today returns midnight of the current calendar day in loc.
func Today(c Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(c.Now().In(loc), loc)
}

// BeforeToday reports whether the calendar day of t is strictly earlier
// than today in loc. Time of day is ignored on both sides.
func BeforeToday(c Clock, loc *time.Location, t time.Time) bool {
	return DateOf(t, loc).Before(Today(c, loc))
}
