package cronexpr

import "time"

// Next returns the first instant strictly after t at which the schedule
// fires, or the zero time when no such instant exists within the year bound.
//
// The search is a field-wise ascent from coarsest to finest: whenever a field
// does not match, that field advances by one unit, all finer fields reset to
// their minimum, and the normalization restarts.
func (s *Schedule) Next(t time.Time) time.Time {
	t = t.In(s.loc).Truncate(time.Second).Add(time.Second)

	for {
		y := t.Year()
		if y > YearMax {
			return time.Time{}
		}
		if !s.yearAllowed(y) {
			t = time.Date(y+1, time.January, 1, 0, 0, 0, 0, s.loc)
			continue
		}
		if s.month&(1<<uint(t.Month())) == 0 {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, s.loc)
			continue
		}
		if !s.dayMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, s.loc)
			continue
		}
		if s.hour&(1<<uint(t.Hour())) == 0 {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, s.loc)
			continue
		}
		if s.minute&(1<<uint(t.Minute())) == 0 {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()+1, 0, 0, s.loc)
			continue
		}
		if s.second&(1<<uint(t.Second())) == 0 {
			t = t.Add(time.Second)
			continue
		}
		return t
	}
}

// dayMatches applies the standard cron dom/dow rule: union when both fields
// are restricted, intersection with the wildcard otherwise.
func (s *Schedule) dayMatches(t time.Time) bool {
	domOK := s.dom&(1<<uint(t.Day())) != 0
	dowOK := s.dow&(1<<uint(t.Weekday())) != 0

	switch {
	case s.domStar && s.dowStar:
		return true
	case s.domStar:
		return dowOK
	case s.dowStar:
		return domOK
	default:
		return domOK || dowOK
	}
}
