package ledger

import "time"

// DefaultTimezone is the business calendar used when none is configured
const DefaultTimezone = "Asia/Ho_Chi_Minh"

// Calendar maps instants to business days in a fixed location.
// Day counts are whole calendar days and ignore daylight-saving shifts.
type Calendar struct {
	loc *time.Location
}

// NewCalendar creates a calendar for the given location (UTC if nil)
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// LoadCalendar creates a calendar from an IANA zone name
func LoadCalendar(name string) (Calendar, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Calendar{}, err
	}
	return NewCalendar(loc), nil
}

// Location returns the calendar's location
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Day truncates t to midnight of its calendar day
func (c Calendar) Day(t time.Time) time.Time {
	loc := c.Location()
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DaysBetween returns the number of calendar days from one instant to another.
// The result is negative when to falls on an earlier day than from.
func (c Calendar) DaysBetween(from, to time.Time) int {
	loc := c.Location()
	fy, fm, fd := from.In(loc).Date()
	ty, tm, td := to.In(loc).Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
