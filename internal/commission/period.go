package commission

import (
	"fmt"
	"time"
)

// ResolveMonthBounds converts a calendar month in an organization's IANA
// timezone into a half-open UTC interval. The local first instant of the
// month maps to Start, the local first instant of the following month maps
// to End; a session exactly at End belongs to the next period.
//
// Computing bounds in server-local or naive UTC time shifts sessions across
// month boundaries near midnight, so this must be exact to the minute.
func ResolveMonthBounds(year, month int, ianaTZ string) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, &ConfigurationError{Reason: fmt.Sprintf("month %d is out of range 1-12", month)}
	}
	if year < 1 {
		return Period{}, &ConfigurationError{Reason: fmt.Sprintf("year %d is invalid", year)}
	}
	loc, err := time.LoadLocation(ianaTZ)
	if err != nil {
		return Period{}, &ConfigurationError{Reason: fmt.Sprintf("invalid IANA timezone %q", ianaTZ)}
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	end := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, loc)

	return Period{Start: start.UTC(), End: end.UTC()}, nil
}

// Contains reports whether t falls inside the half-open interval.
func (p Period) Contains(t time.Time) bool {
	u := t.UTC()
	return !u.Before(p.Start) && u.Before(p.End)
}
