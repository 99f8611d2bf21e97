package appointment

import (
	"fmt"
	"time"
)

// Layouts accepted for appointment times, besides RFC 3339.
const (
	DayLayout      = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"
)

// ParseDay parses a YYYY-MM-DD calendar day in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: day %q must be YYYY-MM-DD", ErrInvalid, s)
	}
	return d, nil
}

// ParseDateTime parses an RFC 3339 timestamp, or a zone-less
// YYYY-MM-DDTHH:MM wall time interpreted in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(DateTimeLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be RFC 3339 or YYYY-MM-DDTHH:MM", ErrInvalid, s)
	}
	return t, nil
}
