// Package ical exports appointments as an iCalendar feed.
package ical

import (
	"fmt"
	"io"
	"time"

	goical "github.com/emersion/go-ical"

	"github.com/btouchard/driveflow/internal/appointment"
	"github.com/btouchard/driveflow/internal/calsync"
)

const productID = "-//DriveFlow//Test Drives//EN"

// Encode writes appointments to w as a VCALENDAR. Each event carries the
// same summary, description and window as the Google Calendar mirror.
func Encode(w io.Writer, appointments []appointment.Appointment) error {
	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropProductID, productID)
	cal.Props.SetText(goical.PropCalendarScale, "GREGORIAN")

	stamp := time.Now().UTC()
	for _, a := range appointments {
		cal.Children = append(cal.Children, newEvent(a, stamp).Component)
	}

	if err := goical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}

func newEvent(a appointment.Appointment, stamp time.Time) *goical.Event {
	payload := calsync.NewEvent(a)

	ev := goical.NewEvent()
	ev.Props.SetText(goical.PropUID, a.ID+"@driveflow")
	ev.Props.SetDateTime(goical.PropDateTimeStamp, stamp)
	ev.Props.SetDateTime(goical.PropDateTimeStart, payload.Start)
	ev.Props.SetDateTime(goical.PropDateTimeEnd, payload.End)
	ev.Props.SetText(goical.PropSummary, payload.Summary)
	ev.Props.SetText(goical.PropDescription, payload.Description)
	ev.Props.SetText(goical.PropStatus, status(a.Status))
	return ev
}

func status(s appointment.Status) string {
	if s == appointment.StatusCancelled {
		return "CANCELLED"
	}
	return "CONFIRMED"
}
