package calsync

import (
	"fmt"
	"time"

	"github.com/btouchard/driveflow/internal/appointment"
)

// EventDuration is the fixed length of a mirrored test drive.
const EventDuration = time.Hour

// Event is the remote calendar payload for one appointment.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// NewEvent builds the payload mirrored for a.
func NewEvent(a appointment.Appointment) Event {
	notes := a.Notes
	if notes == "" {
		notes = "-"
	}
	start := a.Date.UTC()
	return Event{
		Summary:     fmt.Sprintf("Test Drive: %s - %s", a.Model, a.LeadName),
		Description: fmt.Sprintf("Client: %s\nPhone: %s\nNotes: %s", a.LeadName, a.Phone, notes),
		Start:       start,
		End:         start.Add(EventDuration),
	}
}
