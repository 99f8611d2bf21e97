package appointment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when an appointment id is unknown.
	ErrNotFound = errors.New("appointment not found")
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid appointment")
)

// Status represents where a test drive stands.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Appointment is a scheduled test drive.
type Appointment struct {
	ID              string    `json:"id"`
	LeadName        string    `json:"leadName"`
	Phone           string    `json:"phone"`
	Date            time.Time `json:"date"`
	Model           string    `json:"model"`
	Notes           string    `json:"notes,omitempty"`
	Status          Status    `json:"status"`
	ExternalEventID string    `json:"externalEventId,omitempty"`
}

// Linked reports whether the appointment is mirrored in the remote calendar.
func (a Appointment) Linked() bool {
	return a.ExternalEventID != ""
}

// Draft is what the operator fills in; the store assigns ID and Status.
type Draft struct {
	LeadName string    `json:"leadName"`
	Phone    string    `json:"phone"`
	Date     time.Time `json:"date"`
	Model    string    `json:"model"`
	Notes    string    `json:"notes,omitempty"`
}

func (d Draft) validate() error {
	if err := requireText("leadName", d.LeadName); err != nil {
		return err
	}
	if err := requireText("phone", d.Phone); err != nil {
		return err
	}
	if err := requireText("model", d.Model); err != nil {
		return err
	}
	if d.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalid)
	}
	return nil
}

// Patch holds the fields of a partial update. Nil fields are left untouched.
// ID and ExternalEventID are not patchable.
type Patch struct {
	LeadName *string    `json:"leadName,omitempty"`
	Phone    *string    `json:"phone,omitempty"`
	Date     *time.Time `json:"date,omitempty"`
	Model    *string    `json:"model,omitempty"`
	Notes    *string    `json:"notes,omitempty"`
	Status   *Status    `json:"status,omitempty"`
}

// Empty reports whether the patch sets no field.
func (p Patch) Empty() bool {
	return p.LeadName == nil && p.Phone == nil && p.Date == nil &&
		p.Model == nil && p.Notes == nil && p.Status == nil
}

func (p Patch) validate() error {
	if p.LeadName != nil {
		if err := requireText("leadName", *p.LeadName); err != nil {
			return err
		}
	}
	if p.Phone != nil {
		if err := requireText("phone", *p.Phone); err != nil {
			return err
		}
	}
	if p.Model != nil {
		if err := requireText("model", *p.Model); err != nil {
			return err
		}
	}
	if p.Date != nil && p.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalid)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, *p.Status)
	}
	return nil
}

// apply shallow-merges p into a.
func (p Patch) apply(a Appointment) Appointment {
	if p.LeadName != nil {
		a.LeadName = *p.LeadName
	}
	if p.Phone != nil {
		a.Phone = *p.Phone
	}
	if p.Date != nil {
		a.Date = p.Date.Truncate(time.Minute)
	}
	if p.Model != nil {
		a.Model = *p.Model
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	return a
}

func requireText(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalid, field)
	}
	return nil
}
