package appointment

import "time"

// Op names the kind of local mutation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Mutation describes a change that was applied and persisted locally.
// For OpDelete, Appointment is the entity as it was before removal.
type Mutation struct {
	Op          Op
	Appointment Appointment
}

// MutationFunc receives every persisted mutation, in the order they were
// applied. It runs while the store is locked: it must not block and must not
// call back into the store synchronously.
type MutationFunc func(Mutation)

// Command is a local mutation intent applied by Store.Execute.
type Command interface {
	// apply changes the working copy and reports whether anything changed.
	apply(s *Store) (Mutation, bool, error)
}

// AddCommand creates a new scheduled appointment from a draft.
type AddCommand struct {
	Draft Draft
}

func (c AddCommand) apply(s *Store) (Mutation, bool, error) {
	if err := c.Draft.validate(); err != nil {
		return Mutation{}, false, err
	}

	a := Appointment{
		ID:       s.uniqueID(),
		LeadName: c.Draft.LeadName,
		Phone:    c.Draft.Phone,
		Date:     c.Draft.Date.Truncate(time.Minute),
		Model:    c.Draft.Model,
		Notes:    c.Draft.Notes,
		Status:   StatusScheduled,
	}
	s.items = append(s.items, a)
	return Mutation{Op: OpCreate, Appointment: a}, true, nil
}

// UpdateCommand shallow-merges Patch into the appointment with ID.
// An unknown ID is a silent no-op.
type UpdateCommand struct {
	ID    string
	Patch Patch
}

func (c UpdateCommand) apply(s *Store) (Mutation, bool, error) {
	i := s.index(c.ID)
	if i < 0 {
		return Mutation{}, false, nil
	}
	if c.Patch.Empty() {
		return Mutation{Op: OpUpdate, Appointment: s.items[i]}, false, nil
	}
	if err := c.Patch.validate(); err != nil {
		return Mutation{}, false, err
	}

	before := s.items[i]
	merged := c.Patch.apply(before)
	if equal(before, merged) {
		return Mutation{Op: OpUpdate, Appointment: before}, false, nil
	}

	s.items[i] = merged
	return Mutation{Op: OpUpdate, Appointment: merged}, true, nil
}

// DeleteCommand removes the appointment with ID. An unknown ID is a no-op.
type DeleteCommand struct {
	ID string
}

func (c DeleteCommand) apply(s *Store) (Mutation, bool, error) {
	i := s.index(c.ID)
	if i < 0 {
		return Mutation{}, false, nil
	}

	removed := s.items[i]
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	return Mutation{Op: OpDelete, Appointment: removed}, true, nil
}

func equal(a, b Appointment) bool {
	return a.ID == b.ID && a.LeadName == b.LeadName && a.Phone == b.Phone &&
		a.Date.Equal(b.Date) && a.Model == b.Model && a.Notes == b.Notes &&
		a.Status == b.Status && a.ExternalEventID == b.ExternalEventID
}
