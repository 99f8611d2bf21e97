package appointment

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/btouchard/driveflow/internal/store"
)

// Store is the authoritative in-memory collection of appointments. Every
// mutation writes the full collection to the snapshot store before returning.
type Store struct {
	mu    sync.RWMutex
	items []Appointment

	kv       store.Store
	loc      *time.Location
	newID    IDGenerator
	onMutate MutationFunc
}

// NewStore creates an empty Store persisting into kv. Calendar days are
// evaluated in loc (time.Local when nil).
func NewStore(kv store.Store, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{
		kv:    kv,
		loc:   loc,
		newID: NewULIDGenerator(),
	}
}

// SetIDGenerator replaces the id source.
func (s *Store) SetIDGenerator(gen IDGenerator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newID = gen
}

// SetMutationFunc registers the receiver of persisted mutations.
func (s *Store) SetMutationFunc(fn MutationFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMutate = fn
}

// Load replaces the in-memory collection with the persisted snapshot.
// A missing snapshot yields an empty collection.
func (s *Store) Load() error {
	data, err := s.kv.Get(store.KeyAppointments)
	if errors.Is(err, store.ErrNotFound) {
		s.mu.Lock()
		s.items = nil
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading appointments: %w", err)
	}

	var items []Appointment
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decoding appointments snapshot: %w", err)
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	slog.Info("appointments loaded", "count", len(items))
	return nil
}

// Execute applies cmd, persists the collection and hands the resulting
// mutation to the MutationFunc. If the snapshot write fails the change is
// rolled back and the error returned. The bool reports whether cmd changed
// anything.
func (s *Store) Execute(cmd Command) (Mutation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := slices.Clone(s.items)

	m, changed, err := cmd.apply(s)
	if err != nil {
		s.items = prev
		return Mutation{}, false, err
	}
	if !changed {
		return m, false, nil
	}

	if err := s.persist(); err != nil {
		s.items = prev
		return Mutation{}, false, err
	}

	if s.onMutate != nil {
		s.onMutate(m)
	}
	return m, true, nil
}

// Add creates a scheduled appointment and returns it. Remote mirroring, if
// any, completes later.
func (s *Store) Add(d Draft) (Appointment, error) {
	m, _, err := s.Execute(AddCommand{Draft: d})
	if err != nil {
		return Appointment{}, err
	}
	slog.Info("appointment added", "appointment_id", m.Appointment.ID)
	return m.Appointment, nil
}

// Update merges p into the appointment with id. An unknown id is silently
// ignored: it returns false and no error.
func (s *Store) Update(id string, p Patch) (Appointment, bool, error) {
	m, _, err := s.Execute(UpdateCommand{ID: id, Patch: p})
	if err != nil {
		return Appointment{}, false, err
	}
	if m.Op == "" {
		slog.Debug("update ignored, unknown appointment", "appointment_id", id)
		return Appointment{}, false, nil
	}
	return m.Appointment, true, nil
}

// Delete removes the appointment with id and returns it so the caller can
// retract the remote event. An unknown id returns false and no error.
func (s *Store) Delete(id string) (Appointment, bool, error) {
	m, changed, err := s.Execute(DeleteCommand{ID: id})
	if err != nil {
		return Appointment{}, false, err
	}
	if !changed {
		slog.Debug("delete ignored, unknown appointment", "appointment_id", id)
		return Appointment{}, false, nil
	}
	slog.Info("appointment deleted", "appointment_id", id)
	return m.Appointment, true, nil
}

// LinkExternalEvent records the remote event id of an appointment. It is the
// only way ExternalEventID changes and does not produce a mutation.
func (s *Store) LinkExternalEvent(id, externalID string) error {
	if externalID == "" {
		return fmt.Errorf("%w: empty external event id", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("linking %s: %w", id, ErrNotFound)
	}
	if s.items[i].ExternalEventID == externalID {
		return nil
	}

	prev := s.items[i].ExternalEventID
	s.items[i].ExternalEventID = externalID
	if err := s.persist(); err != nil {
		s.items[i].ExternalEventID = prev
		return err
	}
	return nil
}

// Get returns the appointment with id.
func (s *Store) Get(id string) (Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.index(id)
	if i < 0 {
		return Appointment{}, false
	}
	return s.items[i], true
}

// List returns every appointment in insertion order.
func (s *Store) List() []Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// QueryByDate returns the appointments on the same calendar day as day,
// ordered by time of day.
func (s *Store) QueryByDate(day time.Time) []Appointment {
	y, m, d := day.In(s.loc).Date()

	s.mu.RLock()
	var out []Appointment
	for _, a := range s.items {
		ay, am, ad := a.Date.In(s.loc).Date()
		if ay == y && am == m && ad == d {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b Appointment) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

// Location is the zone used to decide calendar days.
func (s *Store) Location() *time.Location {
	return s.loc
}

func (s *Store) persist() error {
	items := s.items
	if items == nil {
		items = []Appointment{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding appointments snapshot: %w", err)
	}
	if err := s.kv.Put(store.KeyAppointments, data); err != nil {
		return fmt.Errorf("saving appointments snapshot: %w", err)
	}
	return nil
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.items, func(a Appointment) bool { return a.ID == id })
}

// uniqueID draws ids until one is free. Called with mu held.
func (s *Store) uniqueID() string {
	for {
		id := s.newID()
		if s.index(id) < 0 {
			return id
		}
	}
}
