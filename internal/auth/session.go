package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/btouchard/driveflow/internal/store"
)

// ErrInvalidEmail is returned by Login for a malformed address.
var ErrInvalidEmail = errors.New("invalid email address")

// Operator is the signed-in salesperson.
type Operator struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// Sessions holds the single operator session. There is no password check:
// DriveFlow binds to loopback and serves one local operator.
type Sessions struct {
	mu      sync.RWMutex
	current *Operator

	kv     store.Store
	name   string
	avatar string
}

// NewSessions creates a Sessions that names operators name.
func NewSessions(kv store.Store, name, avatar string) *Sessions {
	return &Sessions{kv: kv, name: name, avatar: avatar}
}

// Load restores a persisted session.
func (s *Sessions) Load() error {
	data, err := s.kv.Get(store.KeySessionUser)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	var op Operator
	if err := json.Unmarshal(data, &op); err != nil {
		slog.Warn("discarding unreadable session", "error", err)
		return nil
	}

	s.mu.Lock()
	s.current = &op
	s.mu.Unlock()
	return nil
}

// Login signs in the operator with email and persists the session.
func (s *Sessions) Login(email string) (Operator, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return Operator{}, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	op := Operator{
		ID:     uuid.NewString(),
		Name:   s.name,
		Email:  addr.Address,
		Avatar: s.avatar,
	}
	data, err := json.Marshal(op)
	if err != nil {
		return Operator{}, fmt.Errorf("encoding session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Put(store.KeySessionUser, data); err != nil {
		return Operator{}, fmt.Errorf("saving session: %w", err)
	}
	s.current = &op

	slog.Info("operator signed in", "operator_id", op.ID)
	return op, nil
}

// Logout ends the session.
func (s *Sessions) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(store.KeySessionUser); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	s.current = nil
	return nil
}

// Current returns the signed-in operator.
func (s *Sessions) Current() (Operator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return Operator{}, false
	}
	return *s.current, true
}
