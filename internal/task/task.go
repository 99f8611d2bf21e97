package task

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"
)

// Kind names the reconciliation a task performs.
type Kind string

const (
	KindCreate Kind = "calendar.create"
	KindUpdate Kind = "calendar.update"
	KindDelete Kind = "calendar.delete"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped" // nothing to do: not connected or not linked
)

// Task is a background reconciliation unit. Once started it runs to
// completion; there is no cancellation.
type Task struct {
	mu sync.RWMutex

	ID      string
	Kind    Kind
	Subject string // appointment id
	Status  Status
	Result  string // e.g. the remote event id
	Note    string // why the task was skipped
	Error   string

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	done chan struct{}
}

// GenerateID creates a new task ID in the format sync-{8 hex chars}.
func GenerateID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("sync-%x", b)
}

// New creates a pending Task.
func New(kind Kind, subject string) *Task {
	return &Task{
		ID:        GenerateID(),
		Kind:      kind,
		Subject:   subject,
		Status:    StatusPending,
		CreatedAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// Done returns a channel that is closed when the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// IsTerminal returns true if the task is in a final state.
func (t *Task) IsTerminal() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status.terminal()
}

func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// SetStatus updates the task status and timestamps.
func (t *Task) SetStatus(s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Status = s
	switch {
	case s == StatusRunning:
		t.StartedAt = time.Now()
	case s.terminal():
		t.CompletedAt = time.Now()
		select {
		case <-t.done:
		default:
			close(t.done)
		}
	}
}

// SetResult records the outcome value of a successful task.
func (t *Task) SetResult(v string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Result = v
}

// SetNote records why a task was skipped.
func (t *Task) SetNote(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Note = msg
}

// SetError records an error message.
func (t *Task) SetError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Error = msg
}

// Snapshot returns a read-consistent copy of key fields.
func (t *Task) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return Snapshot{
		ID:          t.ID,
		Kind:        t.Kind,
		Subject:     t.Subject,
		Status:      t.Status,
		Result:      t.Result,
		Note:        t.Note,
		Error:       t.Error,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}

// Snapshot is a read-only copy of a Task's state at a point in time.
type Snapshot struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Subject     string    `json:"appointment_id"`
	Status      Status    `json:"status"`
	Result      string    `json:"result,omitempty"`
	Note        string    `json:"note,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Duration returns the elapsed time from start to completion (or now if still running).
func (s Snapshot) Duration() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	end := s.CompletedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartedAt)
}
