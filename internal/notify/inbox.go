package notify

import (
	"sync"
	"time"
)

// Alert is an Event waiting in the Inbox for the UI to pick up.
type Alert struct {
	Type      string    `json:"type"`
	Level     string    `json:"level"`
	Subject   string    `json:"appointment_id,omitempty"`
	Message   string    `json:"message"`
	Blocking  bool      `json:"blocking"`
	CreatedAt time.Time `json:"created_at"`
}

// Inbox keeps the most recent alerts until the UI drains them.
// Only warnings, errors and blocking events are kept.
type Inbox struct {
	mu     sync.Mutex
	size   int
	alerts []Alert
}

// NewInbox creates an Inbox holding at most size alerts.
func NewInbox(size int) *Inbox {
	if size < 1 {
		size = 50
	}
	return &Inbox{size: size}
}

func (in *Inbox) Notify(event Event) {
	if !event.Blocking && event.Level != LevelWarning && event.Level != LevelError {
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	in.alerts = append(in.alerts, Alert{
		Type:      event.Type,
		Level:     event.Level,
		Subject:   event.Subject,
		Message:   event.Message,
		Blocking:  event.Blocking,
		CreatedAt: time.Now(),
	})
	if excess := len(in.alerts) - in.size; excess > 0 {
		in.alerts = in.alerts[excess:]
	}
}

// Drain returns pending alerts oldest first and empties the inbox.
func (in *Inbox) Drain() []Alert {
	in.mu.Lock()
	defer in.mu.Unlock()

	out := in.alerts
	in.alerts = nil
	return out
}

// Pending reports how many alerts are waiting.
func (in *Inbox) Pending() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.alerts)
}
