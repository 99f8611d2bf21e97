package notify

import "log/slog"

// Levels understood by every notifier.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Event represents something the operator should hear about.
type Event struct {
	Type    string // "auth.expired", "auth.connected", "sync.completed", "sync.failed", ...
	Level   string
	Subject string // appointment id, when the event concerns one
	Message string

	// Blocking marks alerts the UI must acknowledge before continuing,
	// such as an expired calendar session.
	Blocking bool
}

// Notifier sends operator notifications.
type Notifier interface {
	Notify(event Event)
}

// Hub dispatches events to multiple notifiers.
type Hub struct {
	notifiers []Notifier
}

// NewHub creates a Hub with the given notifiers.
func NewHub(notifiers ...Notifier) *Hub {
	return &Hub{notifiers: notifiers}
}

// Add registers another notifier. Not safe to call concurrently with Notify.
func (h *Hub) Add(n Notifier) {
	h.notifiers = append(h.notifiers, n)
}

// Notify sends an event to all registered notifiers.
func (h *Hub) Notify(event Event) {
	for _, n := range h.notifiers {
		go n.Notify(event)
	}
}

// LogNotifier writes events to the default slog logger.
type LogNotifier struct{}

func (LogNotifier) Notify(event Event) {
	attrs := []any{"type", event.Type}
	if event.Subject != "" {
		attrs = append(attrs, "appointment_id", event.Subject)
	}
	attrs = append(attrs, "message", event.Message)

	switch event.Level {
	case LevelError:
		slog.Error("notification", attrs...)
	case LevelWarning:
		slog.Warn("notification", attrs...)
	default:
		slog.Info("notification", attrs...)
	}
}
