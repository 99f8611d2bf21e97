package notify

import (
	"log/slog"
	"sync"
	"time"
)

// MCPSender abstracts the mcp-go server notification methods.
// Defined consumer-side per Go convention.
type MCPSender interface {
	SendNotificationToAllClients(method string, params map[string]any)
}

// MCPNotifier pushes operator notifications to connected MCP clients.
type MCPNotifier struct {
	sender   MCPSender
	debounce time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time // event type + subject → last info notification
}

// NewMCPNotifier creates an MCPNotifier with the given debounce interval
// for info events. Warnings, errors and blocking alerts are always sent
// immediately.
func NewMCPNotifier(sender MCPSender, debounce time.Duration) *MCPNotifier {
	if debounce <= 0 {
		debounce = 3 * time.Second
	}
	return &MCPNotifier{
		sender:   sender,
		debounce: debounce,
		lastSent: make(map[string]time.Time),
	}
}

// Notify sends an MCP notifications/message for the given event.
func (n *MCPNotifier) Notify(event Event) {
	level := event.Level
	if level == "" {
		level = LevelInfo
	}

	if level == LevelInfo && !event.Blocking && n.debounced(event.Type+"|"+event.Subject) {
		slog.Debug("mcp notification debounced", "type", event.Type, "appointment_id", event.Subject)
		return
	}

	n.sender.SendNotificationToAllClients("notifications/message", map[string]any{
		"level":  level,
		"logger": "driveflow",
		"data": map[string]any{
			"type":           event.Type,
			"appointment_id": event.Subject,
			"message":        event.Message,
			"blocking":       event.Blocking,
		},
	})
}

func (n *MCPNotifier) debounced(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	last, ok := n.lastSent[key]
	if ok && time.Since(last) < n.debounce {
		return true
	}
	n.lastSent[key] = time.Now()
	return false
}
