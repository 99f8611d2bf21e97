package notify

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type fakeSender struct {
	mu    sync.Mutex
	calls []map[string]any
}

func (f *fakeSender) SendNotificationToAllClients(method string, params map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, params)
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestHub_FansOutToAllNotifiers(t *testing.T) {
	t.Parallel()

	a, b := &recorder{}, &recorder{}
	hub := NewHub(a)
	hub.Add(b)

	hub.Notify(Event{Type: "auth.expired", Level: LevelWarning, Blocking: true})

	assert.Eventually(t, func() bool { return a.count() == 1 && b.count() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestInbox_KeepsOnlyAlerts(t *testing.T) {
	t.Parallel()

	in := NewInbox(10)
	in.Notify(Event{Type: "sync.completed", Level: LevelInfo})
	in.Notify(Event{Type: "sync.failed", Level: LevelError, Subject: "appt-1", Message: "boom"})
	in.Notify(Event{Type: "auth.expired", Level: LevelInfo, Blocking: true, Message: "reconnect"})

	require.Equal(t, 2, in.Pending())

	alerts := in.Drain()
	require.Len(t, alerts, 2)
	assert.Equal(t, "sync.failed", alerts[0].Type)
	assert.Equal(t, "appt-1", alerts[0].Subject)
	assert.True(t, alerts[1].Blocking)
	assert.Equal(t, 0, in.Pending(), "drain empties the inbox")
}

func TestInbox_DropsOldestBeyondSize(t *testing.T) {
	t.Parallel()

	in := NewInbox(2)
	for i := range 4 {
		in.Notify(Event{Type: "sync.failed", Level: LevelError, Message: fmt.Sprint(i)})
	}

	alerts := in.Drain()
	require.Len(t, alerts, 2)
	assert.Equal(t, "2", alerts[0].Message)
	assert.Equal(t, "3", alerts[1].Message)
}

func TestMCPNotifier_DebouncesInfo(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	n := NewMCPNotifier(sender, time.Hour)

	n.Notify(Event{Type: "sync.completed", Level: LevelInfo, Subject: "a"})
	n.Notify(Event{Type: "sync.completed", Level: LevelInfo, Subject: "a"})
	n.Notify(Event{Type: "sync.completed", Level: LevelInfo, Subject: "b"})

	assert.Equal(t, 2, sender.count())
}

func TestMCPNotifier_AlwaysSendsWarningsAndBlocking(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	n := NewMCPNotifier(sender, time.Hour)

	n.Notify(Event{Type: "auth.expired", Level: LevelWarning, Blocking: true, Message: "reconnect"})
	n.Notify(Event{Type: "auth.expired", Level: LevelWarning, Blocking: true, Message: "reconnect"})

	require.Equal(t, 2, sender.count())
	data := sender.calls[0]["data"].(map[string]any)
	assert.Equal(t, "auth.expired", data["type"])
	assert.Equal(t, true, data["blocking"])
	assert.Equal(t, LevelWarning, sender.calls[0]["level"])
}

func TestLogNotifier_DoesNotPanic(t *testing.T) {
	t.Parallel()

	for _, level := range []string{LevelInfo, LevelWarning, LevelError, ""} {
		LogNotifier{}.Notify(Event{Type: "x", Level: level, Subject: "s"})
	}
}
