package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Event represents a task state change for notification dispatch.
type Event struct {
	Type    string // "sync.started", "sync.completed", "sync.failed", "sync.skipped"
	TaskID  string
	Kind    Kind
	Subject string
	Message string
}

// NotifyFunc is called when a task lifecycle event occurs.
type NotifyFunc func(Event)

// Func is the body of a task. Returning a Skip error marks the task skipped.
type Func func(ctx context.Context, t *Task) error

type skipError struct{ reason string }

func (e *skipError) Error() string { return e.reason }

// Skip reports that a task had nothing to do.
func Skip(reason string) error {
	return &skipError{reason: reason}
}

// Manager runs tasks in the background and keeps a bounded history of them.
type Manager struct {
	mu    sync.RWMutex
	tasks map[string]*Task

	timeout  time.Duration
	history  int
	wg       sync.WaitGroup
	onNotify NotifyFunc
}

// NewManager creates a Manager. timeout bounds each task run, history caps
// how many finished tasks are remembered.
func NewManager(timeout time.Duration, history int) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if history < 1 {
		history = 200
	}
	return &Manager{
		tasks:   make(map[string]*Task),
		timeout: timeout,
		history: history,
	}
}

// SetNotifyFunc sets the callback for task lifecycle events.
func (m *Manager) SetNotifyFunc(fn NotifyFunc) {
	m.onNotify = fn
}

// Go registers a task and starts it immediately in its own goroutine.
// The returned Task is a future: wait on Done() and read Snapshot().
func (m *Manager) Go(kind Kind, subject string, fn Func) *Task {
	t := New(kind, subject)

	m.mu.Lock()
	m.tasks[t.ID] = t
	m.mu.Unlock()

	// Detached from the caller: a task outlives the request that caused it.
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)

	t.SetStatus(StatusRunning)
	m.wg.Add(1)
	go m.run(ctx, cancel, t, fn)

	return t
}

func (m *Manager) run(ctx context.Context, cancel context.CancelFunc, t *Task, fn Func) {
	defer m.wg.Done()
	defer m.prune()
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("task panicked",
				"task_id", t.ID,
				"panic", r)
			t.SetError(fmt.Sprintf("internal panic: %v", r))
			t.SetStatus(StatusFailed)
			m.emit(t, "sync.failed", fmt.Sprintf("internal panic: %v", r))
		}
	}()

	err := fn(ctx, t)

	var skip *skipError
	switch {
	case err == nil:
		t.SetStatus(StatusCompleted)
		m.emit(t, "sync.completed", string(t.Kind)+" completed")
	case errors.As(err, &skip):
		t.SetNote(skip.reason)
		t.SetStatus(StatusSkipped)
		m.emit(t, "sync.skipped", skip.reason)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		t.SetError("task timed out")
		t.SetStatus(StatusFailed)
		slog.Warn("task timed out", "task_id", t.ID, "kind", string(t.Kind))
		m.emit(t, "sync.failed", "task timed out")
	default:
		t.SetError(err.Error())
		t.SetStatus(StatusFailed)
		m.emit(t, "sync.failed", err.Error())
	}
}

// emit sends a task event to the notify callback if one is set.
func (m *Manager) emit(t *Task, eventType, message string) {
	if m.onNotify == nil {
		return
	}
	m.onNotify(Event{
		Type:    eventType,
		TaskID:  t.ID,
		Kind:    t.Kind,
		Subject: t.Subject,
		Message: message,
	})
}

// prune drops the oldest finished tasks beyond the history limit.
func (m *Manager) prune() {
	m.mu.Lock()
	defer m.mu.Unlock()

	excess := len(m.tasks) - m.history
	if excess <= 0 {
		return
	}

	var finished []*Task
	for _, t := range m.tasks {
		if t.IsTerminal() {
			finished = append(finished, t)
		}
	}
	slices.SortFunc(finished, func(a, b *Task) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	for i := 0; i < excess && i < len(finished); i++ {
		delete(m.tasks, finished[i].ID)
	}
}

// Get returns a task by ID.
func (m *Manager) Get(id string) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %q not found", id)
	}
	return t, nil
}

// Filter specifies criteria for listing tasks.
type Filter struct {
	Status  string
	Subject string
	Limit   int
}

// List returns tasks matching the given filter, newest first.
func (m *Manager) List(filter Filter) []Snapshot {
	m.mu.RLock()
	var results []Snapshot
	for _, t := range m.tasks {
		snap := t.Snapshot()

		if filter.Status != "" && filter.Status != "all" && snap.Status != Status(filter.Status) {
			continue
		}
		if filter.Subject != "" && snap.Subject != filter.Subject {
			continue
		}

		results = append(results, snap)
	}
	m.mu.RUnlock()

	slices.SortFunc(results, func(a, b Snapshot) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}

	return results
}

// RunningCount returns the number of tasks still in flight.
func (m *Manager) RunningCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, t := range m.tasks {
		if !t.IsTerminal() {
			count++
		}
	}
	return count
}

// Wait blocks until every started task has finished or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
