package calsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/btouchard/driveflow/internal/appointment"
	"github.com/btouchard/driveflow/internal/task"
)

// Tokens supplies the bearer token and receives authorization failures.
type Tokens interface {
	AccessToken() (string, bool)
	Invalidate(token string)
}

// Linker records the remote event id of an appointment.
type Linker interface {
	LinkExternalEvent(id, externalID string) error
}

// Engine mirrors local appointment mutations to the remote calendar. Each
// mutation becomes one background task; local state is never reverted.
type Engine struct {
	tasks  *task.Manager
	remote Remote
	tokens Tokens
	linker Linker

	mu   sync.Mutex
	last chan struct{} // closed once the previous task issued its call
}

// NewEngine creates an Engine.
func NewEngine(tasks *task.Manager, remote Remote, tokens Tokens, linker Linker) *Engine {
	last := make(chan struct{})
	close(last)
	return &Engine{
		tasks:  tasks,
		remote: remote,
		tokens: tokens,
		linker: linker,
		last:   last,
	}
}

// Handle is the appointment store's MutationFunc. It never blocks.
func (e *Engine) Handle(m appointment.Mutation) {
	e.Submit(m)
}

// Submit starts the reconciliation task for m and returns it. Remote calls
// are issued in submission order; their completion order is not constrained.
func (e *Engine) Submit(m appointment.Mutation) *task.Task {
	a := m.Appointment
	turn := e.nextTurn()

	switch m.Op {
	case appointment.OpCreate:
		return e.tasks.Go(task.KindCreate, a.ID, func(ctx context.Context, t *task.Task) error {
			defer turn.pass()
			return e.create(ctx, t, turn, a)
		})
	case appointment.OpUpdate:
		return e.tasks.Go(task.KindUpdate, a.ID, func(ctx context.Context, t *task.Task) error {
			defer turn.pass()
			return e.update(ctx, t, turn, a)
		})
	case appointment.OpDelete:
		return e.tasks.Go(task.KindDelete, a.ID, func(ctx context.Context, t *task.Task) error {
			defer turn.pass()
			return e.remove(ctx, turn, a)
		})
	}

	turn.pass()
	slog.Error("unknown mutation op", "op", string(m.Op), "appointment_id", a.ID)
	return nil
}

func (e *Engine) create(ctx context.Context, t *task.Task, turn *turn, a appointment.Appointment) error {
	token, err := turn.wait(ctx, e.tokens)
	if err != nil {
		return err
	}

	id, err := e.remote.Insert(ctx, token, NewEvent(a))
	if err != nil {
		return e.failed(err, token)
	}
	t.SetResult(id)

	if err := e.linker.LinkExternalEvent(a.ID, id); err != nil {
		if errors.Is(err, appointment.ErrNotFound) {
			slog.Warn("remote event orphaned, appointment deleted before its create finished",
				"appointment_id", a.ID,
				"event_id", id)
			t.SetNote("appointment deleted before create finished; remote event orphaned")
			return nil
		}
		return fmt.Errorf("linking event %s: %w", id, err)
	}

	slog.Info("appointment mirrored", "appointment_id", a.ID, "event_id", id)
	return nil
}

// update patches a linked event. An appointment whose create failed or is
// still in flight has no event id and stays unsynced until it is edited
// again after linking.
func (e *Engine) update(ctx context.Context, t *task.Task, turn *turn, a appointment.Appointment) error {
	if !a.Linked() {
		slog.Debug("update not mirrored, appointment has no remote event", "appointment_id", a.ID)
		return task.Skip("appointment not linked to a calendar event")
	}

	token, err := turn.wait(ctx, e.tokens)
	if err != nil {
		return err
	}

	id, err := e.remote.Patch(ctx, token, a.ExternalEventID, NewEvent(a))
	if err != nil {
		return e.failed(err, token)
	}
	if id == "" {
		id = a.ExternalEventID
	}
	t.SetResult(id)

	if id != a.ExternalEventID {
		if err := e.linker.LinkExternalEvent(a.ID, id); err != nil && !errors.Is(err, appointment.ErrNotFound) {
			return fmt.Errorf("relinking event %s: %w", id, err)
		}
	}
	return nil
}

func (e *Engine) remove(ctx context.Context, turn *turn, a appointment.Appointment) error {
	if !a.Linked() {
		return task.Skip("appointment not linked to a calendar event")
	}

	token, err := turn.wait(ctx, e.tokens)
	if err != nil {
		return err
	}

	if err := e.remote.Delete(ctx, token, a.ExternalEventID); err != nil {
		return e.failed(err, token)
	}
	return nil
}

// failed invalidates token on an authorization failure. Every other
// failure is only reported through the task.
func (e *Engine) failed(err error, token string) error {
	if errors.Is(err, ErrUnauthorized) {
		e.tokens.Invalidate(token)
	}
	return err
}

func (e *Engine) nextTurn() *turn {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := &turn{prev: e.last, done: make(chan struct{})}
	e.last = t.done
	return t
}

// turn orders the moment tasks issue their remote call.
type turn struct {
	prev <-chan struct{}
	done chan struct{}
	once sync.Once
}

// wait blocks until the previous task has issued its call, then reads the
// token and hands the turn to the next task. A missing token skips the task.
func (t *turn) wait(ctx context.Context, tokens Tokens) (string, error) {
	select {
	case <-t.prev:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer t.issued()

	token, ok := tokens.AccessToken()
	if !ok {
		return "", task.Skip("calendar not connected")
	}
	return token, nil
}

func (t *turn) issued() {
	t.once.Do(func() { close(t.done) })
}

// pass hands the turn on for a task that finished without issuing a call.
// The next task still waits for every earlier one.
func (t *turn) pass() {
	select {
	case <-t.prev:
		t.issued()
	default:
		go func() {
			<-t.prev
			t.issued()
		}()
	}
}
