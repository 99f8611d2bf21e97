package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, task *Task) {
	t.Helper()
	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish in time")
	}
}

func TestManager_Go_Completes(t *testing.T) {
	t.Parallel()

	m := NewManager(time.Second, 10)
	task := m.Go(KindCreate, "appt-1", func(ctx context.Context, t *Task) error {
		t.SetResult("evt_1")
		return nil
	})

	waitDone(t, task)
	snap := task.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "evt_1", snap.Result)
	assert.Empty(t, snap.Error)
}

func TestManager_Go_Fails(t *testing.T) {
	t.Parallel()

	m := NewManager(time.Second, 10)
	task := m.Go(KindUpdate, "appt-1", func(ctx context.Context, t *Task) error {
		return errors.New("remote said no")
	})

	waitDone(t, task)
	snap := task.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "remote said no", snap.Error)
}

func TestManager_Go_Skip(t *testing.T) {
	t.Parallel()

	m := NewManager(time.Second, 10)
	task := m.Go(KindUpdate, "appt-1", func(ctx context.Context, t *Task) error {
		return Skip("not linked")
	})

	waitDone(t, task)
	snap := task.Snapshot()
	assert.Equal(t, StatusSkipped, snap.Status)
	assert.Equal(t, "not linked", snap.Note)
}

func TestManager_Go_RecoversPanic(t *testing.T) {
	t.Parallel()

	m := NewManager(time.Second, 10)
	task := m.Go(KindDelete, "appt-1", func(ctx context.Context, t *Task) error {
		panic("boom")
	})

	waitDone(t, task)
	snap := task.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Contains(t, snap.Error, "boom")
}

func TestManager_Go_TimesOut(t *testing.T) {
	t.Parallel()

	m := NewManager(20*time.Millisecond, 10)
	task := m.Go(KindCreate, "appt-1", func(ctx context.Context, t *Task) error {
		<-ctx.Done()
		return ctx.Err()
	})

	waitDone(t, task)
	assert.Equal(t, "task timed out", task.Snapshot().Error)
}

func TestManager_Notify_ReceivesLifecycle(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var events []Event

	m := NewManager(time.Second, 10)
	m.SetNotifyFunc(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	task := m.Go(KindCreate, "appt-7", func(ctx context.Context, t *Task) error { return nil })
	require.NoError(t, m.Wait(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "sync.completed", events[0].Type)
	assert.Equal(t, task.ID, events[0].TaskID)
	assert.Equal(t, "appt-7", events[0].Subject)
}

func TestManager_Get(t *testing.T) {
	t.Parallel()

	m := NewManager(time.Second, 10)
	created := m.Go(KindCreate, "a", func(ctx context.Context, t *Task) error { return nil })

	found, err := m.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = m.Get("sync-nonexist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestManager_List_FiltersAndOrders(t *testing.T) {
	t.Parallel()

	m := NewManager(time.Second, 10)
	first := m.Go(KindCreate, "a", func(ctx context.Context, t *Task) error { return nil })
	time.Sleep(2 * time.Millisecond)
	m.Go(KindUpdate, "b", func(ctx context.Context, t *Task) error { return Skip("not linked") })
	time.Sleep(2 * time.Millisecond)
	last := m.Go(KindDelete, "a", func(ctx context.Context, t *Task) error { return nil })
	require.NoError(t, m.Wait(context.Background()))

	all := m.List(Filter{})
	require.Len(t, all, 3)
	assert.Equal(t, last.ID, all[0].ID, "newest first")
	assert.Equal(t, first.ID, all[2].ID)

	assert.Len(t, m.List(Filter{Subject: "a"}), 2)
	assert.Len(t, m.List(Filter{Status: string(StatusSkipped)}), 1)
	assert.Len(t, m.List(Filter{Limit: 1}), 1)
}

func TestManager_PrunesHistory(t *testing.T) {
	t.Parallel()

	m := NewManager(time.Second, 3)
	for i := range 6 {
		m.Go(KindCreate, fmt.Sprintf("a-%d", i), func(ctx context.Context, t *Task) error { return nil })
	}
	require.NoError(t, m.Wait(context.Background()))

	assert.LessOrEqual(t, len(m.List(Filter{})), 3)
	assert.Equal(t, 0, m.RunningCount())
}

func TestManager_Wait_HonoursContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	m := NewManager(5*time.Second, 10)
	m.Go(KindCreate, "a", func(ctx context.Context, t *Task) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Wait(ctx), context.DeadlineExceeded)
	assert.Equal(t, 1, m.RunningCount())

	close(release)
	require.NoError(t, m.Wait(context.Background()))
}
