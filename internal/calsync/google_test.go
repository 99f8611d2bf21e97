package calsync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   calendar.Event
}

// fakeCalendar is a stub of the Google Calendar events collection.
type fakeCalendar struct {
	srv *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
	status   int // non-zero forces an error response
	nextID   int
}

func newFakeCalendar(t *testing.T) *fakeCalendar {
	t.Helper()
	f := &fakeCalendar{}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeCalendar) serve(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Auth:   r.Header.Get("Authorization"),
	}
	if r.Body != nil && r.Method != http.MethodDelete {
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	status := f.status
	f.nextID++
	id := fmt.Sprintf("evt-%d", f.nextID)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"%s"}}`, status, http.StatusText(status))
		return
	}

	switch r.Method {
	case http.MethodPost:
		_ = json.NewEncoder(w).Encode(calendar.Event{Id: id, Summary: rec.Body.Summary})
	case http.MethodPatch:
		_ = json.NewEncoder(w).Encode(calendar.Event{Id: r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]})
	case http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeCalendar) setStatus(code int) {
	f.mu.Lock()
	f.status = code
	f.mu.Unlock()
}

func (f *fakeCalendar) calls() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *fakeCalendar) remote() *GoogleCalendar {
	g := NewGoogleCalendar("primary", f.srv.URL+"/")
	g.SetHTTPClient(f.srv.Client())
	return g
}

func testEvent() Event {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return Event{Summary: "Test Drive: X - Ana", Description: "Client: Ana", Start: start, End: start.Add(EventDuration)}
}

func TestGoogleCalendar_Insert(t *testing.T) {
	t.Parallel()
	f := newFakeCalendar(t)

	id, err := f.remote().Insert(context.Background(), "ya29.tok", testEvent())
	require.NoError(t, err)
	assert.Equal(t, "evt-1", id)

	calls := f.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/calendars/primary/events", calls[0].Path)
	assert.Equal(t, "Bearer ya29.tok", calls[0].Auth)
	assert.Equal(t, "Test Drive: X - Ana", calls[0].Body.Summary)
	assert.Equal(t, "Client: Ana", calls[0].Body.Description)
	require.NotNil(t, calls[0].Body.Start)
	assert.Equal(t, "2024-05-01T10:00:00Z", calls[0].Body.Start.DateTime)
	assert.Equal(t, "2024-05-01T11:00:00Z", calls[0].Body.End.DateTime)
}

func TestGoogleCalendar_PatchAndDelete(t *testing.T) {
	t.Parallel()
	f := newFakeCalendar(t)
	g := f.remote()

	id, err := g.Patch(context.Background(), "tok", "evt-9", testEvent())
	require.NoError(t, err)
	assert.Equal(t, "evt-9", id)

	require.NoError(t, g.Delete(context.Background(), "tok", "evt-9"))

	calls := f.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPatch, calls[0].Method)
	assert.Equal(t, "/calendars/primary/events/evt-9", calls[0].Path)
	assert.Equal(t, http.MethodDelete, calls[1].Method)
	assert.Equal(t, "/calendars/primary/events/evt-9", calls[1].Path)
}

func TestGoogleCalendar_UnauthorizedIsClassified(t *testing.T) {
	t.Parallel()
	f := newFakeCalendar(t)
	f.setStatus(http.StatusUnauthorized)

	_, err := f.remote().Insert(context.Background(), "expired", testEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGoogleCalendar_OtherFailuresAreNotUnauthorized(t *testing.T) {
	t.Parallel()
	f := newFakeCalendar(t)

	for _, code := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
		f.setStatus(code)
		err := f.remote().Delete(context.Background(), "tok", "evt-1")
		require.Error(t, err, code)
		assert.NotErrorIs(t, err, ErrUnauthorized, code)
	}
}
