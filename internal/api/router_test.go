package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btouchard/driveflow/internal/appointment"
	"github.com/btouchard/driveflow/internal/auth"
	"github.com/btouchard/driveflow/internal/notify"
	"github.com/btouchard/driveflow/internal/store"
	"github.com/btouchard/driveflow/internal/task"
)

type testServer struct {
	srv      *httptest.Server
	deps     *Deps
	provider *auth.GoogleProvider

	mu     sync.Mutex
	opened []string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	kv, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	ts := &testServer{}

	inbox := notify.NewInbox(10)
	provider := auth.NewGoogleProvider("secret", "http://127.0.0.1/oauth/callback")
	provider.SetURLOpener(func(u string) error {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		ts.opened = append(ts.opened, u)
		return nil
	})
	provider.SetReady(true)

	tokens := auth.NewTokenManager(kv, provider, inbox, auth.Options{})
	require.NoError(t, tokens.Load())

	ts.provider = provider
	ts.deps = &Deps{
		Appointments: appointment.NewStore(kv, time.UTC),
		Tokens:       tokens,
		Sessions:     auth.NewSessions(kv, "Sales Manager", ""),
		Tasks:        task.NewManager(time.Second, 10),
		Inbox:        inbox,
		Callback:     provider.HandleCallback,
		Version:      "test",
	}
	ts.srv = httptest.NewServer(NewRouter(ts.deps))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*http.Response, string) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func (ts *testServer) login(t *testing.T) {
	t.Helper()
	resp, _ := ts.do(t, http.MethodPost, "/api/session", `{"email":"ana@dealer.test"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, body)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestSession_GatesAppointmentRoutes(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodGet, "/api/appointments", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/session", `{"email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ts.login(t)

	resp, body := ts.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "ana@dealer.test")

	resp, body = ts.do(t, http.MethodGet, "/api/appointments", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, body)

	resp, _ = ts.do(t, http.MethodDelete, "/api/session", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/api/appointments", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAppointments_CRUD(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.login(t)

	resp, body := ts.do(t, http.MethodPost, "/api/appointments",
		`{"leadName":"Ana","phone":"111","date":"2024-05-01T10:00:00Z","model":"X"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	var created appointment.Appointment
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, appointment.StatusScheduled, created.Status)

	resp, body = ts.do(t, http.MethodGet, "/api/appointments/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"leadName":"Ana"`)

	resp, body = ts.do(t, http.MethodPatch, "/api/appointments/"+created.ID, `{"model":"Y","status":"completed"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"model":"Y"`)
	assert.Contains(t, body, `"status":"completed"`)

	resp, _ = ts.do(t, http.MethodPatch, "/api/appointments/missing", `{"model":"Y"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = ts.do(t, http.MethodDelete, "/api/appointments/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, created.ID)

	resp, _ = ts.do(t, http.MethodGet, "/api/appointments/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/api/appointments/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAppointments_Validation(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.login(t)

	resp, body := ts.do(t, http.MethodPost, "/api/appointments", `{"leadName":"","phone":"1","date":"2024-05-01T10:00:00Z","model":"X"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "leadName")

	resp, _ = ts.do(t, http.MethodPost, "/api/appointments", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/api/appointments?date=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAppointments_QueryByDate(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.login(t)

	for _, d := range []string{"2024-05-01T14:00:00Z", "2024-05-01T09:00:00Z", "2024-05-02T09:00:00Z"} {
		resp, body := ts.do(t, http.MethodPost, "/api/appointments",
			`{"leadName":"Ana","phone":"111","date":"`+d+`","model":"X"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	}

	resp, body := ts.do(t, http.MethodGet, "/api/appointments?date=2024-05-01", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []appointment.Appointment
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Len(t, got, 2)
	assert.Equal(t, 9, got[0].Date.Hour())
	assert.Equal(t, 14, got[1].Date.Hour())
}

func TestAppointments_ExportICS(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.login(t)

	resp, _ := ts.do(t, http.MethodPost, "/api/appointments",
		`{"leadName":"Ana","phone":"111","date":"2024-05-01T10:00:00Z","model":"X"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := ts.do(t, http.MethodGet, "/api/appointments.ics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/calendar")
	assert.Contains(t, body, "BEGIN:VEVENT")
	assert.Contains(t, body, "SUMMARY:Test Drive: X - Ana")
}

func TestCalendar_ConfigureConnectAndCallback(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.login(t)

	resp, body := ts.do(t, http.MethodGet, "/api/calendar", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"state":"unconfigured","connected":false}`, body)

	resp, _ = ts.do(t, http.MethodPut, "/api/calendar/client-id", `{"client_id":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = ts.do(t, http.MethodPut, "/api/calendar/client-id", `{"client_id":"app.apps.googleusercontent.com"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"state":"configured","connected":false,"client_id":"app.apps.googleusercontent.com"}`, body)

	resp, body = ts.do(t, http.MethodPost, "/api/calendar/connect", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Contains(t, body, `"state":"authorizing"`)

	ts.mu.Lock()
	require.Len(t, ts.opened, 1)
	assert.Contains(t, ts.opened[0], "client_id=app.apps.googleusercontent.com")
	ts.mu.Unlock()

	resp, _ = ts.do(t, http.MethodGet, "/oauth/callback?state=forged&code=x", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAlerts_DrainsInbox(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.login(t)

	resp, body := ts.do(t, http.MethodGet, "/api/alerts", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, body)

	ts.deps.Inbox.Notify(notify.Event{Type: "auth.expired", Level: notify.LevelWarning, Message: "reconnect", Blocking: true})

	resp, body = ts.do(t, http.MethodGet, "/api/alerts", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"type":"auth.expired"`)
	assert.Contains(t, body, `"blocking":true`)

	_, body = ts.do(t, http.MethodGet, "/api/alerts", "")
	assert.JSONEq(t, `[]`, body)
}

func TestSyncTasks_ListAndGet(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.login(t)

	tk := ts.deps.Tasks.Go(task.KindCreate, "appt-1", func(context.Context, *task.Task) error {
		return task.Skip("calendar not connected")
	})
	<-tk.Done()

	resp, body := ts.do(t, http.MethodGet, "/api/sync/tasks?appointment_id=appt-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, tk.ID)
	assert.Contains(t, body, `"status":"skipped"`)

	resp, body = ts.do(t, http.MethodGet, "/api/sync/tasks/"+tk.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"note":"calendar not connected"`)

	resp, _ = ts.do(t, http.MethodGet, "/api/sync/tasks/sync-missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/api/sync/tasks?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
