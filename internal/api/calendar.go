package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/btouchard/driveflow/internal/notify"
	"github.com/btouchard/driveflow/internal/task"
)

type calendarStatus struct {
	State     string `json:"state"`
	Connected bool   `json:"connected"`
	ClientID  string `json:"client_id,omitempty"`
}

func (h *handlers) status() calendarStatus {
	return calendarStatus{
		State:     h.Tokens.State().Name(),
		Connected: h.Tokens.IsConnected(),
		ClientID:  h.Tokens.ClientID(),
	}
}

func (h *handlers) calendarStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.status())
}

type clientIDRequest struct {
	ClientID string `json:"client_id"`
}

func (h *handlers) setClientID(w http.ResponseWriter, r *http.Request) {
	var req clientIDRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if err := h.Tokens.SetClientID(req.ClientID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.status())
}

// POST /api/calendar/connect starts consent and returns at once.
func (h *handlers) connectCalendar(w http.ResponseWriter, _ *http.Request) {
	if err := h.Tokens.Connect(); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, h.status())
}

func (h *handlers) alerts(w http.ResponseWriter, _ *http.Request) {
	alerts := h.Inbox.Drain()
	if alerts == nil {
		alerts = []notify.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// GET /api/sync/tasks[?status=&appointment_id=&limit=]
func (h *handlers) listSyncTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := task.Filter{
		Status:  q.Get("status"),
		Subject: q.Get("appointment_id"),
		Limit:   50,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	tasks := h.Tasks.List(filter)
	if tasks == nil {
		tasks = []task.Snapshot{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *handlers) getSyncTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tasks.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, t.Snapshot())
}
