package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/btouchard/driveflow/internal/appointment"
	"github.com/btouchard/driveflow/internal/ical"
)

// GET /api/appointments[?date=YYYY-MM-DD]
func (h *handlers) listAppointments(w http.ResponseWriter, r *http.Request) {
	list := h.Appointments.List()

	if day := r.URL.Query().Get("date"); day != "" {
		d, err := appointment.ParseDay(day, h.Appointments.Location())
		if err != nil {
			writeErr(w, err)
			return
		}
		list = h.Appointments.QueryByDate(d)
	}

	if list == nil {
		list = []appointment.Appointment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handlers) addAppointment(w http.ResponseWriter, r *http.Request) {
	var d appointment.Draft
	if err := decode(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	a, err := h.Appointments.Add(d)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	a, ok := h.Appointments.Get(chi.URLParam(r, "id"))
	if !ok {
		writeErr(w, appointment.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// PATCH /api/appointments/{id}. The store ignores unknown ids; the HTTP
// surface reports them as 404.
func (h *handlers) updateAppointment(w http.ResponseWriter, r *http.Request) {
	var p appointment.Patch
	if err := decode(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	a, ok, err := h.Appointments.Update(chi.URLParam(r, "id"), p)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !ok {
		writeErr(w, appointment.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handlers) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	removed, ok, err := h.Appointments.Delete(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if !ok {
		writeErr(w, appointment.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, removed)
}

func (h *handlers) exportICS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="driveflow.ics"`)
	if err := ical.Encode(w, h.Appointments.List()); err != nil {
		writeErr(w, err)
	}
}
