// Package api serves the DriveFlow HTTP surface.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/btouchard/driveflow/internal/appointment"
	"github.com/btouchard/driveflow/internal/auth"
	"github.com/btouchard/driveflow/internal/notify"
	"github.com/btouchard/driveflow/internal/task"
)

// Deps holds what the HTTP handlers need.
type Deps struct {
	Appointments *appointment.Store
	Tokens       *auth.TokenManager
	Sessions     *auth.Sessions
	Tasks        *task.Manager
	Inbox        *notify.Inbox

	// Callback completes the consent flow. Optional.
	Callback http.HandlerFunc
	// MCP is mounted at /mcp when set.
	MCP http.Handler

	Version string
}

type handlers struct {
	*Deps
}

// NewRouter builds the chi router for every DriveFlow route.
func NewRouter(d *Deps) http.Handler {
	h := &handlers{d}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(SecurityHeaders)

	r.Get("/health", h.health)
	if d.Callback != nil {
		r.Get("/oauth/callback", d.Callback)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.currentSession)
		r.Post("/session", h.login)
		r.Delete("/session", h.logout)

		r.Group(func(r chi.Router) {
			r.Use(RequireSession(d.Sessions))

			r.Get("/appointments", h.listAppointments)
			r.Post("/appointments", h.addAppointment)
			r.Get("/appointments.ics", h.exportICS)
			r.Get("/appointments/{id}", h.getAppointment)
			r.Patch("/appointments/{id}", h.updateAppointment)
			r.Delete("/appointments/{id}", h.deleteAppointment)

			r.Get("/calendar", h.calendarStatus)
			r.Put("/calendar/client-id", h.setClientID)
			r.Post("/calendar/connect", h.connectCalendar)

			r.Get("/alerts", h.alerts)
			r.Get("/sync/tasks", h.listSyncTasks)
			r.Get("/sync/tasks/{id}", h.getSyncTask)
		})
	})

	if d.MCP != nil {
		r.Handle("/mcp", d.MCP)
	}

	return r
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.Version})
}
