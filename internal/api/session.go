package api

import (
	"net/http"
)

type loginRequest struct {
	Email string `json:"email"`
}

func (h *handlers) currentSession(w http.ResponseWriter, _ *http.Request) {
	op, ok := h.Sessions.Current()
	if !ok {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	writeJSON(w, http.StatusOK, op)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	op, err := h.Sessions.Login(req.Email)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

func (h *handlers) logout(w http.ResponseWriter, _ *http.Request) {
	if err := h.Sessions.Logout(); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
