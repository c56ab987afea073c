package handlers

import (
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/spotdiff/internal/models"
)

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.createSession()
	w.Header().Set("Location", "/api/sessions/"+session.ID())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, session.View())
}

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.List()
	sessionList := make([]models.SessionView, 0, len(sessions))
	for _, session := range sessions {
		sessionList = append(sessionList, session.View())
	}
	h.writeJSON(w, sessionList)
}

func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}
	h.writeJSON(w, session.View())
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}
	if session.State() == models.StateRequesting {
		h.writeError(w, models.ErrRequestInFlight.Error(), http.StatusConflict)
		return
	}
	h.sessionStore.Delete(session.ID())
	slog.Info("Session deleted", "session_id", session.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}
	index, ok := h.parseIndexOrError(w, r)
	if !ok {
		return
	}

	img := session.Image(index)
	if img.Empty() {
		h.writeError(w, "Image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(img.Data); err != nil {
		slog.Error("Unable to write image", "session_id", session.ID(), "err", err)
	}
}
