package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/spotdiff/internal/comparison"
	"github.com/lehigh-university-libraries/spotdiff/internal/models"
	"github.com/lehigh-university-libraries/spotdiff/internal/overlay"
)

// HandleCompare runs one comparison for the session. A second trigger while
// one is outstanding is rejected with 409.
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}

	first, second, err := session.BeginRequest()
	if err != nil {
		h.writeError(w, err.Error(), http.StatusConflict)
		return
	}

	slog.Info("Comparing images", "session_id", session.ID(), "first", first.Name, "second", second.Name)

	// Comparisons cannot be cancelled once submitted, even if the client goes away
	result, err := h.comparer.Compare(context.WithoutCancel(r.Context()), first, second)
	if err != nil {
		message := comparison.UserMessage(err)
		if ferr := session.Fail(message); ferr != nil {
			slog.Error("Unable to record failure", "session_id", session.ID(), "err", ferr)
		}
		h.writeError(w, message, compareStatus(err))
		return
	}

	if err := session.Complete(result); err != nil {
		slog.Error("Unable to record result", "session_id", session.ID(), "err", err)
	}
	h.writeJSON(w, session.View())
}

func compareStatus(err error) int {
	var missing *comparison.MissingInputError
	var overloaded *comparison.ServiceOverloadedError
	switch {
	case errors.As(err, &missing):
		return http.StatusBadRequest
	case errors.As(err, &overloaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// HandleOverlay renders the session image at {index} with the markers of the
// current result as PNG. Without a result only the image is drawn.
func (h *Handler) HandleOverlay(w http.ResponseWriter, r *http.Request) {
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

	var diffs []models.Difference
	if result := session.Result(); result != nil {
		diffs = result.Differences
	}

	surface := overlay.NewSurface()
	if err := h.renderer.Render(r.Context(), surface, overlay.FromBytes(img.Data), diffs, index); err != nil {
		h.writeError(w, "Failed to render overlay: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := surface.EncodePNG(w); err != nil {
		slog.Error("Unable to write overlay", "session_id", session.ID(), "err", err)
	}
}
