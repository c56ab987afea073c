package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/spotdiff/internal/images"
	"github.com/lehigh-university-libraries/spotdiff/internal/models"
	"github.com/lehigh-university-libraries/spotdiff/internal/overlay"
	"github.com/lehigh-university-libraries/spotdiff/internal/storage"
	"github.com/lehigh-university-libraries/spotdiff/internal/utils"
)

// Comparer produces a comparison result for two images
type Comparer interface {
	Compare(ctx context.Context, first, second models.SourceImage) (*models.ComparisonResult, error)
}

type Handler struct {
	sessionStore *storage.SessionStore
	comparer     Comparer
	renderer     *overlay.Renderer
	fetcher      *images.Fetcher
	staticDir    string
}

func New(comparer Comparer, staticDir string) *Handler {
	return &Handler{
		sessionStore: storage.New(),
		comparer:     comparer,
		renderer:     overlay.NewRenderer(),
		fetcher:      images.NewFetcher(),
		staticDir:    staticDir,
	}
}

// Register adds the API and static routes to mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.HandleCreateSession)
	mux.HandleFunc("GET /api/sessions", h.HandleSessions)
	mux.HandleFunc("GET /api/sessions/{id}", h.HandleSessionDetail)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.HandleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/images/{index}", h.HandleUpload)
	mux.HandleFunc("GET /api/sessions/{id}/images/{index}", h.HandleImage)
	mux.HandleFunc("POST /api/sessions/{id}/compare", h.HandleCompare)
	mux.HandleFunc("GET /api/sessions/{id}/overlay/{index}", h.HandleOverlay)
	mux.HandleFunc("GET /", h.HandleStatic)
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "code", code)
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*models.Session, bool) {
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func (h *Handler) createSession() *models.Session {
	session := models.NewSession(uuid.NewString())
	h.sessionStore.Set(session)
	slog.Info("Session created", "session_id", session.ID())
	return session
}

// parseIndex converts the 1-based {index} path value to a slot
func (h *Handler) parseIndexOrError(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || n < 1 || n > 2 {
		h.writeError(w, "Invalid image index. Must be 1 or 2", http.StatusBadRequest)
		return 0, false
	}
	return n - 1, true
}

// attachImage stores img in the session slot and assigns its display URL
func (h *Handler) attachImage(session *models.Session, index int, img *models.SourceImage) error {
	img.URL = fmt.Sprintf("/api/sessions/%s/images/%d?v=%s", session.ID(), index+1, utils.CalculateDataMD5(img.Data)[:8])
	if err := session.SetImage(index, img); err != nil {
		return err
	}
	slog.Info("Image selected", "session_id", session.ID(), "index", index+1, "name", img.Name, "type", img.MIMEType, "size", len(img.Data))
	return nil
}
