package handlers

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
)

func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	// Extract the file path after /static/
	filePath := strings.TrimPrefix(r.URL.Path, "/static/")
	filePath = strings.TrimPrefix(filePath, "/")
	if filePath == "" {
		filePath = "index.html"
	}

	// Check if image URL parameters are provided
	image1 := r.URL.Query().Get("image1")
	image2 := r.URL.Query().Get("image2")
	if image1 != "" || image2 != "" {
		sessionID, err := h.createSessionFromURLs(r, image1, image2)
		if err != nil {
			slog.Error("Failed to create session from URL", "image1", image1, "image2", image2, "error", err)
			http.Error(w, "Failed to process image URL: "+err.Error(), http.StatusBadRequest)
			return
		}

		// Redirect to the homepage
		http.Redirect(w, r, "/?session="+sessionID, http.StatusFound)
		return
	}

	// Prevent directory traversal attacks
	if strings.Contains(filePath, "..") {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	// Set appropriate content type based on file extension
	switch {
	case strings.HasSuffix(filePath, ".css"):
		w.Header().Set("Content-Type", "text/css")
	case strings.HasSuffix(filePath, ".js"):
		w.Header().Set("Content-Type", "application/javascript")
	case strings.HasSuffix(filePath, ".html"):
		w.Header().Set("Content-Type", "text/html")
	}

	http.ServeFile(w, r, filepath.Join(h.staticDir, filePath))
}

func (h *Handler) createSessionFromURLs(r *http.Request, urls ...string) (string, error) {
	session := h.createSession()
	for i, u := range urls {
		if u == "" {
			continue
		}
		img, err := h.fetcher.Fetch(r.Context(), u)
		if err != nil {
			h.sessionStore.Delete(session.ID())
			return "", err
		}
		if err := h.attachImage(session, i, img); err != nil {
			h.sessionStore.Delete(session.ID())
			return "", err
		}
	}

	slog.Info("Session created from URL", "session_id", session.ID())
	return session.ID(), nil
}
