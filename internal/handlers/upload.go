package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/spotdiff/internal/images"
	"github.com/lehigh-university-libraries/spotdiff/internal/models"
)

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}
	index, ok := h.parseIndexOrError(w, r)
	if !ok {
		return
	}

	// Check if this is a JSON request with image URL
	var (
		img *models.SourceImage
		err error
	)
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		img, err = h.readURLUpload(r)
	} else {
		img, err = h.readFileUpload(r)
	}
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.attachImage(session, index, img); err != nil {
		if errors.Is(err, models.ErrRequestInFlight) {
			h.writeError(w, err.Error(), http.StatusConflict)
			return
		}
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, session.View())
}

func (h *Handler) readURLUpload(r *http.Request) (*models.SourceImage, error) {
	var request struct {
		ImageURL string `json:"image_url"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, errors.New("Invalid JSON: " + err.Error())
	}

	if request.ImageURL == "" {
		return nil, errors.New("image_url is required")
	}

	img, err := h.fetcher.Fetch(r.Context(), request.ImageURL)
	if err != nil {
		return nil, errors.New("Failed to process image URL: " + err.Error())
	}
	return img, nil
}

func (h *Handler) readFileUpload(r *http.Request) (*models.SourceImage, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("files")
		if err != nil {
			return nil, errors.New("Failed to read file: " + err.Error())
		}
	}
	defer file.Close()

	// Read one byte past the limit so oversized files can be rejected
	fileData, err := io.ReadAll(io.LimitReader(file, images.MaxImageSize+1))
	if err != nil {
		return nil, errors.New("Failed to read file contents: " + err.Error())
	}

	return images.New(header.Filename, fileData, header.Header.Get("Content-Type"))
}
