package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/ishmeetPD247/PD247-code-share/internal/models"
	"github.com/ishmeetPD247/PD247-code-share/internal/realtime"
)

// ListImagesResponse is a room's gallery keyed by image ID. Presentation
// order (newest first) is the client's concern; the mapping itself is
// unordered.
type ListImagesResponse struct {
	Images map[string]models.Image `json:"images"`
	Count  int                     `json:"count"`
}

// UploadImageRequest carries a client-encoded data URI plus the advisory
// original filename.
type UploadImageRequest struct {
	Data string `json:"data"`
	Name string `json:"name"`
	TS   int64  `json:"ts,omitempty"` // client clock, unix ms; defaulted server-side
}

// UploadImageResponse returns the store-generated key for the new record.
type UploadImageResponse struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// ListImages handles fetching a room's gallery.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if !validRoomID(roomID) {
		h.Error(w, http.StatusBadRequest, "invalid room ID")
		return
	}

	images, err := h.store.ListImages(r.Context(), roomID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	h.JSON(w, http.StatusOK, ListImagesResponse{Images: images, Count: len(images)})
}

// UploadImage handles adding an image to a room's gallery. Each upload gets
// an independently generated key, so concurrent uploads never collide.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if !validRoomID(roomID) {
		h.Error(w, http.StatusBadRequest, "invalid room ID")
		return
	}

	var req UploadImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	img := models.Image{
		Data:      req.Data,
		Name:      sanitizeName(req.Name),
		Timestamp: req.TS,
	}
	if img.Timestamp == 0 {
		img.Timestamp = time.Now().UnixMilli()
	}

	// Validate before generating a key or touching the store.
	if err := realtime.ValidateImage(img); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, realtime.ErrImageTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.Error(w, status, err.Error())
		return
	}

	imageID := ulid.Make().String()
	value, _ := json.Marshal(img)
	if err := h.service.Apply(r.Context(), "rooms/"+roomID+"/images/"+imageID, value, false); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	h.JSON(w, http.StatusCreated, UploadImageResponse{ID: imageID, Timestamp: img.Timestamp})
}

// DeleteImage handles removing exactly one image record.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	imageID := chi.URLParam(r, "imageID")
	if !validRoomID(roomID) || imageID == "" {
		h.Error(w, http.StatusBadRequest, "invalid room or image ID")
		return
	}

	if err := h.service.Apply(r.Context(), "rooms/"+roomID+"/images/"+imageID, nil, true); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to delete image")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
