package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ishmeetPD247/PD247-code-share/internal/models"
	"github.com/ishmeetPD247/PD247-code-share/internal/realtime"
)

// ListRoomsResponse is the directory snapshot: every room's code buffer and
// last update time, keyed by room ID. Image payloads are never included.
type ListRoomsResponse struct {
	Rooms map[string]models.RoomEntry `json:"rooms"`
	Count int                         `json:"count"`
}

// GetRoomResponse describes one room. Exists is false when nothing has ever
// been written under the ID; joining such an ID is still valid and shows an
// empty buffer, never a not-found error.
type GetRoomResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	LastUpdated int64  `json:"lastUpdated"`
	Exists      bool   `json:"exists"`
}

// PutCodeRequest is the full-buffer code write. The whole string replaces
// whatever is stored; there is no partial or merged write.
type PutCodeRequest struct {
	Code string `json:"code"`
}

// ListRooms handles the directory view's bulk read.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.store.ListRooms(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	h.JSON(w, http.StatusOK, ListRoomsResponse{Rooms: rooms, Count: len(rooms)})
}

// GetRoom handles fetching one room's code buffer.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if !validRoomID(roomID) {
		h.Error(w, http.StatusBadRequest, "invalid room ID")
		return
	}

	entry, err := h.store.GetRoom(r.Context(), roomID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	resp := GetRoomResponse{ID: roomID}
	if entry != nil {
		resp.Code = entry.Code
		resp.LastUpdated = entry.LastUpdated
		resp.Exists = true
	}
	h.JSON(w, http.StatusOK, resp)
}

// PutRoomCode handles a full-value code write, creating the room implicitly
// on first write.
func (h *Handler) PutRoomCode(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if !validRoomID(roomID) {
		h.Error(w, http.StatusBadRequest, "invalid room ID")
		return
	}

	var req PutCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	value, _ := json.Marshal(req.Code)
	if err := h.service.Apply(r.Context(), "rooms/"+roomID+"/code", value, false); err != nil {
		if errors.Is(err, realtime.ErrCodeTooLarge) {
			h.Error(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to store code")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
