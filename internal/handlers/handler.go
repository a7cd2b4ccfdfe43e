package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/ishmeetPD247/PD247-code-share/internal/realtime"
	"github.com/ishmeetPD247/PD247-code-share/internal/store"
)

// roomIDRegex bounds what can appear in a room path segment. Generated IDs
// are 7 base36 characters, but joins accept anything a user might type.
var roomIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,50}$`)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store   store.DataStore
	service *realtime.Service
	fanout  *realtime.RedisFanout // nil when single-instance
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(st store.DataStore, service *realtime.Service, fanout *realtime.RedisFanout) *Handler {
	return &Handler{store: st, service: service, fanout: fanout}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// validRoomID reports whether an ID is acceptable in a room path.
func validRoomID(id string) bool {
	return roomIDRegex.MatchString(id)
}

// sanitizeName trims and limits an advisory filename to 100 characters,
// removing control characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	// Remove control characters
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	// Limit to 100 characters
	if len(name) > 100 {
		name = name[:100]
	}

	return name
}
