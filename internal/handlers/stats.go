package handlers

import (
	"net/http"
	"strconv"
	"time"
)

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	TotalRooms    int64  `json:"total_rooms"`
	TotalImages   int64  `json:"total_images"`
	TotalCodeSize int64  `json:"total_code_bytes"`
	LastActivity  string `json:"last_activity"`
}

// Stats returns platform statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalRooms, err := h.store.CountRooms(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count rooms")
		return
	}

	totalImages, err := h.store.CountImages(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count images")
		return
	}

	totalCode, err := h.store.SumCodeBytes(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to sum code sizes")
		return
	}

	lastActivity := "no activity yet"
	if last, err := h.store.LastActivity(ctx); err == nil && last > 0 {
		lastActivity = formatTimeAgo(time.UnixMilli(last))
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		TotalRooms:    totalRooms,
		TotalImages:   totalImages,
		TotalCodeSize: totalCode,
		LastActivity:  lastActivity,
	})
}

// formatTimeAgo formats a time as a human-readable "X ago" string, using
// the same bucketing as the directory view.
func formatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return strconv.Itoa(int(diff.Minutes())) + "m ago"
	case diff < 24*time.Hour:
		return strconv.Itoa(int(diff.Hours())) + "h ago"
	default:
		return strconv.Itoa(int(diff.Hours()/24)) + "d ago"
	}
}
