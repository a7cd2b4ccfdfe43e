package codeshare

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// previewMaxLen caps the single-line code preview shown per room.
const previewMaxLen = 60

// RoomSummary is the derived, display-ready view of one room.
type RoomSummary struct {
	ID          string
	Code        string
	CodeLength  int
	LineCount   int
	LastUpdated time.Time
}

// Preview returns the room's truncated first-line preview.
func (r RoomSummary) Preview() string {
	return CodePreview(r.Code)
}

// Directory presents a browsable list of all rooms, rebuilt from scratch
// on every snapshot of the rooms root. It performs no writes.
type Directory struct {
	backend Backend
	logger  zerolog.Logger

	mu       sync.Mutex
	rooms    []RoomSummary
	loaded   bool
	onChange func()
	cancel   func()
}

// directoryEntry is the wire shape of one room in the root snapshot.
type directoryEntry struct {
	Code        string `json:"code"`
	LastUpdated int64  `json:"lastUpdated"`
}

// OpenDirectory subscribes to the root collection of all rooms.
func OpenDirectory(backend Backend, logger zerolog.Logger) (*Directory, error) {
	d := &Directory{backend: backend, logger: logger}

	cancel, err := backend.Subscribe("rooms", d.applySnapshot, d.subscriptionError)
	if err != nil {
		return nil, err
	}
	d.cancel = cancel
	return d, nil
}

func (d *Directory) applySnapshot(value json.RawMessage) {
	entries := make(map[string]directoryEntry)
	if len(value) > 0 && string(value) != "null" {
		if err := json.Unmarshal(value, &entries); err != nil {
			d.logger.Warn().Err(err).Msg("bad directory snapshot")
			return
		}
	}

	now := time.Now()
	rooms := make([]RoomSummary, 0, len(entries))
	for id, entry := range entries {
		lastUpdated := now
		if entry.LastUpdated > 0 {
			lastUpdated = time.UnixMilli(entry.LastUpdated)
		}
		rooms = append(rooms, RoomSummary{
			ID:          id,
			Code:        entry.Code,
			CodeLength:  len(entry.Code),
			LineCount:   len(strings.Split(entry.Code, "\n")),
			LastUpdated: lastUpdated,
		})
	}
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].LastUpdated.Equal(rooms[j].LastUpdated) {
			return rooms[i].LastUpdated.After(rooms[j].LastUpdated)
		}
		return rooms[i].ID < rooms[j].ID
	})

	d.mu.Lock()
	d.rooms = rooms
	d.loaded = true
	changeFn := d.onChange
	d.mu.Unlock()

	if changeFn != nil {
		changeFn()
	}
}

func (d *Directory) subscriptionError(err error) {
	d.logger.Warn().Err(err).Msg("directory subscription error")
}

// Rooms returns the current summaries, most recently updated first.
func (d *Directory) Rooms() []RoomSummary {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]RoomSummary, len(d.rooms))
	copy(out, d.rooms)
	return out
}

// Loaded reports whether at least one snapshot has been applied.
func (d *Directory) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

// Filter returns rooms whose ID contains the query, case-insensitively.
// Code content is never searched.
func (d *Directory) Filter(query string) []RoomSummary {
	query = strings.ToLower(query)
	var out []RoomSummary
	for _, room := range d.Rooms() {
		if strings.Contains(strings.ToLower(room.ID), query) {
			out = append(out, room)
		}
	}
	return out
}

// OnChange registers a callback fired after every applied snapshot.
func (d *Directory) OnChange(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = fn
}

// Close stops watching the directory.
func (d *Directory) Close() {
	if d.cancel != nil {
		d.cancel()
	}
}

// CodePreview derives the single-line preview for a code buffer: the first
// line, capped at 60 characters with an ellipsis, or "Empty room" for an
// empty buffer.
func CodePreview(code string) string {
	if code == "" {
		return "Empty room"
	}
	firstLine := code
	if idx := strings.IndexByte(code, '\n'); idx >= 0 {
		firstLine = code[:idx]
	}
	if len(firstLine) > previewMaxLen {
		return firstLine[:previewMaxLen] + "..."
	}
	return firstLine
}

// TimeAgo renders the directory's relative age label: "Just now" under a
// minute, then whole minutes, hours, and days.
func TimeAgo(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return strconv.Itoa(int(diff.Minutes())) + "m ago"
	case diff < 24*time.Hour:
		return strconv.Itoa(int(diff.Hours())) + "h ago"
	default:
		return strconv.Itoa(int(diff.Hours()/24)) + "d ago"
	}
}
