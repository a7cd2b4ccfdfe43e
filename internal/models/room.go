package models

// RoomEntry is the stored state of one room: the shared code buffer and its
// last write time, without image payloads. Rooms spring into existence on
// first write; there is no explicit creation step, so a missing entry just
// means an empty room.
type RoomEntry struct {
	Code        string `json:"code"`
	LastUpdated int64  `json:"lastUpdated"` // unix ms of last code write, server clock
}
