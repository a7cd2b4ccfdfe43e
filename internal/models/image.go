package models

// Image is one shared gallery entry, keyed by a store-generated ULID under
// its room. Data is a self-contained data URI; records are immutable after
// creation.
type Image struct {
	Data      string `json:"data"`
	Timestamp int64  `json:"ts"` // unix ms, client clock
	Name      string `json:"name"`
}
