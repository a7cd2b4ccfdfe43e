package codeshare

import (
	"context"
	"crypto/rand"
	"errors"
)

const roomIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// roomIDLength matches the short shareable tokens the app has always used.
const roomIDLength = 7

// ErrNoFreeRoomID is returned when repeated candidates all collide, which
// with a 36^7 keyspace means something else is wrong.
var ErrNoFreeRoomID = errors.New("could not find a free room ID")

// NewRoomID generates a short random room token. Generation is entirely
// client-side; use CreateRoom for a collision-checked ID.
func NewRoomID() string {
	buf := make([]byte, roomIDLength)
	rand.Read(buf)
	for i, b := range buf {
		buf[i] = roomIDAlphabet[int(b)%len(roomIDAlphabet)]
	}
	return string(buf)
}

// CreateRoom generates a room ID that is not already in use. Without the
// check, a colliding ID would silently join a stranger's room instead of
// creating a new one. The room itself is still created implicitly by the
// first write.
func (c *Client) CreateRoom(ctx context.Context) (string, error) {
	for attempts := 0; attempts < 5; attempts++ {
		id := NewRoomID()
		exists, err := c.RoomExists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", ErrNoFreeRoomID
}
