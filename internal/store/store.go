package store

import (
	"context"

	"github.com/ishmeetPD247/PD247-code-share/internal/models"
)

// DataStore defines the interface for persistent storage of rooms and images.
// Both PostgresStore and SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Room operations. GetRoom returns nil when nothing has ever been
	// written under the ID: room existence is derived, never inserted
	// explicitly.
	GetRoom(ctx context.Context, id string) (*models.RoomEntry, error)
	SetRoomCode(ctx context.Context, id, code string, updatedAt int64) error
	ListRooms(ctx context.Context) (map[string]models.RoomEntry, error)
	CountRooms(ctx context.Context) (int64, error)
	SumCodeBytes(ctx context.Context) (int64, error)
	LastActivity(ctx context.Context) (int64, error)

	// Image operations
	AddImage(ctx context.Context, roomID, imageID string, img models.Image) error
	DeleteImage(ctx context.Context, roomID, imageID string) error
	ListImages(ctx context.Context, roomID string) (map[string]models.Image, error)
	CountImages(ctx context.Context) (int64, error)
}
