package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ishmeetPD247/PD247-code-share/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL DEFAULT '',
		last_updated BIGINT NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		data TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		ts BIGINT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_images_room ON images(room_id);
	CREATE INDEX IF NOT EXISTS idx_rooms_last_updated ON rooms(last_updated);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetRoom retrieves a room's code and last update time.
func (s *PostgresStore) GetRoom(ctx context.Context, id string) (*models.RoomEntry, error) {
	entry := &models.RoomEntry{}
	err := s.pool.QueryRow(ctx, `
		SELECT code, last_updated FROM rooms WHERE id = $1
	`, id).Scan(&entry.Code, &entry.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

// SetRoomCode replaces the whole code buffer for a room, creating the room
// row on first write.
func (s *PostgresStore) SetRoomCode(ctx context.Context, id, code string, updatedAt int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rooms (id, code, last_updated) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, last_updated = EXCLUDED.last_updated
	`, id, code, updatedAt)
	return err
}

// ListRooms returns every room keyed by ID.
func (s *PostgresStore) ListRooms(ctx context.Context) (map[string]models.RoomEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, code, last_updated FROM rooms`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make(map[string]models.RoomEntry)
	for rows.Next() {
		var id string
		var entry models.RoomEntry
		if err := rows.Scan(&id, &entry.Code, &entry.LastUpdated); err != nil {
			return nil, err
		}
		rooms[id] = entry
	}
	return rooms, rows.Err()
}

// CountRooms returns the total number of rooms.
func (s *PostgresStore) CountRooms(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&count)
	return count, err
}

// SumCodeBytes returns the total size of all code buffers.
func (s *PostgresStore) SumCodeBytes(ctx context.Context) (int64, error) {
	var sum *int64
	err := s.pool.QueryRow(ctx, `SELECT SUM(LENGTH(code)) FROM rooms`).Scan(&sum)
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

// LastActivity returns the most recent code write time across all rooms,
// or 0 when no room has ever been written.
func (s *PostgresStore) LastActivity(ctx context.Context) (int64, error) {
	var last *int64
	err := s.pool.QueryRow(ctx, `SELECT MAX(last_updated) FROM rooms`).Scan(&last)
	if err != nil {
		return 0, err
	}
	if last == nil {
		return 0, nil
	}
	return *last, nil
}

// AddImage stores an image record, creating the room row if this is the
// first write under the room ID.
func (s *PostgresStore) AddImage(ctx context.Context, roomID, imageID string, img models.Image) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO rooms (id) VALUES ($1) ON CONFLICT (id) DO NOTHING
	`, roomID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO images (id, room_id, data, name, ts) VALUES ($1, $2, $3, $4, $5)
	`, imageID, roomID, img.Data, img.Name, img.Timestamp); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DeleteImage removes a single image record.
func (s *PostgresStore) DeleteImage(ctx context.Context, roomID, imageID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM images WHERE id = $1 AND room_id = $2
	`, imageID, roomID)
	return err
}

// ListImages returns a room's images keyed by image ID.
func (s *PostgresStore) ListImages(ctx context.Context, roomID string) (map[string]models.Image, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, data, name, ts FROM images WHERE room_id = $1
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := make(map[string]models.Image)
	for rows.Next() {
		var id string
		var img models.Image
		if err := rows.Scan(&id, &img.Data, &img.Name, &img.Timestamp); err != nil {
			return nil, err
		}
		images[id] = img
	}
	return images, rows.Err()
}

// CountImages returns the total number of images across all rooms.
func (s *PostgresStore) CountImages(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM images`).Scan(&count)
	return count, err
}
