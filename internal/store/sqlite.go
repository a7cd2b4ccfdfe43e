package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ishmeetPD247/PD247-code-share/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/codeshare.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/codeshare.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL DEFAULT '',
		last_updated INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		data TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		ts INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_images_room ON images(room_id);
	CREATE INDEX IF NOT EXISTS idx_rooms_last_updated ON rooms(last_updated);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetRoom retrieves a room's code and last update time.
func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (*models.RoomEntry, error) {
	entry := &models.RoomEntry{}
	err := s.db.QueryRowContext(ctx, `
		SELECT code, last_updated FROM rooms WHERE id = ?
	`, id).Scan(&entry.Code, &entry.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

// SetRoomCode replaces the whole code buffer for a room, creating the room
// row on first write.
func (s *SQLiteStore) SetRoomCode(ctx context.Context, id, code string, updatedAt int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, code, last_updated) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET code = excluded.code, last_updated = excluded.last_updated
	`, id, code, updatedAt)
	return err
}

// ListRooms returns every room keyed by ID.
func (s *SQLiteStore) ListRooms(ctx context.Context) (map[string]models.RoomEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code, last_updated FROM rooms`)
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
func (s *SQLiteStore) CountRooms(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&count)
	return count, err
}

// SumCodeBytes returns the total size of all code buffers.
func (s *SQLiteStore) SumCodeBytes(ctx context.Context) (int64, error) {
	var sum sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT SUM(LENGTH(code)) FROM rooms`).Scan(&sum)
	if err != nil {
		return 0, err
	}
	return sum.Int64, nil
}

// LastActivity returns the most recent code write time across all rooms,
// or 0 when no room has ever been written.
func (s *SQLiteStore) LastActivity(ctx context.Context) (int64, error) {
	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(last_updated) FROM rooms`).Scan(&last)
	if err != nil {
		return 0, err
	}
	return last.Int64, nil
}

// AddImage stores an image record, creating the room row if this is the
// first write under the room ID.
func (s *SQLiteStore) AddImage(ctx context.Context, roomID, imageID string, img models.Image) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rooms (id) VALUES (?) ON CONFLICT(id) DO NOTHING
	`, roomID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO images (id, room_id, data, name, ts) VALUES (?, ?, ?, ?, ?)
	`, imageID, roomID, img.Data, img.Name, img.Timestamp); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteImage removes a single image record.
func (s *SQLiteStore) DeleteImage(ctx context.Context, roomID, imageID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM images WHERE id = ? AND room_id = ?
	`, imageID, roomID)
	return err
}

// ListImages returns a room's images keyed by image ID.
func (s *SQLiteStore) ListImages(ctx context.Context, roomID string) (map[string]models.Image, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data, name, ts FROM images WHERE room_id = ?
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
func (s *SQLiteStore) CountImages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&count)
	return count, err
}
