package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ishmeetPD247/PD247-code-share/internal/metrics"
	"github.com/ishmeetPD247/PD247-code-share/internal/models"
	"github.com/ishmeetPD247/PD247-code-share/internal/store"
)

const (
	// MaxCodeBytes caps the shared text buffer per room.
	MaxCodeBytes = 1 << 20

	// MaxImageBytes caps the decoded image payload (5 MiB).
	MaxImageBytes = 5 * 1024 * 1024
)

var (
	ErrCodeTooLarge  = errors.New("code exceeds 1 MiB limit")
	ErrImageTooLarge = errors.New("image exceeds 5 MiB limit")
	ErrNotAnImage    = errors.New("data is not an image data URI")
)

var jsonNull = json.RawMessage("null")

// Service coordinates writes: it persists accepted mutations, pushes the
// resulting snapshots to local subscribers through the hub, and notifies
// other instances through the fanout bridge. Last write to be processed
// wins; there is no merging of concurrent edits.
type Service struct {
	store  store.DataStore
	hub    *Hub
	fanout *RedisFanout // nil when running single-instance
	logger zerolog.Logger
}

// NewService creates a sync service. fanout may be nil.
func NewService(st store.DataStore, hub *Hub, fanout *RedisFanout, logger zerolog.Logger) *Service {
	s := &Service{store: st, hub: hub, fanout: fanout, logger: logger}
	if fanout != nil {
		fanout.Listen(func(path string) {
			s.republish(context.Background(), path)
		})
	}
	return s
}

// Subscribe registers a client on a path and immediately pushes the current
// snapshot, mirroring the on-subscribe delivery the room loop depends on.
// Registration happens before the snapshot read so a concurrent write is
// seen either in the snapshot or as a later broadcast; duplicate full
// snapshots are harmless.
func (s *Service) Subscribe(ctx context.Context, c *Client, path string) error {
	if _, err := parsePath(path); err != nil {
		return err
	}

	s.hub.Register(c, path)

	snap, err := s.Snapshot(ctx, path)
	if err != nil {
		s.hub.Unregister(c, path)
		return fmt.Errorf("snapshot failed: %w", err)
	}

	payload, err := json.Marshal(models.Frame{Op: models.OpSnapshot, Path: path, Value: snap})
	if err != nil {
		return err
	}
	c.enqueue(payload)
	return nil
}

// Snapshot returns the current JSON value at a path, or JSON null when
// nothing has ever been written there.
func (s *Service) Snapshot(ctx context.Context, path string) (json.RawMessage, error) {
	ref, err := parsePath(path)
	if err != nil {
		return nil, err
	}

	switch ref.kind {
	case kindRooms:
		rooms, err := s.store.ListRooms(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(rooms)

	case kindRoomCode:
		entry, err := s.store.GetRoom(ctx, ref.roomID)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return jsonNull, nil
		}
		return json.Marshal(entry.Code)

	case kindRoomImages:
		images, err := s.store.ListImages(ctx, ref.roomID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(images)

	case kindRoomImage:
		images, err := s.store.ListImages(ctx, ref.roomID)
		if err != nil {
			return nil, err
		}
		img, ok := images[ref.imageID]
		if !ok {
			return jsonNull, nil
		}
		return json.Marshal(img)
	}
	return nil, errBadPath
}

// Apply validates and persists a put or delete at a path, then fans the new
// snapshot out. The whole value at the path is replaced; there are no
// partial-field writes.
func (s *Service) Apply(ctx context.Context, path string, value json.RawMessage, del bool) error {
	ref, err := parsePath(path)
	if err != nil {
		return err
	}

	switch ref.kind {
	case kindRoomCode:
		return s.applyCode(ctx, ref.roomID, value, del)
	case kindRoomImage:
		return s.applyImage(ctx, ref, value, del)
	default:
		return errors.New("path is not writable")
	}
}

func (s *Service) applyCode(ctx context.Context, roomID string, value json.RawMessage, del bool) error {
	var code string
	if !del && len(value) > 0 && !isJSONNull(value) {
		if err := json.Unmarshal(value, &code); err != nil {
			return errors.New("code value must be a string")
		}
	}
	if len(code) > MaxCodeBytes {
		return ErrCodeTooLarge
	}

	now := time.Now().UnixMilli()
	if err := s.store.SetRoomCode(ctx, roomID, code, now); err != nil {
		return fmt.Errorf("store write failed: %w", err)
	}
	metrics.WritesTotal.WithLabelValues("code").Inc()

	s.publishCode(ctx, roomID)
	s.notify(ctx, codePath(roomID))
	return nil
}

func (s *Service) applyImage(ctx context.Context, ref pathRef, value json.RawMessage, del bool) error {
	if del {
		if err := s.store.DeleteImage(ctx, ref.roomID, ref.imageID); err != nil {
			return fmt.Errorf("store delete failed: %w", err)
		}
		metrics.WritesTotal.WithLabelValues("image_delete").Inc()
	} else {
		var img models.Image
		if err := json.Unmarshal(value, &img); err != nil {
			return errors.New("image value must be an image record")
		}
		if err := ValidateImage(img); err != nil {
			return err
		}
		if img.Timestamp == 0 {
			img.Timestamp = time.Now().UnixMilli()
		}
		if err := s.store.AddImage(ctx, ref.roomID, ref.imageID, img); err != nil {
			return fmt.Errorf("store write failed: %w", err)
		}
		metrics.WritesTotal.WithLabelValues("image_add").Inc()
	}

	s.publishImages(ctx, ref.roomID)
	s.notify(ctx, imagesPath(ref.roomID))
	return nil
}

// ValidateImage checks that an image record carries an image-typed data URI
// within the size limit. Validation happens before any persistence.
func ValidateImage(img models.Image) error {
	if !strings.HasPrefix(img.Data, "data:image/") {
		return ErrNotAnImage
	}
	idx := strings.Index(img.Data, ";base64,")
	if idx < 0 {
		return ErrNotAnImage
	}
	if DataURIPayloadSize(img.Data[idx+len(";base64,"):]) > MaxImageBytes {
		return ErrImageTooLarge
	}
	return nil
}

// DataURIPayloadSize returns the decoded byte size of a base64 payload
// without decoding it, accounting for padding.
func DataURIPayloadSize(b64 string) int {
	n := len(b64) / 4 * 3
	if strings.HasSuffix(b64, "==") {
		n -= 2
	} else if strings.HasSuffix(b64, "=") {
		n--
	}
	return n
}

// publishCode pushes the room's new buffer to its subscribers and refreshes
// the directory snapshot for anyone watching the rooms root.
func (s *Service) publishCode(ctx context.Context, roomID string) {
	entry, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		s.logger.Error().Err(err).Str("room", roomID).Msg("code snapshot read failed")
		return
	}
	value := jsonNull
	if entry != nil {
		value, _ = json.Marshal(entry.Code)
	}
	s.push(codePath(roomID), value)
	s.publishRooms(ctx)
}

func (s *Service) publishImages(ctx context.Context, roomID string) {
	images, err := s.store.ListImages(ctx, roomID)
	if err != nil {
		s.logger.Error().Err(err).Str("room", roomID).Msg("images snapshot read failed")
		return
	}
	value, _ := json.Marshal(images)
	s.push(imagesPath(roomID), value)
}

func (s *Service) publishRooms(ctx context.Context) {
	// The directory rebuild touches every room; skip it when nobody is on
	// the directory page.
	if s.hub.Subscribers("rooms") == 0 {
		return
	}
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("directory snapshot read failed")
		return
	}
	value, _ := json.Marshal(rooms)
	s.push("rooms", value)
}

func (s *Service) push(path string, value json.RawMessage) {
	payload, err := json.Marshal(models.Frame{Op: models.OpSnapshot, Path: path, Value: value})
	if err != nil {
		return
	}
	s.hub.Publish(path, payload)
}

// notify tells other instances about an accepted write.
func (s *Service) notify(ctx context.Context, path string) {
	if s.fanout == nil {
		return
	}
	s.fanout.Notify(ctx, path)
}

// republish rebuilds local snapshots for a path mutated on another instance.
func (s *Service) republish(ctx context.Context, path string) {
	ref, err := parsePath(path)
	if err != nil {
		s.logger.Warn().Str("path", path).Msg("fanout event for unknown path")
		return
	}
	switch ref.kind {
	case kindRoomCode:
		s.publishCode(ctx, ref.roomID)
	case kindRoomImages, kindRoomImage:
		s.publishImages(ctx, ref.roomID)
	case kindRooms:
		s.publishRooms(ctx)
	}
}

func isJSONNull(v json.RawMessage) bool {
	return len(v) == 4 && string(v) == "null"
}
