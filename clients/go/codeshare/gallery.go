package codeshare

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// MaxImageBytes is the upload size limit (5 MiB), enforced before any
// store interaction.
const MaxImageBytes = 5 * 1024 * 1024

var (
	ErrNotAnImage     = errors.New("file is not an image")
	ErrImageTooLarge  = errors.New("image exceeds 5 MiB limit")
	ErrImageNotFound  = errors.New("image not found")
	ErrBadImageRecord = errors.New("malformed image record")
)

// Image is one gallery entry as held locally.
type Image struct {
	ID        string
	Data      string // data URI
	Timestamp int64  // unix ms
	Name      string
}

// imageRecord is the stored wire shape, keyed externally by ID.
type imageRecord struct {
	Data      string `json:"data"`
	Timestamp int64  `json:"ts"`
	Name      string `json:"name"`
}

// Gallery mirrors the set of images attached to a room. Every snapshot
// replaces the whole local mapping; there is no incremental merge.
type Gallery struct {
	backend Backend
	roomID  string
	logger  zerolog.Logger

	mu       sync.Mutex
	images   map[string]imageRecord
	onChange func()
	cancel   func()
}

// OpenGallery subscribes to a room's image mapping.
func OpenGallery(backend Backend, roomID string, logger zerolog.Logger) (*Gallery, error) {
	g := &Gallery{
		backend: backend,
		roomID:  roomID,
		logger:  logger,
		images:  make(map[string]imageRecord),
	}

	cancel, err := backend.Subscribe(imagesPath(roomID), g.applySnapshot, g.subscriptionError)
	if err != nil {
		return nil, err
	}
	g.cancel = cancel
	return g, nil
}

func (g *Gallery) applySnapshot(value json.RawMessage) {
	images := make(map[string]imageRecord)
	if len(value) > 0 && string(value) != "null" {
		if err := json.Unmarshal(value, &images); err != nil {
			g.logger.Warn().Err(err).Str("room", g.roomID).Msg("bad images snapshot")
			return
		}
	}

	g.mu.Lock()
	g.images = images
	changeFn := g.onChange
	g.mu.Unlock()

	if changeFn != nil {
		changeFn()
	}
}

func (g *Gallery) subscriptionError(err error) {
	g.logger.Warn().Err(err).Str("room", g.roomID).Msg("gallery subscription error")
}

// Upload validates and stores a new image. The declared content type must
// be an image type and data must fit the size limit; violations are
// returned immediately with no store write attempted. The payload is
// encoded as a self-contained data URI and stored under a fresh ULID, so
// concurrent uploads from different clients never collide.
func (g *Gallery) Upload(name, contentType string, data []byte) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotAnImage
	}
	if len(data) > MaxImageBytes {
		return "", ErrImageTooLarge
	}

	record := imageRecord{
		Data:      "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
		Timestamp: time.Now().UnixMilli(),
		Name:      name,
	}

	id := ulid.Make().String()
	if err := g.backend.Write(imagePath(g.roomID, id), record); err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return id, nil
}

// UploadFile reads a file from disk and uploads it, sniffing the content
// type from the extension and, failing that, the leading bytes.
func (g *Gallery) UploadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return g.Upload(filepath.Base(path), contentType, data)
}

// Remove deletes exactly one image record.
func (g *Gallery) Remove(imageID string) error {
	return g.backend.Delete(imagePath(g.roomID, imageID))
}

// Images returns the gallery sorted newest first.
func (g *Gallery) Images() []Image {
	g.mu.Lock()
	defer g.mu.Unlock()

	images := make([]Image, 0, len(g.images))
	for id, rec := range g.images {
		images = append(images, Image{
			ID:        id,
			Data:      rec.Data,
			Timestamp: rec.Timestamp,
			Name:      rec.Name,
		})
	}
	sort.Slice(images, func(i, j int) bool {
		if images[i].Timestamp != images[j].Timestamp {
			return images[i].Timestamp > images[j].Timestamp
		}
		return images[i].ID > images[j].ID
	})
	return images
}

// DataURI returns the held representation of an image; no store traffic.
func (g *Gallery) DataURI(imageID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.images[imageID]
	if !ok {
		return "", ErrImageNotFound
	}
	return rec.Data, nil
}

// SaveTo decodes an image's payload and writes it to a local file.
func (g *Gallery) SaveTo(imageID, destPath string) error {
	uri, err := g.DataURI(imageID)
	if err != nil {
		return err
	}
	_, data, err := DecodeDataURI(uri)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0644)
}

// OnChange registers a callback fired after every applied snapshot.
func (g *Gallery) OnChange(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onChange = fn
}

// Close stops mirroring the gallery.
func (g *Gallery) Close() {
	if g.cancel != nil {
		g.cancel()
	}
}

// DecodeDataURI splits a base64 data URI into its content type and payload.
func DecodeDataURI(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, ErrBadImageRecord
	}
	rest := uri[len("data:"):]
	idx := strings.Index(rest, ";base64,")
	if idx < 0 {
		return "", nil, ErrBadImageRecord
	}
	contentType := rest[:idx]
	data, err := base64.StdEncoding.DecodeString(rest[idx+len(";base64,"):])
	if err != nil {
		return "", nil, ErrBadImageRecord
	}
	return contentType, data, nil
}
