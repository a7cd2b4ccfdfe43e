package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ishmeetPD247/PD247-code-share/internal/models"
	"github.com/ishmeetPD247/PD247-code-share/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(st.Close)

	return NewService(st, newTestHub(t), nil, zerolog.Nop())
}

func recvFrame(t *testing.T, c *Client) models.Frame {
	t.Helper()
	var f models.Frame
	if err := json.Unmarshal(recvPayload(t, c), &f); err != nil {
		t.Fatalf("bad frame: %v", err)
	}
	return f
}

func TestSubscribePushesNullForFreshRoom(t *testing.T) {
	svc := newTestService(t)
	c := newTestClient()

	if err := svc.Subscribe(context.Background(), c, "rooms/abc1234/code"); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	f := recvFrame(t, c)
	if f.Op != models.OpSnapshot || f.Path != "rooms/abc1234/code" {
		t.Fatalf("unexpected frame: %+v", f)
	}
	if string(f.Value) != "null" {
		t.Errorf("fresh room snapshot = %s, want null", f.Value)
	}
}

func TestSubscribeRejectsUnknownPath(t *testing.T) {
	svc := newTestService(t)
	c := newTestClient()

	if err := svc.Subscribe(context.Background(), c, "agents/abc"); err == nil {
		t.Fatal("expected error for unknown path")
	}
}

func TestApplyCodePersistsAndBroadcasts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	writer := newTestClient()
	watcher := newTestClient()
	for _, c := range []*Client{writer, watcher} {
		if err := svc.Subscribe(ctx, c, "rooms/abc1234/code"); err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
		recvFrame(t, c) // initial null
	}

	before := time.Now().UnixMilli()
	if err := svc.Apply(ctx, "rooms/abc1234/code", json.RawMessage(`"hello"`), false); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	// Both the writer and the watcher get the echo.
	for _, c := range []*Client{writer, watcher} {
		f := recvFrame(t, c)
		if string(f.Value) != `"hello"` {
			t.Errorf("snapshot = %s, want \"hello\"", f.Value)
		}
	}

	// lastUpdated is stamped by the server, not the writer.
	snap, err := svc.Snapshot(ctx, "rooms")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	var rooms map[string]models.RoomEntry
	if err := json.Unmarshal(snap, &rooms); err != nil {
		t.Fatalf("bad directory snapshot: %v", err)
	}
	entry, ok := rooms["abc1234"]
	if !ok {
		t.Fatal("room missing from directory")
	}
	if entry.LastUpdated < before || entry.LastUpdated > time.Now().UnixMilli() {
		t.Errorf("lastUpdated = %d, want server-side now", entry.LastUpdated)
	}
}

func TestApplyCodeRefreshesDirectorySubscribers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	dir := newTestClient()
	if err := svc.Subscribe(ctx, dir, "rooms"); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if f := recvFrame(t, dir); string(f.Value) != "{}" {
		t.Fatalf("empty directory snapshot = %s", f.Value)
	}

	if err := svc.Apply(ctx, "rooms/abc1234/code", json.RawMessage(`"x"`), false); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	f := recvFrame(t, dir)
	if f.Path != "rooms" || !strings.Contains(string(f.Value), "abc1234") {
		t.Errorf("directory not refreshed: %+v", f)
	}
}

func TestApplyCodeRejectsOversizeBuffer(t *testing.T) {
	svc := newTestService(t)

	big, _ := json.Marshal(strings.Repeat("a", MaxCodeBytes+1))
	err := svc.Apply(context.Background(), "rooms/abc1234/code", big, false)
	if !errors.Is(err, ErrCodeTooLarge) {
		t.Fatalf("expected ErrCodeTooLarge, got %v", err)
	}

	snap, _ := svc.Snapshot(context.Background(), "rooms/abc1234/code")
	if string(snap) != "null" {
		t.Error("rejected write reached the store")
	}
}

func TestApplyCodeRejectsNonString(t *testing.T) {
	svc := newTestService(t)

	err := svc.Apply(context.Background(), "rooms/abc1234/code", json.RawMessage(`{"a":1}`), false)
	if err == nil {
		t.Fatal("expected error for non-string code value")
	}
}

func TestApplyRejectsNonWritablePaths(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, path := range []string{"rooms", "rooms/abc1234/images"} {
		if err := svc.Apply(ctx, path, json.RawMessage(`"x"`), false); err == nil {
			t.Errorf("put to %q accepted", path)
		}
	}
}

func TestApplyImageAddAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	watcher := newTestClient()
	if err := svc.Subscribe(ctx, watcher, "rooms/abc1234/images"); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	recvFrame(t, watcher) // initial {}

	img, _ := json.Marshal(models.Image{Data: "data:image/png;base64,AAAA", Timestamp: 42, Name: "a.png"})
	if err := svc.Apply(ctx, "rooms/abc1234/images/01H", img, false); err != nil {
		t.Fatalf("image put failed: %v", err)
	}
	f := recvFrame(t, watcher)
	if !strings.Contains(string(f.Value), "01H") {
		t.Errorf("images snapshot missing new image: %s", f.Value)
	}

	if err := svc.Apply(ctx, "rooms/abc1234/images/01H", nil, true); err != nil {
		t.Fatalf("image delete failed: %v", err)
	}
	f = recvFrame(t, watcher)
	if string(f.Value) != "{}" {
		t.Errorf("images snapshot after delete = %s, want {}", f.Value)
	}
}

func TestValidateImage(t *testing.T) {
	atLimit := base64.StdEncoding.EncodeToString(make([]byte, MaxImageBytes))
	overLimit := base64.StdEncoding.EncodeToString(make([]byte, MaxImageBytes+1))

	tests := []struct {
		name string
		data string
		want error
	}{
		{"valid png", "data:image/png;base64,AAAA", nil},
		{"at size limit", "data:image/png;base64," + atLimit, nil},
		{"over size limit", "data:image/png;base64," + overLimit, ErrImageTooLarge},
		{"not a data uri", "hello", ErrNotAnImage},
		{"wrong media type", "data:text/plain;base64,AAAA", ErrNotAnImage},
		{"missing base64 marker", "data:image/png,AAAA", ErrNotAnImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImage(models.Image{Data: tt.data})
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateImage = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDataURIPayloadSize(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4, 5, 100, MaxImageBytes, MaxImageBytes + 1} {
		b64 := base64.StdEncoding.EncodeToString(make([]byte, n))
		if got := DataURIPayloadSize(b64); got != n {
			t.Errorf("DataURIPayloadSize(%d bytes encoded) = %d", n, got)
		}
	}
}
