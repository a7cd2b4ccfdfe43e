package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ishmeetPD247/PD247-code-share/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(st.Close)
	return st
}

func TestGetRoomNeverWritten(t *testing.T) {
	st := newTestStore(t)

	entry, err := st.GetRoom(context.Background(), "ghost12")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if entry != nil {
		t.Errorf("expected nil for never-written room, got %+v", entry)
	}
}

func TestSetRoomCodeCreatesAndUpdates(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.SetRoomCode(ctx, "abc1234", "v1", 100); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	entry, err := st.GetRoom(ctx, "abc1234")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if entry == nil || entry.Code != "v1" || entry.LastUpdated != 100 {
		t.Fatalf("after first write: %+v", entry)
	}

	if err := st.SetRoomCode(ctx, "abc1234", "v2", 200); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	entry, err = st.GetRoom(ctx, "abc1234")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if entry.Code != "v2" || entry.LastUpdated != 200 {
		t.Errorf("upsert did not replace: %+v", entry)
	}
}

func TestSetRoomCodeEmptyString(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.SetRoomCode(ctx, "abc1234", "something", 100); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := st.SetRoomCode(ctx, "abc1234", "", 200); err != nil {
		t.Fatalf("clearing write failed: %v", err)
	}
	entry, err := st.GetRoom(ctx, "abc1234")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if entry == nil || entry.Code != "" {
		t.Errorf("empty write is a real value, got %+v", entry)
	}
}

func TestListRooms(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	st.SetRoomCode(ctx, "room001", "a", 1)
	st.SetRoomCode(ctx, "room002", "bb", 2)

	rooms, err := st.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
	if rooms["room002"].Code != "bb" || rooms["room002"].LastUpdated != 2 {
		t.Errorf("room002 = %+v", rooms["room002"])
	}
}

func TestAddImageCreatesRoomImplicitly(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	img := models.Image{Data: "data:image/png;base64,AAAA", Timestamp: 42, Name: "a.png"}
	if err := st.AddImage(ctx, "imgonly", "01H", img); err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}

	// The room row exists with an empty buffer so the directory lists it.
	entry, err := st.GetRoom(ctx, "imgonly")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if entry == nil || entry.Code != "" {
		t.Errorf("image-first room not created: %+v", entry)
	}

	images, err := st.ListImages(ctx, "imgonly")
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if len(images) != 1 || images["01H"] != img {
		t.Errorf("images = %+v", images)
	}
}

func TestAddImageKeepsExistingCode(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	st.SetRoomCode(ctx, "abc1234", "keep me", 100)
	if err := st.AddImage(ctx, "abc1234", "01H", models.Image{Data: "d", Timestamp: 1}); err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}

	entry, _ := st.GetRoom(ctx, "abc1234")
	if entry.Code != "keep me" || entry.LastUpdated != 100 {
		t.Errorf("image write disturbed the room row: %+v", entry)
	}
}

func TestDeleteImageLeavesOthers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	st.AddImage(ctx, "abc1234", "keep", models.Image{Data: "d1", Timestamp: 1})
	st.AddImage(ctx, "abc1234", "drop", models.Image{Data: "d2", Timestamp: 2})

	if err := st.DeleteImage(ctx, "abc1234", "drop"); err != nil {
		t.Fatalf("DeleteImage failed: %v", err)
	}

	images, err := st.ListImages(ctx, "abc1234")
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(images))
	}
	if _, ok := images["keep"]; !ok {
		t.Error("wrong image deleted")
	}
}

func TestDeleteImageScopedToRoom(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	st.AddImage(ctx, "roomaaa", "shared", models.Image{Data: "d", Timestamp: 1})

	// Deleting the same ID under a different room must not touch it.
	if err := st.DeleteImage(ctx, "roombbb", "shared"); err != nil {
		t.Fatalf("DeleteImage failed: %v", err)
	}
	images, _ := st.ListImages(ctx, "roomaaa")
	if len(images) != 1 {
		t.Error("delete crossed room boundaries")
	}
}

func TestStatsQueries(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	count, err := st.CountRooms(ctx)
	if err != nil || count != 0 {
		t.Fatalf("CountRooms on empty store = %d, %v", count, err)
	}
	last, err := st.LastActivity(ctx)
	if err != nil || last != 0 {
		t.Fatalf("LastActivity on empty store = %d, %v", last, err)
	}

	st.SetRoomCode(ctx, "room001", "abcd", 100)
	st.SetRoomCode(ctx, "room002", "ab", 300)
	st.AddImage(ctx, "room001", "01H", models.Image{Data: "d", Timestamp: 1})

	if count, _ = st.CountRooms(ctx); count != 2 {
		t.Errorf("CountRooms = %d, want 2", count)
	}
	if n, _ := st.CountImages(ctx); n != 1 {
		t.Errorf("CountImages = %d, want 1", n)
	}
	if sum, _ := st.SumCodeBytes(ctx); sum != 6 {
		t.Errorf("SumCodeBytes = %d, want 6", sum)
	}
	if last, _ = st.LastActivity(ctx); last != 300 {
		t.Errorf("LastActivity = %d, want 300", last)
	}
}
