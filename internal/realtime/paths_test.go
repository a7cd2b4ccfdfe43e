package realtime

import "testing"

func TestParsePath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
		kind    pathKind
		roomID  string
		imageID string
	}{
		{path: "rooms", kind: kindRooms},
		{path: "rooms/abc1234/code", kind: kindRoomCode, roomID: "abc1234"},
		{path: "rooms/abc1234/images", kind: kindRoomImages, roomID: "abc1234"},
		{path: "rooms/abc1234/images/01H", kind: kindRoomImage, roomID: "abc1234", imageID: "01H"},
		{path: "", wantErr: true},
		{path: "agents", wantErr: true},
		{path: "rooms/abc1234", wantErr: true},
		{path: "rooms//code", wantErr: true},
		{path: "rooms/abc1234/other", wantErr: true},
		{path: "rooms/abc1234/images/", wantErr: true},
		{path: "rooms/abc1234/images/01H/extra", wantErr: true},
	}

	for _, tt := range tests {
		ref, err := parsePath(tt.path)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parsePath(%q) accepted, want error", tt.path)
			}
			continue
		}
		if err != nil {
			t.Errorf("parsePath(%q) failed: %v", tt.path, err)
			continue
		}
		if ref.kind != tt.kind || ref.roomID != tt.roomID || ref.imageID != tt.imageID {
			t.Errorf("parsePath(%q) = %+v", tt.path, ref)
		}
	}
}
