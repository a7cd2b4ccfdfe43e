package handlers

import (
	"strings"
	"testing"
)

func TestValidRoomID(t *testing.T) {
	valid := []string{"abc1234", "x", "UPPER_and-lower9", strings.Repeat("a", 50)}
	for _, id := range valid {
		if !validRoomID(id) {
			t.Errorf("validRoomID(%q) = false", id)
		}
	}

	invalid := []string{"", "has space", "slash/id", "dots..", strings.Repeat("a", 51)}
	for _, id := range invalid {
		if validRoomID(id) {
			t.Errorf("validRoomID(%q) = true", id)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  photo.png  ", "photo.png"},
		{"line\nbreak.png", "linebreak.png"},
		{"tab\there.png", "tabhere.png"},
		{strings.Repeat("n", 120), strings.Repeat("n", 100)},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeName(tt.in); got != tt.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
