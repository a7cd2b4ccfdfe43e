package realtime

import (
	"errors"
	"strings"
)

// Store path namespace:
//
//	rooms                          directory snapshot (subscribe only)
//	rooms/{roomId}/code            the shared text buffer (string)
//	rooms/{roomId}/images          image mapping (subscribe only)
//	rooms/{roomId}/images/{id}     one image record (put/delete only)
type pathKind int

const (
	kindRooms pathKind = iota
	kindRoomCode
	kindRoomImages
	kindRoomImage
)

type pathRef struct {
	kind    pathKind
	roomID  string
	imageID string
}

var errBadPath = errors.New("unknown path")

func parsePath(path string) (pathRef, error) {
	parts := strings.Split(path, "/")
	if parts[0] != "rooms" {
		return pathRef{}, errBadPath
	}

	switch len(parts) {
	case 1:
		return pathRef{kind: kindRooms}, nil
	case 3:
		if parts[1] == "" {
			return pathRef{}, errBadPath
		}
		switch parts[2] {
		case "code":
			return pathRef{kind: kindRoomCode, roomID: parts[1]}, nil
		case "images":
			return pathRef{kind: kindRoomImages, roomID: parts[1]}, nil
		}
		return pathRef{}, errBadPath
	case 4:
		if parts[1] == "" || parts[2] != "images" || parts[3] == "" {
			return pathRef{}, errBadPath
		}
		return pathRef{kind: kindRoomImage, roomID: parts[1], imageID: parts[3]}, nil
	}
	return pathRef{}, errBadPath
}

func codePath(roomID string) string   { return "rooms/" + roomID + "/code" }
func imagesPath(roomID string) string { return "rooms/" + roomID + "/images" }
