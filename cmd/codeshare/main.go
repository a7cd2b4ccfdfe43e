// CodeShare CLI - command line client for the CodeShare sync service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ishmeetPD247/PD247-code-share/clients/go/codeshare"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("CODESHARE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := codeshare.NewClient(baseURL)
	client.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	ctx := context.Background()
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health(ctx)
		exitOnError(err)
		fmt.Printf("%s (version %s)\n", resp.Status, resp.Version)

	case "stats":
		resp, err := client.Stats(ctx)
		exitOnError(err)
		fmt.Printf("rooms: %d\nimages: %d\ncode bytes: %d\nlast activity: %s\n",
			resp.TotalRooms, resp.TotalImages, resp.TotalCodeSize, resp.LastActivity)

	case "create":
		id, err := client.CreateRoom(ctx)
		exitOnError(err)
		fmt.Printf("Room created: %s\n%s/room/%s\n", id, baseURL, id)

	case "rooms":
		query := ""
		if len(os.Args) > 2 {
			query = os.Args[2]
		}
		listRooms(ctx, client, query)

	case "watch":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: codeshare watch <room>")
			os.Exit(1)
		}
		watchRoom(ctx, client, os.Args[2])

	case "sync":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: codeshare sync <room> <file>")
			os.Exit(1)
		}
		syncRoom(ctx, client, os.Args[2], os.Args[3])

	case "images":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: codeshare images <room> ls|add|rm|save ...")
			os.Exit(1)
		}
		imagesCommand(ctx, client, os.Args[2], os.Args[3], os.Args[4:])

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func listRooms(ctx context.Context, client *codeshare.Client, query string) {
	exitOnError(client.Connect(ctx))
	defer client.Close()

	dir, err := codeshare.OpenDirectory(client, client.Logger)
	exitOnError(err)
	defer dir.Close()

	waitFor(func() bool { return dir.Loaded() })

	now := time.Now()
	rooms := dir.Filter(query)
	if len(rooms) == 0 {
		fmt.Println("No rooms found")
		return
	}
	for _, room := range rooms {
		fmt.Printf("  %-10s %-14s %4d lines %6d chars  %s\n",
			room.ID, codeshare.TimeAgo(room.LastUpdated, now),
			room.LineCount, room.CodeLength, room.Preview())
	}
}

func watchRoom(ctx context.Context, client *codeshare.Client, roomID string) {
	exitOnError(client.Connect(ctx))
	defer client.Close()

	status := newStatusLine()
	session, err := codeshare.JoinRoom(client, roomID, client.Logger)
	exitOnError(err)
	defer session.Close()

	session.OnChange(func(code string) {
		fmt.Println(code)
		status.show(fmt.Sprintf("● live  room %s  updated %s", roomID, time.Now().Format("15:04:05")))
	})
	session.OnStatus(func(live bool) {
		if live {
			status.show("● live  room " + roomID)
		} else {
			status.show("○ connecting...")
		}
	})

	waitFor(session.Live)
	fmt.Println(session.Code())

	waitForInterrupt()
}

// syncRoom mirrors a room's buffer into a local file and pushes local file
// edits back, so the file behaves like another editor in the room.
func syncRoom(ctx context.Context, client *codeshare.Client, roomID, path string) {
	exitOnError(client.Connect(ctx))
	defer client.Close()

	status := newStatusLine()
	session, err := codeshare.JoinRoom(client, roomID, client.Logger)
	exitOnError(err)
	defer session.Close()

	var fileMu sync.Mutex
	writeFile := func(code string) {
		fileMu.Lock()
		defer fileMu.Unlock()
		if err := os.WriteFile(path, []byte(code), 0644); err != nil {
			fmt.Fprintln(os.Stderr, "Error writing file:", err)
		}
	}

	session.OnChange(func(code string) {
		writeFile(code)
		status.show(fmt.Sprintf("● live  room %s  pulled %s", roomID, time.Now().Format("15:04:05")))
	})

	waitFor(session.Live)
	writeFile(session.Code())
	status.show("● live  room " + roomID)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			fileMu.Lock()
			data, err := os.ReadFile(path)
			fileMu.Unlock()
			if err != nil {
				continue
			}
			if string(data) != session.Code() {
				session.SetCode(string(data))
				status.show(fmt.Sprintf("● live  room %s  pushed %s", roomID, time.Now().Format("15:04:05")))
			}
		}
	}
}

func imagesCommand(ctx context.Context, client *codeshare.Client, roomID, sub string, args []string) {
	exitOnError(client.Connect(ctx))
	defer client.Close()

	gallery, err := codeshare.OpenGallery(client, roomID, client.Logger)
	exitOnError(err)
	defer gallery.Close()

	loaded := make(chan struct{}, 1)
	gallery.OnChange(func() {
		select {
		case loaded <- struct{}{}:
		default:
		}
	})

	awaitGallery := func() {
		select {
		case <-loaded:
		case <-time.After(5 * time.Second):
			fmt.Fprintln(os.Stderr, "Error: timed out waiting for gallery")
			os.Exit(1)
		}
	}

	switch sub {
	case "ls":
		awaitGallery()
		images := gallery.Images()
		if len(images) == 0 {
			fmt.Println("No images")
			return
		}
		for _, img := range images {
			ts := time.UnixMilli(img.Timestamp).Format("2006-01-02 15:04:05")
			fmt.Printf("  %s  [%s]  %s\n", img.ID, ts, img.Name)
		}

	case "add":
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "Usage: codeshare images <room> add <file>")
			os.Exit(1)
		}
		id, err := gallery.UploadFile(args[0])
		exitOnError(err)
		fmt.Printf("Uploaded: %s\n", id)

	case "rm":
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "Usage: codeshare images <room> rm <image_id>")
			os.Exit(1)
		}
		exitOnError(gallery.Remove(args[0]))
		fmt.Println("Deleted")

	case "save":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: codeshare images <room> save <image_id> <dest>")
			os.Exit(1)
		}
		awaitGallery()
		exitOnError(gallery.SaveTo(args[0], args[1]))
		fmt.Printf("Saved to %s\n", args[1])

	default:
		fmt.Fprintf(os.Stderr, "Unknown images subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// statusLine prints a transient status to stderr and clears it after three
// seconds of inactivity. Every show resets the hide timer.
type statusLine struct {
	mu    sync.Mutex
	timer *time.Timer
}

func newStatusLine() *statusLine {
	return &statusLine{}
}

func (s *statusLine) show(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(os.Stderr, "\r\033[K%s", text)
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(3*time.Second, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		fmt.Fprint(os.Stderr, "\r\033[K")
	})
}

func waitFor(cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	fmt.Fprintln(os.Stderr, "Error: timed out waiting for server")
	os.Exit(1)
}

func waitForInterrupt() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

func usage() {
	fmt.Println(`CodeShare CLI - realtime collaborative code and image sharing

Usage: codeshare <command> [options]

Commands:
  create                         Create a room with a fresh ID
  rooms [query]                  List rooms, filtered by ID substring
  watch <room>                   Stream a room's code to stdout
  sync <room> <file>             Two-way sync between a room and a file
  images <room> ls               List a room's images
  images <room> add <file>       Upload an image (max 5 MiB)
  images <room> rm <id>          Delete an image
  images <room> save <id> <dest> Download an image
  stats                          Show server statistics
  health                         Check server health

Environment:
  CODESHARE_URL   Server URL (default: http://localhost:8080)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
