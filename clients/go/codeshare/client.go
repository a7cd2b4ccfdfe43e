// Package codeshare provides a client for the CodeShare realtime sync
// service: one-shot REST reads plus a websocket surface with the same
// shape as the hosted store the original app was built on — full-value
// writes to hierarchical paths, and subscriptions that push the current
// value immediately and again on every change.
package codeshare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Backend is the store surface the sync loops are written against. The
// Client implements it over a websocket; tests implement it in memory.
//
// Subscribe delivers the current value (JSON null when nothing was ever
// written) as soon as possible, then every subsequent value including the
// echo of the subscriber's own writes. onError is invoked when the
// subscription breaks; there is no automatic resubscription.
type Backend interface {
	Write(path string, value interface{}) error
	Delete(path string) error
	Subscribe(path string, fn func(value json.RawMessage), onError func(error)) (cancel func(), err error)
}

// ErrNotConnected is returned for realtime operations before Connect.
var ErrNotConnected = errors.New("not connected")

// frame mirrors the server's websocket message format.
type frame struct {
	Op      string          `json:"op"`
	Path    string          `json:"path,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	Message string          `json:"message,omitempty"`
}

type subscriber struct {
	fn      func(json.RawMessage)
	onError func(error)
}

// Client is a CodeShare API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	subs     map[string]map[int]subscriber
	lastSnap map[string]json.RawMessage
	nextID   int
	closed   bool

	writeMu sync.Mutex
}

// NewClient creates a new client. baseURL defaults to a local server.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     zerolog.Nop(),
		subs:       make(map[string]map[int]subscriber),
		lastSnap:   make(map[string]json.RawMessage),
	}
}

// Connect dials the websocket endpoint and starts the read loop. Required
// before Write, Delete, or Subscribe.
func (c *Client) Connect(ctx context.Context) error {
	wsURL := c.BaseURL + "/ws"
	if strings.HasPrefix(wsURL, "https://") {
		wsURL = "wss://" + wsURL[len("https://"):]
	} else if strings.HasPrefix(wsURL, "http://") {
		wsURL = "ws://" + wsURL[len("http://"):]
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.closed = false
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Close tears the connection down. Active subscriptions are dropped
// without error callbacks; in-flight writes are not awaited.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.connectionLost(err)
			return
		}

		var f frame
		if err := json.Unmarshal(message, &f); err != nil {
			c.Logger.Warn().Err(err).Msg("bad frame from server")
			continue
		}

		switch f.Op {
		case "snap":
			c.dispatch(f.Path, f.Value)
		case "err":
			c.Logger.Warn().Str("message", f.Message).Msg("server error")
		}
	}
}

func (c *Client) dispatch(path string, value json.RawMessage) {
	c.mu.Lock()
	c.lastSnap[path] = value
	callbacks := make([]func(json.RawMessage), 0, len(c.subs[path]))
	for _, sub := range c.subs[path] {
		callbacks = append(callbacks, sub.fn)
	}
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(value)
	}
}

func (c *Client) connectionLost(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	var onErrors []func(error)
	for _, subs := range c.subs {
		for _, sub := range subs {
			if sub.onError != nil {
				onErrors = append(onErrors, sub.onError)
			}
		}
	}
	c.mu.Unlock()

	c.Logger.Warn().Err(err).Msg("connection lost")
	for _, fn := range onErrors {
		fn(err)
	}
}

func (c *Client) sendFrame(f frame) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(f)
}

// Write replaces the entire value at a path.
func (c *Client) Write(path string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.sendFrame(frame{Op: "put", Path: path, Value: data})
}

// Delete removes the value at a path.
func (c *Client) Delete(path string) error {
	return c.sendFrame(frame{Op: "del", Path: path})
}

// Subscribe registers fn for every value pushed at path. The first
// subscriber on a path triggers a server subscription, which pushes the
// current value immediately; later subscribers are primed from the last
// received snapshot. The returned cancel releases the subscription.
func (c *Client) Subscribe(path string, fn func(value json.RawMessage), onError func(error)) (func(), error) {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	first := len(c.subs[path]) == 0
	if c.subs[path] == nil {
		c.subs[path] = make(map[int]subscriber)
	}
	id := c.nextID
	c.nextID++
	c.subs[path][id] = subscriber{fn: fn, onError: onError}
	snap, hasSnap := c.lastSnap[path]
	c.mu.Unlock()

	if first {
		if err := c.sendFrame(frame{Op: "sub", Path: path}); err != nil {
			c.mu.Lock()
			delete(c.subs[path], id)
			c.mu.Unlock()
			return nil, err
		}
	} else if hasSnap {
		fn(snap)
	}

	cancel := func() {
		c.mu.Lock()
		delete(c.subs[path], id)
		last := len(c.subs[path]) == 0
		if last {
			delete(c.subs, path)
			delete(c.lastSnap, path)
		}
		c.mu.Unlock()
		if last {
			// Best effort; the connection may already be gone.
			_ = c.sendFrame(frame{Op: "unsub", Path: path})
		}
	}
	return cancel, nil
}

// doRequest performs a REST request against the server.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("codeshare error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}

// RoomEntry is one room in the directory snapshot.
type RoomEntry struct {
	Code        string `json:"code"`
	LastUpdated int64  `json:"lastUpdated"` // unix ms
}

// ListRoomsResponse is the response from listing all rooms.
type ListRoomsResponse struct {
	Rooms map[string]RoomEntry `json:"rooms"`
	Count int                  `json:"count"`
}

// ListRooms retrieves the directory snapshot of every room.
func (c *Client) ListRooms(ctx context.Context) (*ListRoomsResponse, error) {
	respBody, err := c.doRequest(ctx, "GET", "/rooms", nil)
	if err != nil {
		return nil, err
	}
	var resp ListRoomsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RoomResponse describes one room. Exists is false for IDs nothing has
// ever been written under; joining such an ID is still valid.
type RoomResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	LastUpdated int64  `json:"lastUpdated"`
	Exists      bool   `json:"exists"`
}

// GetRoom retrieves one room's code buffer.
func (c *Client) GetRoom(ctx context.Context, roomID string) (*RoomResponse, error) {
	respBody, err := c.doRequest(ctx, "GET", "/rooms/"+roomID, nil)
	if err != nil {
		return nil, err
	}
	var resp RoomResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RoomExists reports whether anything has ever been written under an ID.
func (c *Client) RoomExists(ctx context.Context, roomID string) (bool, error) {
	room, err := c.GetRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	return room.Exists, nil
}

// HealthResponse is the server health summary.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// Health checks server health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	respBody, err := c.doRequest(ctx, "GET", "/health", nil)
	if err != nil {
		return nil, err
	}
	var resp HealthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StatsResponse is the server statistics summary.
type StatsResponse struct {
	TotalRooms    int64  `json:"total_rooms"`
	TotalImages   int64  `json:"total_images"`
	TotalCodeSize int64  `json:"total_code_bytes"`
	LastActivity  string `json:"last_activity"`
}

// Stats retrieves platform statistics.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	respBody, err := c.doRequest(ctx, "GET", "/stats", nil)
	if err != nil {
		return nil, err
	}
	var resp StatsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func codePath(roomID string) string   { return "rooms/" + roomID + "/code" }
func imagesPath(roomID string) string { return "rooms/" + roomID + "/images" }
func imagePath(roomID, imageID string) string {
	return "rooms/" + roomID + "/images/" + imageID
}
