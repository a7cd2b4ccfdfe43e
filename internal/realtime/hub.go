package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/ishmeetPD247/PD247-code-share/internal/metrics"
)

// Hub tracks which connections are subscribed to which store paths and fans
// snapshot frames out to them. All membership mutation happens on the Run
// loop; Publish and the register/unregister requests are safe from any
// goroutine.
type Hub struct {
	// Subscribed clients per path
	mu    sync.RWMutex
	paths map[string]map[*Client]bool

	register   chan subscription
	unregister chan subscription
	detach     chan *Client
	broadcast  chan broadcast
	done       chan struct{}

	logger zerolog.Logger
}

type subscription struct {
	client *Client
	path   string
}

type broadcast struct {
	path    string
	payload []byte
}

// NewHub creates a hub. Call Run in a goroutine before registering clients.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		paths:      make(map[string]map[*Client]bool),
		register:   make(chan subscription),
		unregister: make(chan subscription),
		detach:     make(chan *Client),
		broadcast:  make(chan broadcast, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registration and broadcast events until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			h.addSubscription(sub)
		case sub := <-h.unregister:
			h.removeSubscription(sub)
		case client := <-h.detach:
			h.detachClient(client)
		case msg := <-h.broadcast:
			h.broadcastToPath(msg)
		case <-h.done:
			return
		}
	}
}

// Stop terminates the Run loop.
func (h *Hub) Stop() {
	close(h.done)
}

// Register subscribes a client to a path.
func (h *Hub) Register(c *Client, path string) {
	h.register <- subscription{client: c, path: path}
}

// Unregister removes a client's subscription to a path.
func (h *Hub) Unregister(c *Client, path string) {
	h.unregister <- subscription{client: c, path: path}
}

// Detach removes a client from every path and closes its send channel.
// Called exactly once, when the connection's read pump exits.
func (h *Hub) Detach(c *Client) {
	h.detach <- c
}

// Publish fans a prepared frame out to every subscriber of path.
func (h *Hub) Publish(path string, payload []byte) {
	h.broadcast <- broadcast{path: path, payload: payload}
}

// Subscribers reports how many clients are subscribed to a path. Used to
// skip building directory snapshots nobody is watching.
func (h *Hub) Subscribers(path string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.paths[path])
}

func (h *Hub) addSubscription(sub subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.paths[sub.path] == nil {
		h.paths[sub.path] = make(map[*Client]bool)
	}
	if !h.paths[sub.path][sub.client] {
		h.paths[sub.path][sub.client] = true
		sub.client.paths[sub.path] = true
		metrics.SubscriptionsActive.Inc()
	}

	h.logger.Debug().
		Str("path", sub.path).
		Str("client", sub.client.id.String()).
		Int("subscribers", len(h.paths[sub.path])).
		Msg("client subscribed")
}

func (h *Hub) removeSubscription(sub subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.paths[sub.path]
	if !ok || !clients[sub.client] {
		return
	}
	delete(clients, sub.client)
	delete(sub.client.paths, sub.path)
	metrics.SubscriptionsActive.Dec()
	if len(clients) == 0 {
		delete(h.paths, sub.path)
	}
}

func (h *Hub) detachClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.detached {
		return
	}
	c.detached = true

	for path := range c.paths {
		if clients, ok := h.paths[path]; ok {
			delete(clients, c)
			metrics.SubscriptionsActive.Dec()
			if len(clients) == 0 {
				delete(h.paths, path)
			}
		}
	}
	c.paths = make(map[string]bool)
	close(c.send)

	h.logger.Debug().Str("client", c.id.String()).Msg("client detached")
}

func (h *Hub) broadcastToPath(msg broadcast) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.paths[msg.path]
	if !ok {
		return
	}

	for client := range clients {
		select {
		case client.send <- msg.payload:
			metrics.SnapshotsPushed.Inc()
		default:
			// Send buffer full. The client is too slow to keep up with
			// the room; drop the frame and let the ping cycle decide
			// whether the connection is dead.
			h.logger.Warn().
				Str("path", msg.path).
				Str("client", client.id.String()).
				Msg("send buffer full, dropping frame")
		}
	}
}
