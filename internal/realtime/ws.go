package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ishmeetPD247/PD247-code-share/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Rooms are joinable from anywhere by design; the room ID is the only
	// access control, as with the REST surface.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS returns the handler that upgrades a connection and starts its
// read/write pumps.
func ServeWS(hub *Hub, service *Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		c := newClient(hub, service, conn, logger)
		metrics.WSConnections.Inc()

		go func() {
			c.writePump()
		}()
		go func() {
			defer metrics.WSConnections.Dec()
			c.readPump()
		}()
	}
}
