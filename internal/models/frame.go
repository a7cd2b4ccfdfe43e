package models

import "encoding/json"

// Websocket frame opcodes. Clients send sub/unsub/put/del; the server pushes
// snap on subscribe and on every subsequent change to a subscribed path.
const (
	OpSubscribe   = "sub"
	OpUnsubscribe = "unsub"
	OpPut         = "put"
	OpDelete      = "del"
	OpSnapshot    = "snap"
	OpError       = "err"
)

// Frame is one websocket message in either direction.
type Frame struct {
	Op      string          `json:"op"`
	Path    string          `json:"path,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	Message string          `json:"message,omitempty"`
}
