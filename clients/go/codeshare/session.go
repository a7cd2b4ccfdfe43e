package codeshare

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Session keeps one room's shared text buffer in sync with the store. It
// owns the per-subscription echo-suppression state: after a local write,
// the very next incoming snapshot is discarded instead of applied, so the
// writer's own echo never clobbers what it is editing. The flag pairs one
// write with one snapshot; with remote writes interleaving between a local
// write and its echo the wrong snapshot can be suppressed. That is accepted:
// the flag is flicker avoidance, not a consistency mechanism, and the next
// snapshot converges everyone anyway.
type Session struct {
	backend Backend
	roomID  string
	logger  zerolog.Logger

	mu                sync.Mutex
	buffer            string
	live              bool
	pendingLocalWrite bool
	onChange          func(code string)
	onStatus          func(live bool)
	cancel            func()
}

// JoinRoom subscribes to a room's code buffer. The room need not exist:
// a fresh ID simply starts from an empty buffer. The first snapshot marks
// the session live.
func JoinRoom(backend Backend, roomID string, logger zerolog.Logger) (*Session, error) {
	s := &Session{
		backend: backend,
		roomID:  roomID,
		logger:  logger,
	}

	cancel, err := backend.Subscribe(codePath(roomID), s.applySnapshot, s.subscriptionError)
	if err != nil {
		return nil, err
	}
	s.cancel = cancel
	return s, nil
}

// applySnapshot handles every pushed value for the code path, echoes
// included.
func (s *Session) applySnapshot(value json.RawMessage) {
	s.mu.Lock()

	wasLive := s.live
	s.live = true
	statusFn := s.onStatus

	if s.pendingLocalWrite {
		// Our own write coming back; the buffer already has it.
		s.pendingLocalWrite = false
		s.mu.Unlock()
		if !wasLive && statusFn != nil {
			statusFn(true)
		}
		return
	}

	var code string
	if len(value) > 0 && string(value) != "null" {
		if err := json.Unmarshal(value, &code); err != nil {
			s.logger.Warn().Err(err).Str("room", s.roomID).Msg("bad code snapshot")
			s.mu.Unlock()
			return
		}
	}

	s.buffer = code
	changeFn := s.onChange
	s.mu.Unlock()

	if !wasLive && statusFn != nil {
		statusFn(true)
	}
	if changeFn != nil {
		changeFn(code)
	}
}

func (s *Session) subscriptionError(err error) {
	s.mu.Lock()
	wasLive := s.live
	s.live = false
	statusFn := s.onStatus
	s.mu.Unlock()

	s.logger.Warn().Err(err).Str("room", s.roomID).Msg("room subscription error")
	if wasLive && statusFn != nil {
		statusFn(false)
	}
}

// SetCode applies a local edit: the visible buffer updates optimistically,
// the echo-suppression flag is armed, and the whole new value is written
// to the store. A failed write is logged and nothing else — the optimistic
// buffer is never rolled back.
func (s *Session) SetCode(code string) {
	s.mu.Lock()
	s.buffer = code
	s.pendingLocalWrite = true
	s.mu.Unlock()

	if err := s.backend.Write(codePath(s.roomID), code); err != nil {
		s.logger.Error().Err(err).Str("room", s.roomID).Msg("code write failed")
	}
}

// Code returns the current visible buffer.
func (s *Session) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// Live reports whether the subscription has delivered a snapshot and not
// errored since.
func (s *Session) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// RoomID returns the room this session is joined to.
func (s *Session) RoomID() string {
	return s.roomID
}

// OnChange registers a callback for applied remote updates. Echoes of this
// session's own writes do not fire it.
func (s *Session) OnChange(fn func(code string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// OnStatus registers a callback for live/not-live transitions.
func (s *Session) OnStatus(fn func(live bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatus = fn
}

// Close leaves the room. No flush: a write still in flight is not awaited.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}
