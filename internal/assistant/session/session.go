// Package session owns the persistent websocket connection to the assistant
// endpoint.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/oneskyhq/onesky/backend/internal/assistant/wire"
)

// State is the two-valued connectivity state observers see.
type State string

const (
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

// ErrNotConnected is returned by SendText when no live connection exists.
var ErrNotConnected = errors.New("session not connected")

// Options tunes connection behavior.
type Options struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
}

// DefaultOptions returns sane defaults.
func DefaultOptions() Options {
	return Options{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// Session maintains one persistent bidirectional connection. Inbound frames
// are delivered to the registered handler one at a time, in wire arrival
// order, from a single read goroutine; no buffering or reordering happens at
// this layer. A failed dial or a dropped connection leaves the session in the
// disconnected state; the host decides when to reconnect.
type Session struct {
	url  string
	opts Options
	log  zerolog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	state   State
	onFrame func(payload []byte)
	onState func(State)
	closed  bool
}

// New returns a disconnected session for the given websocket URL.
func New(url string, opts Options, log zerolog.Logger) *Session {
	return &Session{
		url:   url,
		opts:  opts,
		state: StateDisconnected,
		log:   log.With().Str("component", "session").Logger(),
	}
}

// OnFrame registers the handler invoked once per inbound frame. Passing nil
// deregisters it.
func (s *Session) OnFrame(handler func(payload []byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame = handler
}

// OnStateChange registers the connectivity observer. Transitions are reported
// synchronously with the state change.
func (s *Session) OnStateChange(observer func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onState = observer
}

// State returns the current connectivity state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect dials the endpoint and starts the read pump. On failure the session
// stays disconnected and the error is returned for logging; the caller is
// expected to fall back rather than abort.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("session closed")
	}
	if s.state == StateConnected {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	dialer := &websocket.Dialer{HandshakeTimeout: s.opts.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("url", s.url).Msg("dial failed")
		return err
	}

	conn.SetPongHandler(func(string) error { return nil })

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return errors.New("session closed")
	}
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
	s.mu.Unlock()
	s.setState(StateConnected)

	go s.readPump(conn)
	go s.pingLoop(conn)
	return nil
}

// SendText transmits the user's message. Delivery is not acknowledged at this
// layer.
func (s *Session) SendText(content string) error {
	s.mu.Lock()
	conn := s.conn
	connected := s.state == StateConnected
	s.mu.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	if err := conn.WriteJSON(wire.Outbound{Message: content}); err != nil {
		s.log.Warn().Err(err).Msg("send failed")
		s.dropConn(conn)
		return err
	}
	return nil
}

// Close tears the connection down and marks the session unusable. Safe to
// call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.onFrame = nil
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	s.setState(StateDisconnected)
}

func (s *Session) readPump(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("read pump stopped")
			}
			s.dropConn(conn)
			return
		}

		s.mu.Lock()
		handler := s.onFrame
		s.mu.Unlock()
		if handler != nil {
			handler(payload)
		}
	}
}

func (s *Session) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		current := s.conn
		s.mu.Unlock()
		if current != conn {
			return
		}

		// WriteControl is safe against SendText's concurrent data writes;
		// WriteMessage is not and panics on overlap.
		deadline := time.Now().Add(s.opts.WriteTimeout)
		if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			s.dropConn(conn)
			return
		}
	}
}

// dropConn transitions to disconnected if conn is still the live connection.
// A stale pump noticing its own dead connection must not clobber a newer one.
func (s *Session) dropConn(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	alreadyClosed := s.closed
	s.mu.Unlock()

	conn.Close()
	if !alreadyClosed {
		s.setState(StateDisconnected)
	}
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	if s.state == next {
		s.mu.Unlock()
		return
	}
	s.state = next
	observer := s.onState
	s.mu.Unlock()

	if observer != nil {
		observer(next)
	}
}
