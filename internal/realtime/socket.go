// Package realtime is a minimal socket.io client: engine.io v4 over a
// websocket, with event handlers and connect/disconnect callbacks.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"storedesk/internal/telemetry"
)

const handshakeTimeout = 10 * time.Second

var (
	ErrNotConnected     = errors.New("socket not connected")
	ErrAlreadyConnected = errors.New("socket already connected")
	ErrServerClosed     = errors.New("server closed the connection")
	ErrConnectRefused   = errors.New("server refused the connection")
)

// Handler receives the arguments that followed the event name.
type Handler func(args []json.RawMessage)

type handlerEntry struct {
	id int
	fn Handler
}

type Socket struct {
	url    string
	dialer *websocket.Dialer

	mu           sync.Mutex
	handlers     map[string][]handlerEntry
	nextID       int
	onConnect    []func()
	onDisconnect []func(error)
	conn         *websocket.Conn
	sid          string
	done         chan struct{}
	err          error
	closing      bool

	writeMu sync.Mutex
}

// NewSocket builds a socket for the server at baseURL. http and https are
// mapped to ws and wss.
func NewSocket(baseURL string) (*Socket, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("socket url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("socket url: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/"
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()

	done := make(chan struct{})
	close(done)
	return &Socket{
		url:      u.String(),
		dialer:   websocket.DefaultDialer,
		handlers: make(map[string][]handlerEntry),
		done:     done,
	}, nil
}

// On registers fn for event and returns a function that removes it.
func (s *Socket) On(event string, fn Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.handlers[event] = append(s.handlers[event], handlerEntry{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		entries := s.handlers[event]
		for i, e := range entries {
			if e.id == id {
				s.handlers[event] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

func (s *Socket) OnConnect(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnect = append(s.onConnect, fn)
}

// OnDisconnect callbacks get nil when the client closed the socket itself.
func (s *Socket) OnDisconnect(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconnect = append(s.onDisconnect, fn)
}

func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Done is closed once the read loop has exited.
func (s *Socket) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err is why the last connection ended, nil after Close.
func (s *Socket) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Connect dials the server, performs the engine.io and socket.io handshakes
// and starts the read loop.
func (s *Socket) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.mu.Unlock()

	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial socket: %w", err)
	}

	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	hs, sid, err := s.handshake(conn)
	if err != nil {
		conn.Close()
		return err
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.conn = conn
	s.sid = sid
	s.done = done
	s.err = nil
	s.closing = false
	callbacks := append([]func(){}, s.onConnect...)
	s.mu.Unlock()

	telemetry.SocketConnected(true)
	slog.Info("Socket connected", "sid", sid)

	go s.readLoop(conn, done, hs)

	for _, cb := range callbacks {
		cb()
	}
	return nil
}

func (s *Socket) handshake(conn *websocket.Conn) (Handshake, string, error) {
	var hs Handshake
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return hs, "", fmt.Errorf("read open packet: %w", err)
	}
	f, err := ParseFrame(msg)
	if err != nil || f.Engine != EngineOpen {
		return hs, "", fmt.Errorf("expected open packet, got %q", msg)
	}
	if err := json.Unmarshal(f.Payload, &hs); err != nil {
		return hs, "", fmt.Errorf("decode open packet: %w", err)
	}

	connect, _ := EncodeSocket(SocketConnect, nil)
	if err := s.write(conn, connect); err != nil {
		return hs, "", fmt.Errorf("send connect: %w", err)
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return hs, "", fmt.Errorf("await connect: %w", err)
		}
		f, err := ParseFrame(msg)
		if err != nil {
			return hs, "", err
		}
		switch {
		case f.Engine == EnginePing:
			if err := s.write(conn, []byte{EnginePong}); err != nil {
				return hs, "", err
			}
		case f.Engine == EngineMessage && f.Socket == SocketConnect:
			var ack struct {
				SID string `json:"sid"`
			}
			_ = json.Unmarshal(f.Payload, &ack)
			return hs, ack.SID, nil
		case f.Engine == EngineMessage && f.Socket == SocketConnectError:
			return hs, "", fmt.Errorf("%w: %s", ErrConnectRefused, f.Payload)
		case f.Engine == EngineClose:
			return hs, "", ErrServerClosed
		}
	}
}

func (s *Socket) readLoop(conn *websocket.Conn, done chan struct{}, hs Handshake) {
	defer close(done)

	timeout := time.Duration(hs.PingInterval+hs.PingTimeout) * time.Millisecond
	var err error

loop:
	for {
		if timeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(timeout))
		} else {
			_ = conn.SetReadDeadline(time.Time{})
		}
		_, msg, rerr := conn.ReadMessage()
		if rerr != nil {
			err = rerr
			break
		}
		f, perr := ParseFrame(msg)
		if perr != nil {
			slog.Warn("Skipping malformed socket frame", "error", perr)
			continue
		}
		switch f.Engine {
		case EnginePing:
			if werr := s.write(conn, []byte{EnginePong}); werr != nil {
				err = werr
				break loop
			}
		case EngineClose:
			err = ErrServerClosed
			break loop
		case EngineMessage:
			switch f.Socket {
			case SocketEvent:
				s.dispatch(f)
			case SocketDisconnect:
				err = ErrServerClosed
				break loop
			}
		}
	}

	s.finish(conn, err)
}

func (s *Socket) dispatch(f Frame) {
	name, args, err := f.Event()
	if err != nil {
		slog.Warn("Skipping malformed socket event", "error", err)
		return
	}
	telemetry.SocketEvent("in", name)

	s.mu.Lock()
	entries := append([]handlerEntry(nil), s.handlers[name]...)
	s.mu.Unlock()

	for _, e := range entries {
		e.fn(args)
	}
}

func (s *Socket) finish(conn *websocket.Conn, err error) {
	conn.Close()

	s.mu.Lock()
	if s.closing {
		err = nil
	}
	s.conn = nil
	s.err = err
	callbacks := append([]func(error){}, s.onDisconnect...)
	s.mu.Unlock()

	telemetry.SocketConnected(false)
	if err != nil {
		slog.Warn("Socket disconnected", "error", err)
	} else {
		slog.Info("Socket closed")
	}
	for _, cb := range callbacks {
		cb(err)
	}
}

// Emit sends an event with the given arguments.
func (s *Socket) Emit(event string, args ...any) error {
	msg, err := EncodeEvent(event, args...)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := s.write(conn, msg); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	telemetry.SocketEvent("out", event)
	return nil
}

// Close disconnects and waits for the read loop to finish.
func (s *Socket) Close() error {
	s.mu.Lock()
	conn := s.conn
	done := s.done
	if conn == nil {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	s.mu.Unlock()

	disconnect, _ := EncodeSocket(SocketDisconnect, nil)
	_ = s.write(conn, disconnect)

	s.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.writeMu.Unlock()
	conn.Close()

	<-done
	return nil
}

func (s *Socket) write(conn *websocket.Conn, msg []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(handshakeTimeout))
	return conn.WriteMessage(websocket.TextMessage, msg)
}
