package apitest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"storedesk/internal/realtime"
)

// Hub is a small socket.io server: it completes the handshake, tracks
// join_store rooms and lets the caller push events into a room.
type Hub struct {
	upgrader websocket.Upgrader

	// RefuseConnect makes the hub answer the socket.io connect with an error.
	RefuseConnect bool
	PingInterval  time.Duration
	PingTimeout   time.Duration

	mu      sync.Mutex
	clients map[*peer]struct{}
	rooms   map[string]map[*peer]struct{}
	events  []string
	pongs   atomic.Int64
}

type peer struct {
	sid     string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (p *peer) send(msg []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteMessage(websocket.TextMessage, msg)
}

func NewHub() *Hub {
	return &Hub{
		upgrader:     websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		PingInterval: 25 * time.Second,
		PingTimeout:  20 * time.Second,
		clients:      make(map[*peer]struct{}),
		rooms:        make(map[string]map[*peer]struct{}),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
		http.Error(w, "unsupported transport", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Socket upgrade failed", "error", err)
		return
	}

	p := &peer{sid: uuid.NewString(), conn: conn}
	open, _ := json.Marshal(realtime.Handshake{
		SID:          p.sid,
		Upgrades:     []string{},
		PingInterval: int(h.PingInterval / time.Millisecond),
		PingTimeout:  int(h.PingTimeout / time.Millisecond),
		MaxPayload:   1 << 20,
	})
	if err := p.send(append([]byte{realtime.EngineOpen}, open...)); err != nil {
		conn.Close()
		return
	}

	h.serve(p)
}

func (h *Hub) serve(p *peer) {
	defer h.drop(p)

	for {
		_, msg, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		f, err := realtime.ParseFrame(msg)
		if err != nil {
			continue
		}
		switch f.Engine {
		case realtime.EnginePong:
			h.pongs.Add(1)
		case realtime.EngineClose:
			return
		case realtime.EngineMessage:
			switch f.Socket {
			case realtime.SocketConnect:
				if h.RefuseConnect {
					refuse, _ := realtime.EncodeSocket(realtime.SocketConnectError, map[string]string{"message": "not authorized"})
					_ = p.send(refuse)
					return
				}
				ack, _ := realtime.EncodeSocket(realtime.SocketConnect, map[string]string{"sid": p.sid})
				h.mu.Lock()
				h.clients[p] = struct{}{}
				h.mu.Unlock()
				if err := p.send(ack); err != nil {
					return
				}
			case realtime.SocketDisconnect:
				return
			case realtime.SocketEvent:
				h.handleEvent(p, f)
			}
		}
	}
}

func (h *Hub) handleEvent(p *peer, f realtime.Frame) {
	name, args, err := f.Event()
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, name)

	if name != realtime.EventJoinStore || len(args) == 0 {
		return
	}
	var room string
	if err := json.Unmarshal(args[0], &room); err != nil {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*peer]struct{})
	}
	h.rooms[room][p] = struct{}{}
}

func (h *Hub) drop(p *peer) {
	h.mu.Lock()
	delete(h.clients, p)
	for _, members := range h.rooms {
		delete(members, p)
	}
	h.mu.Unlock()
	p.conn.Close()
}

// Emit sends an event to every client in room and returns how many got it.
func (h *Hub) Emit(room, event string, args ...any) int {
	msg, err := realtime.EncodeEvent(event, args...)
	if err != nil {
		return 0
	}
	sent := 0
	for _, p := range h.members(room) {
		if p.send(msg) == nil {
			sent++
		}
	}
	return sent
}

// Ping sends an engine.io ping to every connected client.
func (h *Hub) Ping() {
	for _, p := range h.all() {
		_ = p.send([]byte{realtime.EnginePing})
	}
}

// Kick disconnects every connected client from the server side.
func (h *Hub) Kick() {
	msg, _ := realtime.EncodeSocket(realtime.SocketDisconnect, nil)
	for _, p := range h.all() {
		_ = p.send(msg)
	}
}

func (h *Hub) Pongs() int {
	return int(h.pongs.Load())
}

// Events lists the names of events received from clients, in order.
func (h *Hub) Events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// WaitJoin blocks until some client has joined room.
func (h *Hub) WaitJoin(ctx context.Context, room string) error {
	return h.wait(ctx, func() bool { return len(h.rooms[room]) > 0 })
}

// WaitClients blocks until exactly n clients are connected.
func (h *Hub) WaitClients(ctx context.Context, n int) error {
	return h.wait(ctx, func() bool { return len(h.clients) == n })
}

func (h *Hub) wait(ctx context.Context, cond func() bool) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		h.mu.Lock()
		ok := cond()
		h.mu.Unlock()
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (h *Hub) members(room string) []*peer {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*peer, 0, len(h.rooms[room]))
	for p := range h.rooms[room] {
		out = append(out, p)
	}
	return out
}

func (h *Hub) all() []*peer {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*peer, 0, len(h.clients))
	for p := range h.clients {
		out = append(out, p)
	}
	return out
}
