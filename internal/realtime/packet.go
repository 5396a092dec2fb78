package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// engine.io v4 packet types
const (
	EngineOpen    byte = '0'
	EngineClose   byte = '1'
	EnginePing    byte = '2'
	EnginePong    byte = '3'
	EngineMessage byte = '4'
)

// socket.io v5 packet types, carried inside an engine.io message
const (
	SocketConnect      byte = '0'
	SocketDisconnect   byte = '1'
	SocketEvent        byte = '2'
	SocketConnectError byte = '4'
)

var ErrMalformedFrame = errors.New("malformed frame")

// Frame is one websocket message split into its engine.io and socket.io
// layers. Socket is zero for anything other than an engine.io message.
type Frame struct {
	Engine  byte
	Socket  byte
	Payload []byte
}

func ParseFrame(msg []byte) (Frame, error) {
	if len(msg) == 0 {
		return Frame{}, ErrMalformedFrame
	}
	f := Frame{Engine: msg[0], Payload: msg[1:]}
	if f.Engine != EngineMessage {
		return f, nil
	}
	if len(f.Payload) == 0 {
		return Frame{}, ErrMalformedFrame
	}
	f.Socket = f.Payload[0]
	f.Payload = f.Payload[1:]
	return f, nil
}

// Event decodes an event payload of the form ["name", arg...]. A leading
// namespace ("/admin,") and ack id ("12") are skipped.
func (f Frame) Event() (string, []json.RawMessage, error) {
	if f.Engine != EngineMessage || f.Socket != SocketEvent {
		return "", nil, fmt.Errorf("not an event frame: %q%q", f.Engine, f.Socket)
	}
	payload := f.Payload
	if len(payload) > 0 && payload[0] == '/' {
		i := bytes.IndexByte(payload, ',')
		if i < 0 {
			return "", nil, fmt.Errorf("%w: namespace without payload", ErrMalformedFrame)
		}
		payload = payload[i+1:]
	}
	for len(payload) > 0 && payload[0] >= '0' && payload[0] <= '9' {
		payload = payload[1:]
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(payload, &parts); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if len(parts) == 0 {
		return "", nil, ErrMalformedFrame
	}
	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, fmt.Errorf("%w: event name: %v", ErrMalformedFrame, err)
	}
	return name, parts[1:], nil
}

func EncodeEvent(event string, args ...any) ([]byte, error) {
	parts := make([]any, 0, len(args)+1)
	parts = append(parts, event)
	parts = append(parts, args...)
	body, err := json.Marshal(parts)
	if err != nil {
		return nil, err
	}
	return append([]byte{EngineMessage, SocketEvent}, body...), nil
}

// EncodeSocket builds a socket.io control packet such as connect or
// disconnect, with an optional JSON payload.
func EncodeSocket(typ byte, payload any) ([]byte, error) {
	msg := []byte{EngineMessage, typ}
	if payload == nil {
		return msg, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return append(msg, body...), nil
}

// Handshake is the engine.io open packet payload.
type Handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload,omitempty"`
}
