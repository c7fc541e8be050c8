// Package ipc is the control plane: a unix socket speaking
// length-prefixed JSON, used by wayward-ctl to inspect and drive a
// running compositor. It is not the client protocol; surfaces and
// buffers never travel here.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Commands understood by the control socket.
const (
	CmdStatus  = "status"
	CmdWindows = "windows"
	CmdFocus   = "focus"
	CmdClose   = "close"
	CmdInject  = "inject"
)

// Inject event types.
const (
	InjectPointerMotion = "pointer-motion"
	InjectPointerButton = "pointer-button"
	InjectKey           = "key"
	InjectTouchDown     = "touch-down"
	InjectTouchUp       = "touch-up"
)

// maxMessageSize bounds a single frame so a broken peer cannot make
// the reader allocate unbounded memory.
const maxMessageSize = 1 << 20

// Request is one control command.
type Request struct {
	Command  string         `json:"command"`
	WindowID uint64         `json:"window_id,omitempty"`
	Inject   *InjectRequest `json:"inject,omitempty"`
}

// InjectRequest synthesizes one input event, for scripting and tests
// against a headless compositor.
type InjectRequest struct {
	Type    string  `json:"type"`
	Time    uint32  `json:"time,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	Button  uint32  `json:"button,omitempty"`
	Key     uint32  `json:"key,omitempty"`
	Pressed bool    `json:"pressed,omitempty"`
	Slot    int32   `json:"slot,omitempty"`
}

// Response wraps every reply.
type Response struct {
	OK      bool         `json:"ok"`
	Error   string       `json:"error,omitempty"`
	Status  *Status      `json:"status,omitempty"`
	Windows []WindowInfo `json:"windows,omitempty"`
}

// Status is the compositor-wide state summary.
type Status struct {
	Display       string       `json:"display"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Clients       int          `json:"clients"`
	Surfaces      int          `json:"surfaces"`
	Windows       int          `json:"windows"`
	Serial        uint32       `json:"serial"`
	Outputs       []OutputInfo `json:"outputs"`
}

// OutputInfo describes one output.
type OutputInfo struct {
	Name   string  `json:"name"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Scale  float64 `json:"scale"`
	Frames int     `json:"frames"`
}

// WindowInfo describes one window, back-to-front stacking order.
type WindowInfo struct {
	ID         uint64  `json:"id"`
	Client     uint64  `json:"client"`
	Title      string  `json:"title,omitempty"`
	AppID      string  `json:"app_id,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          int     `json:"w"`
	H          int     `json:"h"`
	Mapped     bool    `json:"mapped"`
	Activated  bool    `json:"activated"`
	Maximized  bool    `json:"maximized"`
	Fullscreen bool    `json:"fullscreen"`
	Minimized  bool    `json:"minimized"`
	Popup      bool    `json:"popup"`
}

// Handler processes control commands on the compositor side.
// Implementations must be safe to call from the IPC goroutines.
type Handler interface {
	Status() Status
	Windows() []WindowInfo
	FocusWindow(id uint64) error
	CloseWindow(id uint64) error
	Inject(req InjectRequest) error
}

// writeMessage writes one length-prefixed JSON frame.
func writeMessage(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if len(data) > maxMessageSize {
		return fmt.Errorf("message too large: %d bytes", len(data))
	}

	if err := binary.Write(w, binary.BigEndian, uint32(len(data))); err != nil {
		return fmt.Errorf("failed to write message length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write message data: %w", err)
	}
	return nil
}

// readMessage reads one length-prefixed JSON frame into v.
func readMessage(r io.Reader, v any) error {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return fmt.Errorf("failed to read message length: %w", err)
	}
	if length > maxMessageSize {
		return fmt.Errorf("message too large: %d bytes", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("failed to read message data: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return nil
}
