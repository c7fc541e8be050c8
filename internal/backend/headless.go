package backend

import (
	"errors"
	"sync"

	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/render"
)

// ErrBackendClosed is returned when a frame is presented to a closed
// backend.
var ErrBackendClosed = errors.New("backend closed")

const eventQueueDepth = 256

// Frame is the last presented frame of one output.
type Frame struct {
	Geometry render.OutputGeometry
	Pix      []byte
}

// Headless is a backend with no display hardware. Frames land in
// memory and input comes from Inject calls, which makes it the test
// and CI backend as well as the base for remote screencasting.
type Headless struct {
	outputs []*Output
	events  chan InputEvent

	mu     sync.Mutex
	frames map[string]*Frame
	counts map[string]int
	closed bool
}

// NewHeadless creates a headless backend over the given outputs. With
// no outputs a single 1280x720 output named HEADLESS-1 is created.
func NewHeadless(outputs ...*Output) *Headless {
	if len(outputs) == 0 {
		outputs = []*Output{{
			Name:  "HEADLESS-1",
			Size:  geometry.Size{W: 1280, H: 720},
			Scale: 1,
		}}
	}
	return &Headless{
		outputs: outputs,
		events:  make(chan InputEvent, eventQueueDepth),
		frames:  make(map[string]*Frame),
		counts:  make(map[string]int),
	}
}

func (h *Headless) Outputs() []*Output {
	return h.outputs
}

func (h *Headless) Events() <-chan InputEvent {
	return h.events
}

// Present stores a copy of the frame as the output's latest.
func (h *Headless) Present(out render.OutputGeometry, pix []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrBackendClosed
	}

	cp := make([]byte, len(pix))
	copy(cp, pix)
	h.frames[out.Name] = &Frame{Geometry: out, Pix: cp}
	h.counts[out.Name]++
	return nil
}

// LastFrame returns the most recently presented frame for an output.
// The returned frame is a snapshot; callers must not modify it.
func (h *Headless) LastFrame(name string) (*Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.frames[name]
	return f, ok
}

// FrameCount reports how many frames an output has presented.
func (h *Headless) FrameCount(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[name]
}

// Close shuts the backend down and closes the event channel. Safe to
// call more than once.
func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	close(h.events)
	return nil
}

// Inject queues an input event. Events are dropped when the queue is
// full or the backend is closed, never blocking the caller.
func (h *Headless) Inject(ev InputEvent) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	select {
	case h.events <- ev:
		return true
	default:
		return false
	}
}

func (h *Headless) InjectPointerMotion(time uint32, pos geometry.Point) bool {
	return h.Inject(PointerMotionEvent{Time: time, Pos: pos})
}

func (h *Headless) InjectPointerButton(time, button uint32, pressed bool) bool {
	return h.Inject(PointerButtonEvent{Time: time, Button: button, Pressed: pressed})
}

func (h *Headless) InjectKey(time, key uint32, pressed bool) bool {
	return h.Inject(KeyEvent{Time: time, Key: key, Pressed: pressed})
}

func (h *Headless) InjectTouchDown(time uint32, slot int32, pos geometry.Point) bool {
	return h.Inject(TouchDownEvent{Time: time, Slot: slot, Pos: pos})
}

func (h *Headless) InjectTouchUp(time uint32, slot int32) bool {
	return h.Inject(TouchUpEvent{Time: time, Slot: slot})
}
