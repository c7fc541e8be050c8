// Package input implements the per-seat pointer, keyboard and touch focus
// state machines. The three device classes are independent except for the
// shared serial counter and the surface registry they validate focus
// against. Everything here runs on the compositor loop goroutine.
package input

import (
	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/surface"
	"github.com/waywardwm/wayward/internal/wm"
)

// Axis is a scroll axis.
type Axis uint32

const (
	AxisVertical Axis = iota
	AxisHorizontal
)

// Modifiers is the keyboard modifier state delivered on focus enter and on
// every change.
type Modifiers struct {
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

// HitTester resolves the topmost surface under a global point. The
// window stack implements it.
type HitTester interface {
	SurfaceAt(p geometry.Point) (wm.Hit, bool)
}

// EventSink receives the events the seat emits toward clients. The
// compositor implements it by translating surface ids to the owning
// client connection. Every target surface id passed in is live at call
// time; the sink never sees a dead target.
type EventSink interface {
	PointerEnter(surfaceID uint64, serial uint32, local geometry.Point)
	PointerLeave(surfaceID uint64, serial uint32)
	PointerMotion(surfaceID uint64, time uint32, local geometry.Point)
	PointerButton(surfaceID uint64, serial, time, button uint32, pressed bool)
	PointerAxis(surfaceID uint64, serial, time uint32, axis Axis, value float64)

	KeyboardEnter(surfaceID uint64, serial uint32, keys []uint32)
	KeyboardLeave(surfaceID uint64, serial uint32)
	KeyboardKey(surfaceID uint64, serial, time, key uint32, pressed bool)
	KeyboardModifiers(surfaceID uint64, serial uint32, mods Modifiers)

	TouchDown(surfaceID uint64, serial, time uint32, slot int32, local geometry.Point)
	TouchUp(surfaceID uint64, serial, time uint32, slot int32)
	TouchMotion(surfaceID uint64, time uint32, slot int32, local geometry.Point)
	TouchCancel(surfaceID uint64, serial uint32, slot int32)
}

// Seat bundles one set of input devices and their focus state. Focus
// fields hold surface ids, not pointers: liveness is checked against the
// registry before every dispatch, so a destroyed surface can never be
// dispatched to or keep itself alive through a stale focus reference.
type Seat struct {
	name     string
	serial   uint32
	registry *surface.Registry
	stack    HitTester
	sink     EventSink

	pointer  *Pointer
	keyboard *Keyboard
	touch    *Touch
}

// NewSeat creates a seat resolving hits against stack and validating
// focus against registry.
func NewSeat(name string, registry *surface.Registry, stack HitTester, sink EventSink) *Seat {
	s := &Seat{
		name:     name,
		registry: registry,
		stack:    stack,
		sink:     sink,
	}
	s.pointer = &Pointer{seat: s}
	s.keyboard = &Keyboard{seat: s, pressed: make(map[uint32]struct{})}
	s.touch = &Touch{seat: s, slots: make(map[int32]uint64)}
	return s
}

// Name returns the seat name.
func (s *Seat) Name() string { return s.name }

// Pointer returns the seat's pointer state machine.
func (s *Seat) Pointer() *Pointer { return s.pointer }

// Keyboard returns the seat's keyboard state machine.
func (s *Seat) Keyboard() *Keyboard { return s.keyboard }

// Touch returns the seat's touch state machine.
func (s *Seat) Touch() *Touch { return s.touch }

// NextSerial hands out the next value of the seat's monotonically
// increasing counter. Input events and configure proposals share it, so
// relative ordering across subsystems is recoverable by comparing serials.
func (s *Seat) NextSerial() uint32 {
	s.serial++
	return s.serial
}

// Serial returns the last issued serial without consuming one.
func (s *Seat) Serial() uint32 { return s.serial }

// HandleSurfaceDestroyed clears every focus reference to the surface in
// the same step as its destruction. No leave events are emitted; the
// target is already gone.
func (s *Seat) HandleSurfaceDestroyed(id uint64) {
	if s.pointer.focus == id {
		s.pointer.focus = 0
	}
	if s.keyboard.focus == id {
		s.keyboard.focus = 0
	}
	for slot, sid := range s.touch.slots {
		if sid == id {
			delete(s.touch.slots, slot)
		}
	}
}

// alive reports whether id names a live registered surface. Focus id 0
// means "no focus" and is never alive.
func (s *Seat) alive(id uint64) bool {
	return id != 0 && s.registry.Alive(id)
}
