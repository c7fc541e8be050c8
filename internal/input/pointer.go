package input

import (
	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/wm"
)

// Pointer tracks the global cursor position and which surface holds
// pointer focus. Focus follows the cursor: every motion re-runs the
// hit-test and emits leave/enter pairs on change.
type Pointer struct {
	seat  *Seat
	pos   geometry.Point
	focus uint64
}

// Position returns the current global cursor position.
func (p *Pointer) Position() geometry.Point { return p.pos }

// Focus returns the pointer-focused surface id, ok=false when no live
// surface holds focus.
func (p *Pointer) Focus() (uint64, bool) {
	if !p.seat.alive(p.focus) {
		return 0, false
	}
	return p.focus, true
}

// Motion moves the cursor to a new global position, re-resolves focus and
// delivers the motion to the focused surface in its local coordinates.
// Leave and enter each consume a serial; the motion itself carries only
// the timestamp.
func (p *Pointer) Motion(time uint32, pos geometry.Point) {
	p.pos = pos

	hit, ok := p.updateFocus()
	if ok && p.seat.alive(p.focus) {
		p.seat.sink.PointerMotion(p.focus, time, hit.Local)
	}
}

// Refresh re-resolves focus after the scene changed under a stationary
// cursor. Only leave and enter can result; the cursor has not moved, so
// no motion is delivered.
func (p *Pointer) Refresh() {
	p.updateFocus()
}

// updateFocus re-runs the hit-test at the current position and shifts
// focus to the surface under it, emitting leave and enter with fresh
// serials on change.
func (p *Pointer) updateFocus() (wm.Hit, bool) {
	hit, ok := p.seat.stack.SurfaceAt(p.pos)
	var next uint64
	if ok {
		next = hit.Surface.ID()
	}

	if next != p.focus {
		if p.seat.alive(p.focus) {
			p.seat.sink.PointerLeave(p.focus, p.seat.NextSerial())
		}
		p.focus = next
		if next != 0 {
			p.seat.sink.PointerEnter(next, p.seat.NextSerial(), hit.Local)
		}
	}
	return hit, ok
}

// Button delivers a button event to the pointer-focused surface and
// returns the hit under the cursor so the caller can apply click-to-focus
// policy on a press. ok=false means the press landed on empty space.
func (p *Pointer) Button(time, button uint32, pressed bool) (wm.Hit, bool) {
	hit, ok := p.seat.stack.SurfaceAt(p.pos)

	if p.seat.alive(p.focus) {
		p.seat.sink.PointerButton(p.focus, p.seat.NextSerial(), time, button, pressed)
	}
	return hit, ok
}

// Axis delivers a scroll event to the pointer-focused surface.
func (p *Pointer) Axis(time uint32, axis Axis, value float64) {
	if p.seat.alive(p.focus) {
		p.seat.sink.PointerAxis(p.focus, p.seat.NextSerial(), time, axis, value)
	}
}
