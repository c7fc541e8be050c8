// Package backend abstracts where frames go and where input comes
// from. The compositor loop talks to a Backend and a render.Renderer;
// neither side knows whether a real display is attached.
package backend

import (
	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/input"
	"github.com/waywardwm/wayward/internal/render"
)

// Output is one place frames can be presented.
type Output struct {
	Name      string
	Size      geometry.Size
	Position  geometry.Point
	Scale     float64
	Transform render.Transform
}

// Geometry converts the output to the renderer's frame target form.
func (o *Output) Geometry() render.OutputGeometry {
	return render.OutputGeometry{
		Name:      o.Name,
		Size:      o.Size,
		Scale:     o.Scale,
		Transform: o.Transform,
	}
}

// Backend is a source of outputs and input events and a sink for
// finished frames.
type Backend interface {
	// Outputs lists the connected outputs. The slice is stable for the
	// backend's lifetime.
	Outputs() []*Output
	// Events delivers input events. The channel closes when the
	// backend is gone; the loop treats that as a shutdown signal.
	Events() <-chan InputEvent
	// Present receives a finished frame. The pixel slice is only valid
	// for the duration of the call. The signature matches the software
	// renderer's present hook so the two wire together directly.
	Present(out render.OutputGeometry, pix []byte) error
	// Close releases the backend and closes the event channel.
	Close() error
}

// InputEvent is a device event produced by a backend. The set of
// implementations is closed.
type InputEvent interface {
	isInputEvent()
}

// PointerMotionEvent moves the pointer to an absolute layout position.
type PointerMotionEvent struct {
	Time uint32
	Pos  geometry.Point
}

// PointerButtonEvent presses or releases a pointer button.
type PointerButtonEvent struct {
	Time    uint32
	Button  uint32
	Pressed bool
}

// PointerAxisEvent scrolls along one axis.
type PointerAxisEvent struct {
	Time  uint32
	Axis  input.Axis
	Value float64
}

// KeyEvent presses or releases a keyboard key.
type KeyEvent struct {
	Time    uint32
	Key     uint32
	Pressed bool
}

// ModifiersEvent replaces the keyboard modifier state.
type ModifiersEvent struct {
	Mods input.Modifiers
}

// TouchDownEvent starts a touch point at an absolute layout position.
type TouchDownEvent struct {
	Time uint32
	Slot int32
	Pos  geometry.Point
}

// TouchMotionEvent moves an active touch point.
type TouchMotionEvent struct {
	Time uint32
	Slot int32
	Pos  geometry.Point
}

// TouchUpEvent ends a touch point.
type TouchUpEvent struct {
	Time uint32
	Slot int32
}

// TouchCancelEvent aborts every active touch point.
type TouchCancelEvent struct {
	Time uint32
}

func (PointerMotionEvent) isInputEvent() {}
func (PointerButtonEvent) isInputEvent() {}
func (PointerAxisEvent) isInputEvent()   {}
func (KeyEvent) isInputEvent()           {}
func (ModifiersEvent) isInputEvent()     {}
func (TouchDownEvent) isInputEvent()     {}
func (TouchMotionEvent) isInputEvent()   {}
func (TouchUpEvent) isInputEvent()       {}
func (TouchCancelEvent) isInputEvent()   {}
