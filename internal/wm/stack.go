package wm

import (
	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/surface"
)

// Hit is a successful hit-test: the window and surface under the point and
// the point translated to surface-local coordinates.
type Hit struct {
	Window  *Window
	Surface *surface.Surface
	Local   geometry.Point
}

// Stack is the single stacking order for all windows. The slice runs
// back-to-front: the last entry is the topmost window. Rendering walks it
// forward (painter's algorithm), hit-testing walks it backward (topmost
// first). Mutated only from the compositor loop goroutine.
type Stack struct {
	windows []*Window
}

// NewStack returns an empty stacking space.
func NewStack() *Stack {
	return &Stack{}
}

// Add puts the window on top of the stack.
func (st *Stack) Add(w *Window) {
	st.windows = append(st.windows, w)
}

// Remove drops the window from the stack. Unknown windows are a no-op so
// destroy paths stay idempotent.
func (st *Stack) Remove(w *Window) {
	for i, v := range st.windows {
		if v == w {
			st.windows = append(st.windows[:i], st.windows[i+1:]...)
			return
		}
	}
}

// Raise moves the window to the front without duplicating its entry, then
// keeps its popup children above it in their existing relative order.
func (st *Stack) Raise(w *Window) {
	for i := len(st.windows) - 1; i >= 0; i-- {
		if st.windows[i] == w {
			st.windows = append(st.windows[:i], st.windows[i+1:]...)
			st.windows = append(st.windows, w)
			break
		}
	}
	for _, c := range w.children {
		st.Raise(c)
	}
}

// Windows returns the stack back-to-front. Callers must not mutate it.
func (st *Stack) Windows() []*Window {
	return st.windows
}

// Front returns the topmost window, nil for an empty stack.
func (st *Stack) Front() *Window {
	if len(st.windows) == 0 {
		return nil
	}
	return st.windows[len(st.windows)-1]
}

// Len returns the number of stacked windows.
func (st *Stack) Len() int {
	return len(st.windows)
}

// ByID finds a stacked window by id.
func (st *Stack) ByID(id uint64) (*Window, bool) {
	for _, w := range st.windows {
		if w.ID() == id {
			return w, true
		}
	}
	return nil, false
}

// SurfaceAt resolves the topmost surface under the global point. It walks
// the stack front-to-back and returns the first window whose bounding box
// and input region both contain the point; Z-order already encodes
// priority, so the search stops at the first match. Unmapped, minimized
// and zero-area windows are skipped. An empty stack or a miss returns
// ok=false, never an error.
func (st *Stack) SurfaceAt(p geometry.Point) (Hit, bool) {
	for i := len(st.windows) - 1; i >= 0; i-- {
		w := st.windows[i]
		if !w.HitTestable() {
			continue
		}
		bounds := w.Bounds()
		if bounds.Empty() || !bounds.Contains(p) {
			continue
		}
		local := p.Sub(geometry.Point{X: bounds.X, Y: bounds.Y})
		if !w.surface.InputAccepts(local) {
			continue
		}
		return Hit{Window: w, Surface: w.surface, Local: local}, true
	}
	return Hit{}, false
}
