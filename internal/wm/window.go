// Package wm wraps toplevel surfaces with window-manager state and keeps
// the Z-ordered stacking space used for both rendering and hit-testing.
package wm

import (
	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/surface"
)

// DecorationMode says who draws the window frame.
type DecorationMode int

const (
	DecorationClientSide DecorationMode = iota
	DecorationServerSide
)

func (m DecorationMode) String() string {
	if m == DecorationServerSide {
		return "server-side"
	}
	return "client-side"
}

// TiledEdges is the set of screen edges a window is tiled against.
type TiledEdges uint8

const (
	TiledLeft TiledEdges = 1 << iota
	TiledRight
	TiledTop
	TiledBottom
)

// States is the window state snapshot carried by a configure.
type States struct {
	Activated  bool
	Maximized  bool
	Fullscreen bool
	Resizing   bool
	Tiled      TiledEdges
}

// Configure is one entry of the configure/ack handshake: the compositor
// proposes a size and state set under a serial, and the client acks that
// exact serial once it has committed a matching buffer.
type Configure struct {
	Serial uint32
	Size   geometry.Size
	States States
}

// Window wraps a toplevel-role surface with window-manager semantics.
// Popup windows share the type, carrying a parent reference and an offset
// instead of toplevel state.
type Window struct {
	surface *surface.Surface

	title string
	appID string

	activated  bool
	maximized  bool
	fullscreen bool
	minimized  bool
	tiled      TiledEdges
	decoration DecorationMode

	parent   *Window
	children []*Window
	// popupOffset positions a popup relative to its parent's origin.
	popupOffset geometry.Point

	// saved remembers the floating geometry to restore when leaving
	// maximized or fullscreen.
	saved geometry.Rect

	// pending holds unacknowledged configures, oldest first. acked is the
	// last acknowledged size and is the window's authoritative geometry
	// for interaction purposes.
	pending []Configure
	acked   geometry.Size
	hasAck  bool
}

// NewToplevel gives a surface the toplevel window role.
func NewToplevel(s *surface.Surface) *Window {
	return &Window{surface: s}
}

// NewPopup gives a surface the popup role, positioned relative to parent.
func NewPopup(s *surface.Surface, parent *Window, offset geometry.Point) *Window {
	w := &Window{surface: s, parent: parent, popupOffset: offset}
	parent.children = append(parent.children, w)
	w.reposition()
	return w
}

// ID identifies the window by its surface id; a window lives and dies with
// its surface's role.
func (w *Window) ID() uint64 { return w.surface.ID() }

// Surface returns the wrapped surface.
func (w *Window) Surface() *surface.Surface { return w.surface }

// Parent returns the parent for popup windows, nil for toplevels.
func (w *Window) Parent() *Window { return w.parent }

// Children returns the window's popup children.
func (w *Window) Children() []*Window { return w.children }

// IsPopup reports whether the window has the popup role.
func (w *Window) IsPopup() bool { return w.parent != nil }

// Title returns the client-set window title.
func (w *Window) Title() string { return w.title }

// SetTitle records the client-set title.
func (w *Window) SetTitle(title string) { w.title = title }

// AppID returns the client-set application id.
func (w *Window) AppID() string { return w.appID }

// SetAppID records the client-set application id.
func (w *Window) SetAppID(id string) { w.appID = id }

// Activated reports whether the window shows keyboard-focus highlight.
func (w *Window) Activated() bool { return w.activated }

// SetActivated flips the keyboard-focus highlight. The caller owns the
// matching configure.
func (w *Window) SetActivated(on bool) { w.activated = on }

// Maximized reports the maximized state.
func (w *Window) Maximized() bool { return w.maximized }

// SetMaximized flips the maximized state, saving or restoring the floating
// geometry.
func (w *Window) SetMaximized(on bool) {
	if on && !w.maximized && !w.fullscreen {
		w.saved = w.surface.Bounds()
	}
	w.maximized = on
	if !on && !w.fullscreen {
		w.restoreSaved()
	}
}

// Fullscreen reports the fullscreen state.
func (w *Window) Fullscreen() bool { return w.fullscreen }

// SetFullscreen flips the fullscreen state, saving or restoring the
// floating geometry.
func (w *Window) SetFullscreen(on bool) {
	if on && !w.fullscreen && !w.maximized {
		w.saved = w.surface.Bounds()
	}
	w.fullscreen = on
	if !on && !w.maximized {
		w.restoreSaved()
	}
}

func (w *Window) restoreSaved() {
	if w.saved.Empty() {
		return
	}
	w.MoveTo(geometry.Point{X: w.saved.X, Y: w.saved.Y})
}

// SavedGeometry returns the floating geometry remembered for restore,
// zero until the window first leaves the floating state.
func (w *Window) SavedGeometry() geometry.Rect { return w.saved }

// Minimized reports the minimized state.
func (w *Window) Minimized() bool { return w.minimized }

// SetMinimized flips the minimized state. Minimized windows stay in the
// stack but are neither hit-testable nor focusable.
func (w *Window) SetMinimized(on bool) { w.minimized = on }

// Tiled returns the tiled edge set.
func (w *Window) Tiled() TiledEdges { return w.tiled }

// SetTiled records the tiled edge set.
func (w *Window) SetTiled(edges TiledEdges) { w.tiled = edges }

// Decoration returns the negotiated decoration mode.
func (w *Window) Decoration() DecorationMode { return w.decoration }

// SetDecoration records the negotiated decoration mode.
func (w *Window) SetDecoration(m DecorationMode) { w.decoration = m }

// MoveTo places the window's surface and repositions popup children.
func (w *Window) MoveTo(p geometry.Point) {
	w.surface.MoveTo(p)
	for _, c := range w.children {
		c.reposition()
	}
}

// reposition derives a popup's surface position from its parent.
func (w *Window) reposition() {
	if w.parent == nil {
		return
	}
	w.surface.MoveTo(w.parent.surface.Position().Add(w.popupOffset))
}

// Bounds returns the window's visual extent: the committed surface size at
// the surface position.
func (w *Window) Bounds() geometry.Rect { return w.surface.Bounds() }

// Mapped reports whether the underlying surface has a committed buffer.
func (w *Window) Mapped() bool { return w.surface.Mapped() }

// HitTestable reports whether pointer and touch hit-testing may land on
// the window. Minimized windows are skipped.
func (w *Window) HitTestable() bool { return w.surface.Mapped() && !w.minimized }

// Focusable reports whether the window may take keyboard focus.
// Minimized windows are not focusable.
func (w *Window) Focusable() bool { return w.surface.Mapped() && !w.minimized }

// CurrentStates snapshots the window state for a configure.
func (w *Window) CurrentStates() States {
	return States{
		Activated:  w.activated,
		Maximized:  w.maximized,
		Fullscreen: w.fullscreen,
		Tiled:      w.tiled,
	}
}

// PushConfigure queues a proposed size/state change under the given
// serial. Serials come from the owning seat's counter so acks and input
// events order against each other.
func (w *Window) PushConfigure(serial uint32, size geometry.Size, states States) Configure {
	cfg := Configure{Serial: serial, Size: size, States: states}
	w.pending = append(w.pending, cfg)
	return cfg
}

// AckConfigure resolves the configure with the given serial. Acking a
// serial discards all older pending configures with it. Unknown serials
// are ignored and reported false; the caller decides whether that is a
// protocol violation.
func (w *Window) AckConfigure(serial uint32) (Configure, bool) {
	for i, cfg := range w.pending {
		if cfg.Serial == serial {
			w.pending = w.pending[i+1:]
			w.acked = cfg.Size
			w.hasAck = true
			return cfg, true
		}
	}
	return Configure{}, false
}

// PendingConfigures returns the queued unacknowledged configures.
func (w *Window) PendingConfigures() []Configure { return w.pending }

// AckedSize returns the last acknowledged configure size. Until the first
// ack, the committed surface size is the only geometry and ok is false.
func (w *Window) AckedSize() (geometry.Size, bool) {
	return w.acked, w.hasAck
}

// RemoveChild drops a popup from the parent's child list.
func (w *Window) RemoveChild(child *Window) {
	for i, c := range w.children {
		if c == child {
			w.children = append(w.children[:i], w.children[i+1:]...)
			return
		}
	}
}
