package wm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/shm"
	"github.com/waywardwm/wayward/internal/surface"
)

// mappedSurface creates a surface with a committed buffer of the given size.
func mappedSurface(t *testing.T, reg *surface.Registry, w, h int32) *surface.Surface {
	t.Helper()

	stride := w * 4
	size := stride * h
	fd, err := shm.CreateAnonymousFile(int64(size))
	require.NoError(t, err)

	pool, err := shm.NewPool(fd, size)
	require.NoError(t, err)
	t.Cleanup(pool.Destroy)

	buf, err := pool.CreateBuffer(0, w, h, stride, shm.FormatARGB8888)
	require.NoError(t, err)
	t.Cleanup(buf.Release)

	s := reg.New(1)
	s.Attach(buf)
	s.Commit()
	return s
}

// mappedWindow creates a toplevel with a committed buffer of the given
// size, placed at origin.
func mappedWindow(t *testing.T, reg *surface.Registry, origin geometry.Point, w, h int32) *Window {
	t.Helper()

	win := NewToplevel(mappedSurface(t, reg, w, h))
	win.MoveTo(origin)
	return win
}

func TestSurfaceAtPrefersTopmost(t *testing.T) {
	reg := surface.NewRegistry()
	st := NewStack()

	a := mappedWindow(t, reg, geometry.Point{}, 64, 64)
	b := mappedWindow(t, reg, geometry.Point{}, 64, 64)
	st.Add(a)
	st.Add(b)

	// Both cover (32,32); the later-added window is on top and wins.
	hit, ok := st.SurfaceAt(geometry.Point{X: 32, Y: 32})
	require.True(t, ok)
	assert.Same(t, b, hit.Window)

	// Raising A flips the answer.
	st.Raise(a)
	hit, ok = st.SurfaceAt(geometry.Point{X: 32, Y: 32})
	require.True(t, ok)
	assert.Same(t, a, hit.Window)
}

func TestSurfaceAtInputRegion(t *testing.T) {
	reg := surface.NewRegistry()
	st := NewStack()

	win := mappedWindow(t, reg, geometry.Point{}, 100, 100)
	region := geometry.Region{{X: 10, Y: 10, W: 30, H: 30}}
	win.Surface().SetInputRegion(&region)
	win.Surface().Commit()
	st.Add(win)

	// Inside the region: the window takes the hit.
	hit, ok := st.SurfaceAt(geometry.Point{X: 20, Y: 20})
	require.True(t, ok)
	assert.Same(t, win, hit.Window)

	// Inside the bounding box but outside the region: no target.
	_, ok = st.SurfaceAt(geometry.Point{X: 5, Y: 5})
	assert.False(t, ok)
}

func TestSurfaceAtInputRegionFallsThrough(t *testing.T) {
	reg := surface.NewRegistry()
	st := NewStack()

	below := mappedWindow(t, reg, geometry.Point{}, 100, 100)
	st.Add(below)

	above := mappedWindow(t, reg, geometry.Point{}, 100, 100)
	region := geometry.Region{{X: 50, Y: 50, W: 50, H: 50}}
	above.Surface().SetInputRegion(&region)
	above.Surface().Commit()
	st.Add(above)

	// The top window rejects the point, so the one underneath takes it.
	hit, ok := st.SurfaceAt(geometry.Point{X: 10, Y: 10})
	require.True(t, ok)
	assert.Same(t, below, hit.Window)
}

func TestSurfaceAtHalfOpenBounds(t *testing.T) {
	reg := surface.NewRegistry()
	st := NewStack()

	win := mappedWindow(t, reg, geometry.Point{X: 10, Y: 10}, 20, 20)
	st.Add(win)

	_, ok := st.SurfaceAt(geometry.Point{X: 29.999, Y: 10})
	assert.True(t, ok, "just inside the right edge should hit")

	_, ok = st.SurfaceAt(geometry.Point{X: 30, Y: 10})
	assert.False(t, ok, "the right edge itself should miss")
}

func TestSurfaceAtLocalCoordinates(t *testing.T) {
	reg := surface.NewRegistry()
	st := NewStack()

	win := mappedWindow(t, reg, geometry.Point{X: 100, Y: 50}, 32, 32)
	st.Add(win)

	hit, ok := st.SurfaceAt(geometry.Point{X: 116, Y: 66})
	require.True(t, ok)
	assert.Equal(t, geometry.Point{X: 16, Y: 16}, hit.Local)
}

func TestSurfaceAtSkipsUnmappedAndMinimized(t *testing.T) {
	reg := surface.NewRegistry()
	st := NewStack()

	// A window whose surface never committed a buffer is unmapped.
	bare := NewToplevel(reg.New(1))
	st.Add(bare)

	_, ok := st.SurfaceAt(geometry.Point{X: 1, Y: 1})
	assert.False(t, ok)

	win := mappedWindow(t, reg, geometry.Point{}, 64, 64)
	st.Add(win)
	win.SetMinimized(true)

	_, ok = st.SurfaceAt(geometry.Point{X: 1, Y: 1})
	assert.False(t, ok, "minimized windows are not hit-testable")
	assert.False(t, win.Focusable(), "minimized windows are not focusable")

	win.SetMinimized(false)
	_, ok = st.SurfaceAt(geometry.Point{X: 1, Y: 1})
	assert.True(t, ok)
	assert.True(t, win.Focusable())
}

func TestSurfaceAtEmptyStack(t *testing.T) {
	st := NewStack()
	_, ok := st.SurfaceAt(geometry.Point{X: 0, Y: 0})
	assert.False(t, ok)
}

func TestRaiseMovesWithoutDuplicating(t *testing.T) {
	reg := surface.NewRegistry()
	st := NewStack()

	a := mappedWindow(t, reg, geometry.Point{}, 8, 8)
	b := mappedWindow(t, reg, geometry.Point{}, 8, 8)
	c := mappedWindow(t, reg, geometry.Point{}, 8, 8)
	st.Add(a)
	st.Add(b)
	st.Add(c)

	st.Raise(a)

	assert.Equal(t, 3, st.Len())
	assert.Equal(t, []*Window{b, c, a}, st.Windows())
	assert.Same(t, a, st.Front())

	// Raising the front window is a no-op.
	st.Raise(a)
	assert.Equal(t, []*Window{b, c, a}, st.Windows())
}

func TestRemoveIsIdempotent(t *testing.T) {
	reg := surface.NewRegistry()
	st := NewStack()

	w := mappedWindow(t, reg, geometry.Point{}, 8, 8)
	st.Add(w)
	st.Remove(w)
	st.Remove(w)
	assert.Equal(t, 0, st.Len())
	assert.Nil(t, st.Front())
}

func TestByID(t *testing.T) {
	reg := surface.NewRegistry()
	st := NewStack()

	w := mappedWindow(t, reg, geometry.Point{}, 8, 8)
	st.Add(w)

	got, ok := st.ByID(w.ID())
	require.True(t, ok)
	assert.Same(t, w, got)

	_, ok = st.ByID(99999)
	assert.False(t, ok)
}

func TestPopupStacksAboveParent(t *testing.T) {
	reg := surface.NewRegistry()
	st := NewStack()

	parent := mappedWindow(t, reg, geometry.Point{X: 100, Y: 100}, 64, 64)
	other := mappedWindow(t, reg, geometry.Point{X: 100, Y: 100}, 64, 64)
	st.Add(parent)
	st.Add(other)

	popupWin := NewPopup(mappedSurface(t, reg, 16, 16), parent, geometry.Point{X: 8, Y: 8})
	st.Add(popupWin)

	// The popup's position derives from the parent.
	assert.Equal(t, geometry.Point{X: 108, Y: 108}, popupWin.Surface().Position())

	// Raising the parent carries the popup along, above it.
	st.Raise(parent)
	ws := st.Windows()
	assert.Equal(t, []*Window{other, parent, popupWin}, ws)

	// The popup wins hits over the parent where they overlap.
	hit, ok := st.SurfaceAt(geometry.Point{X: 110, Y: 110})
	require.True(t, ok)
	assert.Same(t, popupWin, hit.Window)

	// Moving the parent moves the popup.
	parent.MoveTo(geometry.Point{X: 200, Y: 200})
	assert.Equal(t, geometry.Point{X: 208, Y: 208}, popupWin.Surface().Position())
}
