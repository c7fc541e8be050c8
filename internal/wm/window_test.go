package wm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/surface"
)

func TestConfigureAckHandshake(t *testing.T) {
	reg := surface.NewRegistry()
	win := NewToplevel(reg.New(1))

	_, ok := win.AckedSize()
	assert.False(t, ok, "no geometry is authoritative before the first ack")

	win.PushConfigure(10, geometry.Size{W: 640, H: 480}, States{})
	win.PushConfigure(11, geometry.Size{W: 800, H: 600}, States{Maximized: true})
	win.PushConfigure(12, geometry.Size{W: 1024, H: 768}, States{})

	// Acking a serial resolves it and discards older pending configures.
	cfg, ok := win.AckConfigure(11)
	require.True(t, ok)
	assert.Equal(t, geometry.Size{W: 800, H: 600}, cfg.Size)
	assert.True(t, cfg.States.Maximized)

	size, ok := win.AckedSize()
	require.True(t, ok)
	assert.Equal(t, geometry.Size{W: 800, H: 600}, size)

	remaining := win.PendingConfigures()
	require.Len(t, remaining, 1)
	assert.Equal(t, uint32(12), remaining[0].Serial)
}

func TestAckUnknownSerialIgnored(t *testing.T) {
	reg := surface.NewRegistry()
	win := NewToplevel(reg.New(1))

	win.PushConfigure(5, geometry.Size{W: 100, H: 100}, States{})

	_, ok := win.AckConfigure(99)
	assert.False(t, ok)
	assert.Len(t, win.PendingConfigures(), 1, "stale acks must not disturb the queue")

	_, ok = win.AckedSize()
	assert.False(t, ok)
}

func TestAckSameSerialTwice(t *testing.T) {
	reg := surface.NewRegistry()
	win := NewToplevel(reg.New(1))

	win.PushConfigure(7, geometry.Size{W: 320, H: 240}, States{})

	_, ok := win.AckConfigure(7)
	require.True(t, ok)

	// The serial was consumed; a repeat ack finds nothing.
	_, ok = win.AckConfigure(7)
	assert.False(t, ok)
}

func TestMaximizeSavesAndRestoresGeometry(t *testing.T) {
	reg := surface.NewRegistry()
	win := NewToplevel(mappedSurface(t, reg, 32, 32))
	win.MoveTo(geometry.Point{X: 50, Y: 60})

	win.SetMaximized(true)
	assert.True(t, win.Maximized())

	// The compositor repositions the window for the maximized layout.
	win.MoveTo(geometry.Point{})
	require.Equal(t, geometry.Point{}, win.Surface().Position())

	win.SetMaximized(false)
	assert.False(t, win.Maximized())
	assert.Equal(t, geometry.Point{X: 50, Y: 60}, win.Surface().Position())
}

func TestFullscreenDoesNotClobberMaximizedSave(t *testing.T) {
	reg := surface.NewRegistry()
	win := NewToplevel(mappedSurface(t, reg, 32, 32))
	win.MoveTo(geometry.Point{X: 10, Y: 20})

	win.SetMaximized(true)
	win.MoveTo(geometry.Point{})

	// Entering fullscreen from maximized keeps the original floating save.
	win.SetFullscreen(true)
	win.SetFullscreen(false)
	assert.Equal(t, geometry.Point{}, win.Surface().Position(), "still maximized, no restore yet")

	win.SetMaximized(false)
	assert.Equal(t, geometry.Point{X: 10, Y: 20}, win.Surface().Position())
}

func TestWindowMetadata(t *testing.T) {
	reg := surface.NewRegistry()
	win := NewToplevel(reg.New(1))

	win.SetTitle("editor")
	win.SetAppID("org.example.editor")
	win.SetTiled(TiledLeft | TiledTop)
	win.SetDecoration(DecorationServerSide)
	win.SetActivated(true)

	assert.Equal(t, "editor", win.Title())
	assert.Equal(t, "org.example.editor", win.AppID())
	assert.Equal(t, TiledLeft|TiledTop, win.Tiled())
	assert.Equal(t, DecorationServerSide, win.Decoration())

	states := win.CurrentStates()
	assert.True(t, states.Activated)
	assert.Equal(t, TiledLeft|TiledTop, states.Tiled)
	assert.False(t, states.Maximized)
}

func TestRemoveChild(t *testing.T) {
	reg := surface.NewRegistry()
	parent := NewToplevel(mappedSurface(t, reg, 64, 64))
	popup := NewPopup(mappedSurface(t, reg, 16, 16), parent, geometry.Point{X: 4, Y: 4})

	require.Len(t, parent.Children(), 1)
	assert.True(t, popup.IsPopup())
	assert.Same(t, parent, popup.Parent())

	parent.RemoveChild(popup)
	assert.Empty(t, parent.Children())

	parent.RemoveChild(popup)
	assert.Empty(t, parent.Children())
}
