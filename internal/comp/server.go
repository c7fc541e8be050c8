// Package comp is the compositor core: a single-goroutine event loop
// that owns every surface, window and focus structure. Client requests,
// backend input, control commands and frame ticks all funnel into the
// loop, so no compositor state is ever touched concurrently.
package comp

import (
	"context"
	"errors"
	"time"

	"github.com/waywardwm/wayward/internal/backend"
	"github.com/waywardwm/wayward/internal/config"
	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/input"
	"github.com/waywardwm/wayward/internal/logger"
	"github.com/waywardwm/wayward/internal/protocol"
	"github.com/waywardwm/wayward/internal/render"
	"github.com/waywardwm/wayward/internal/shm"
	"github.com/waywardwm/wayward/internal/surface"
	"github.com/waywardwm/wayward/internal/wm"
)

const (
	requestQueueDepth = 256
	controlQueueDepth = 16

	// maxPresentFailures is how many consecutive failed presents are
	// tolerated before the backend is declared gone.
	maxPresentFailures = 3
)

// ErrStopped is returned for calls arriving after the loop exited.
var ErrStopped = errors.New("compositor stopped")

type clientRequest struct {
	client *Client
	req    protocol.Request
}

// Server owns all compositor state. Every field below is loop-private;
// external goroutines reach the loop through AddClient, Submit and the
// control channel only.
type Server struct {
	cfg *config.Config

	registry *surface.Registry
	stack    *wm.Stack
	seat     *input.Seat
	renderer render.Renderer
	backend  backend.Backend

	clients      map[uint64]*Client
	nextClientID uint64

	surfaceOwner map[uint64]*Client
	bufferOwner  map[uint64]*Client

	requests chan clientRequest
	control  chan func()
	done     chan struct{}

	damage          geometry.Region
	needsFrame      bool
	presentFailures int
	// presentedOutputs records which outputs have shown at least one
	// frame; an output's first paint is always a full repaint.
	presentedOutputs map[string]bool

	started time.Time
}

// New assembles a compositor over the given backend and renderer. The
// renderer's present path is expected to feed the backend; wiring the
// two together is the caller's choice.
func New(cfg *config.Config, b backend.Backend, r render.Renderer) *Server {
	s := &Server{
		cfg:              cfg,
		registry:         surface.NewRegistry(),
		stack:            wm.NewStack(),
		renderer:         r,
		backend:          b,
		clients:          make(map[uint64]*Client),
		surfaceOwner:     make(map[uint64]*Client),
		bufferOwner:      make(map[uint64]*Client),
		requests:         make(chan clientRequest, requestQueueDepth),
		control:          make(chan func(), controlQueueDepth),
		done:             make(chan struct{}),
		needsFrame:       true,
		presentedOutputs: make(map[string]bool),
	}
	s.seat = input.NewSeat(cfg.Input.Seat, s.registry, s.stack, s)
	s.seat.Keyboard().SetRepeatInfo(int32(cfg.Input.RepeatRate), int32(cfg.Input.RepeatDelay))
	return s
}

// Run drives the compositor until the context is cancelled or the
// backend goes away. It must be the only goroutine touching compositor
// state.
func (s *Server) Run(ctx context.Context) error {
	s.started = time.Now()
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.Compositor.FrameInterval())
	defer ticker.Stop()

	logger.Infof("compositor running: %d output(s), seat %q, %v/frame",
		len(s.backend.Outputs()), s.seat.Name(), s.cfg.Compositor.FrameInterval())

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil

		case req := <-s.requests:
			s.dispatch(req.client, req.req)

		case fn := <-s.control:
			fn()

		case ev, ok := <-s.backend.Events():
			if !ok {
				logger.Info("backend event stream closed, shutting down")
				s.shutdown()
				return nil
			}
			s.handleInputEvent(ev)

		case <-ticker.C:
			if err := s.frame(); err != nil {
				logger.Errorf("rendering stopped: %v", err)
				s.shutdown()
				return err
			}
		}
	}
}

// AddClient registers a new client connection and returns its handle.
// Fails once the loop has exited.
func (s *Server) AddClient(conn protocol.Conn) (*Client, error) {
	var c *Client
	err := s.do(func() {
		s.nextClientID++
		c = newClient(s.nextClientID, s, conn)
		s.clients[c.id] = c
		logger.Infof("client %d connected", c.id)
	})
	return c, err
}

// Disconnect tears a client down, destroying everything it owns.
// Blocks until the loop has finished the teardown.
func (s *Server) Disconnect(c *Client) {
	_ = s.do(func() { s.teardownClient(c) })
}

// do runs fn on the loop goroutine and waits for it, giving up when
// the loop exits first.
func (s *Server) do(fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		fn()
		close(done)
	}
	select {
	case s.control <- wrapped:
	case <-s.done:
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-s.done:
		return ErrStopped
	}
}

// shutdown tears down every client and the backend.
func (s *Server) shutdown() {
	for _, c := range s.snapshotClients() {
		s.teardownClient(c)
	}
	if err := s.backend.Close(); err != nil {
		logger.Warnf("backend close: %v", err)
	}
}

func (s *Server) snapshotClients() []*Client {
	out := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out
}

// reapClients removes clients whose connection failed mid-send.
func (s *Server) reapClients() {
	for _, c := range s.snapshotClients() {
		if c.gone {
			s.teardownClient(c)
		}
	}
}

// teardownClient destroys everything a client owns: window roles, then
// surfaces, then buffers and pools. Safe to call twice.
func (s *Server) teardownClient(c *Client) {
	if _, ok := s.clients[c.id]; !ok {
		return
	}
	delete(s.clients, c.id)
	c.gone = true

	wins := make([]*wm.Window, 0, len(c.windows))
	for _, w := range c.windows {
		wins = append(wins, w)
	}
	for _, w := range wins {
		s.removeWindow(c, w)
	}

	type surfEntry struct {
		cid  uint32
		surf *surface.Surface
	}
	surfs := make([]surfEntry, 0, len(c.surfaces))
	for cid, surf := range c.surfaces {
		surfs = append(surfs, surfEntry{cid, surf})
	}
	for _, e := range surfs {
		s.destroySurface(c, e.cid, e.surf)
	}

	for _, buf := range c.buffers {
		s.renderer.ClearTextureCache(render.TextureKey{ID: buf.ID()})
		delete(s.bufferOwner, buf.ID())
		buf.Release()
	}
	for _, pool := range c.pools {
		pool.Destroy()
	}

	if err := c.conn.Close(); err != nil {
		logger.Debugf("client %d: connection close: %v", c.id, err)
	}

	s.focusTopmost()
	s.refreshPointer()
	s.scheduleFrame()
	logger.Infof("client %d disconnected", c.id)
}

// destroySurface removes a surface and everything hanging off it. The
// seat is told first so no event can ever target the dead surface;
// focus holders see their focus cleared without any leave event.
func (s *Server) destroySurface(c *Client, cid uint32, surf *surface.Surface) {
	sid := surf.ID()

	// Seat first: focus on the dying surface is dropped without leave
	// events. Children removed below are still alive and do get theirs.
	s.seat.HandleSurfaceDestroyed(sid)

	if win, ok := s.stack.ByID(sid); ok {
		s.removeWindow(c, win)
	}

	if b := surf.Bounds(); !b.Empty() {
		s.addDamage(b)
	}
	if buf := surf.Buffer(); buf != nil {
		s.renderer.ClearTextureCache(render.TextureKey{ID: buf.ID()})
		s.sendBufferRelease(buf)
	}

	s.registry.Remove(sid)
	delete(c.surfaces, cid)
	delete(c.surfaceIDs, sid)
	delete(s.surfaceOwner, sid)
	delete(c.framePending, cid)
	delete(c.frameReady, cid)

	s.focusTopmost()
	s.refreshPointer()
	s.scheduleFrame()
}

// removeWindow drops a window role and its popup descendants from the
// stack. The surfaces stay alive, merely roleless.
func (s *Server) removeWindow(c *Client, win *wm.Window) {
	for _, child := range append([]*wm.Window(nil), win.Children()...) {
		s.removeWindow(c, child)
	}
	if p := win.Parent(); p != nil {
		p.RemoveChild(win)
	}
	s.stack.Remove(win)

	if b := win.Bounds(); !b.Empty() {
		s.addDamage(b)
	}
	if cid, ok := c.windowIDs[win.ID()]; ok {
		delete(c.windows, cid)
		delete(c.windowIDs, win.ID())
	}
	if id, ok := s.seat.Keyboard().Focus(); ok && id == win.Surface().ID() {
		s.seat.Keyboard().SetFocus(0)
	}
	s.scheduleFrame()
}

// sendBufferRelease tells a buffer's owner the compositor is done
// reading it.
func (s *Server) sendBufferRelease(buf *shm.Buffer) {
	owner, ok := s.bufferOwner[buf.ID()]
	if !ok {
		return
	}
	cid, ok := owner.bufferIDs[buf.ID()]
	if !ok {
		return
	}
	owner.send(protocol.BufferReleased{BufferID: cid})
}

// scheduleFrame marks the scene dirty so the next tick renders.
func (s *Server) scheduleFrame() {
	s.needsFrame = true
}

// addDamage records a dirty rect in layout coordinates.
func (s *Server) addDamage(r geometry.Rect) {
	if r.Empty() {
		return
	}
	s.damage = append(s.damage, r)
	s.needsFrame = true
}

// damageWindowTree damages a window and its popup descendants.
func (s *Server) damageWindowTree(win *wm.Window) {
	if b := win.Bounds(); !b.Empty() {
		s.addDamage(b)
	}
	for _, c := range win.Children() {
		s.damageWindowTree(c)
	}
}

// rootWindow walks popup parents up to the owning toplevel.
func rootWindow(win *wm.Window) *wm.Window {
	for win.Parent() != nil {
		win = win.Parent()
	}
	return win
}

// focusWindow moves keyboard focus to win's surface and shifts the
// activated state to its toplevel. nil clears focus.
func (s *Server) focusWindow(win *wm.Window) {
	var target uint64
	if win != nil && win.Focusable() {
		target = win.Surface().ID()
	}

	cur, _ := s.seat.Keyboard().Focus()
	if cur == target {
		return
	}

	var newRoot *wm.Window
	if win != nil && target != 0 {
		newRoot = rootWindow(win)
	}
	if old, ok := s.stack.ByID(cur); ok {
		oldRoot := rootWindow(old)
		if oldRoot.Activated() && oldRoot != newRoot {
			oldRoot.SetActivated(false)
			s.pushConfigure(oldRoot)
		}
	}

	s.seat.Keyboard().SetFocus(target)

	if newRoot != nil && !newRoot.Activated() {
		newRoot.SetActivated(true)
		s.pushConfigure(newRoot)
	}
}

// focusTopmost gives focus to the frontmost focusable toplevel when
// nothing holds keyboard focus.
func (s *Server) focusTopmost() {
	if _, ok := s.seat.Keyboard().Focus(); ok {
		return
	}
	ws := s.stack.Windows()
	for i := len(ws) - 1; i >= 0; i-- {
		if !ws[i].IsPopup() && ws[i].Focusable() {
			s.focusWindow(ws[i])
			return
		}
	}
}

// refreshPointer re-runs the hit-test at the current cursor position
// after the scene changed under a stationary cursor. Only enter and
// leave can result; the cursor has not moved, so no motion is sent.
func (s *Server) refreshPointer() {
	s.seat.Pointer().Refresh()
}

// pushConfigure proposes the window's current size back to it,
// carrying refreshed states.
func (s *Server) pushConfigure(win *wm.Window) {
	size, ok := win.AckedSize()
	if !ok {
		size = win.Surface().Size()
	}
	s.pushConfigureSized(win, size)
}

// pushConfigureSized queues a configure under a fresh seat serial and
// sends it to the owning client.
func (s *Server) pushConfigureSized(win *wm.Window, size geometry.Size) {
	owner, ok := s.surfaceOwner[win.Surface().ID()]
	if !ok {
		return
	}
	cid, ok := owner.windowIDs[win.ID()]
	if !ok {
		return
	}

	serial := s.seat.NextSerial()
	st := win.CurrentStates()
	win.PushConfigure(serial, size, st)
	owner.send(protocol.Configure{
		WindowID: cid,
		Serial:   serial,
		Width:    size.W,
		Height:   size.H,
		States:   stateFlags(st),
	})
}

func stateFlags(st wm.States) protocol.StateFlags {
	var f protocol.StateFlags
	if st.Activated {
		f |= protocol.StateActivated
	}
	if st.Maximized {
		f |= protocol.StateMaximized
	}
	if st.Fullscreen {
		f |= protocol.StateFullscreen
	}
	if st.Resizing {
		f |= protocol.StateResizing
	}
	if st.Tiled&wm.TiledLeft != 0 {
		f |= protocol.StateTiledLeft
	}
	if st.Tiled&wm.TiledRight != 0 {
		f |= protocol.StateTiledRight
	}
	if st.Tiled&wm.TiledTop != 0 {
		f |= protocol.StateTiledTop
	}
	if st.Tiled&wm.TiledBottom != 0 {
		f |= protocol.StateTiledBottom
	}
	return f
}

// primaryOutput is the output maximized and fullscreen windows fill.
func (s *Server) primaryOutput() *backend.Output {
	outs := s.backend.Outputs()
	if len(outs) == 0 {
		return nil
	}
	return outs[0]
}

// handleInputEvent routes one backend event through the seat, applying
// the click-to-focus policy on presses and touch downs.
func (s *Server) handleInputEvent(ev backend.InputEvent) {
	switch e := ev.(type) {
	case backend.PointerMotionEvent:
		s.seat.Pointer().Motion(e.Time, e.Pos)
		if s.cfg.Input.FocusFollowsMouse {
			if id, ok := s.seat.Pointer().Focus(); ok {
				if win, ok := s.stack.ByID(id); ok && !win.IsPopup() {
					s.focusWindow(win)
				}
			}
		}

	case backend.PointerButtonEvent:
		hit, ok := s.seat.Pointer().Button(e.Time, e.Button, e.Pressed)
		if e.Pressed {
			if ok {
				s.raiseAndFocus(hit.Window)
			} else {
				s.focusWindow(nil)
			}
		}

	case backend.PointerAxisEvent:
		s.seat.Pointer().Axis(e.Time, e.Axis, e.Value)

	case backend.KeyEvent:
		s.seat.Keyboard().Key(e.Time, e.Key, e.Pressed)

	case backend.ModifiersEvent:
		s.seat.Keyboard().SetModifiers(e.Mods)

	case backend.TouchDownEvent:
		if hit, ok := s.stack.SurfaceAt(e.Pos); ok {
			s.raiseAndFocus(hit.Window)
		}
		s.seat.Touch().Down(e.Time, e.Slot, e.Pos)

	case backend.TouchMotionEvent:
		s.seat.Touch().Motion(e.Time, e.Slot, e.Pos)

	case backend.TouchUpEvent:
		s.seat.Touch().Up(e.Time, e.Slot)

	case backend.TouchCancelEvent:
		s.seat.Touch().Cancel()
	}
}

// raiseAndFocus applies the click-to-focus policy: raise the toplevel
// tree and move keyboard focus to the clicked window.
func (s *Server) raiseAndFocus(win *wm.Window) {
	root := rootWindow(win)
	s.stack.Raise(root)
	s.damageWindowTree(root)
	s.focusWindow(win)
}

// now is the millisecond timestamp attached to compositor-originated
// events.
func (s *Server) now() uint32 {
	return uint32(time.Since(s.started).Milliseconds())
}
