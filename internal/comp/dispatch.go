package comp

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/logger"
	"github.com/waywardwm/wayward/internal/protocol"
	"github.com/waywardwm/wayward/internal/render"
	"github.com/waywardwm/wayward/internal/shm"
	"github.com/waywardwm/wayward/internal/wm"
)

// dispatch runs one request. Protocol errors are reported with an Error
// event and disconnect the offender; no other client is affected.
func (s *Server) dispatch(c *Client, req protocol.Request) {
	if c.gone {
		return
	}
	if _, ok := s.clients[c.id]; !ok {
		return
	}

	if err := s.handle(c, req); err != nil {
		var perr *ProtocolError
		if errors.As(err, &perr) {
			logger.Warnf("client %d: protocol error: %v", c.id, perr)
			c.send(protocol.Error{
				ObjectID: perr.ObjectID,
				Code:     perr.Code,
				Message:  perr.Message,
			})
		} else {
			logger.Errorf("client %d: request failed: %v", c.id, err)
		}
		s.teardownClient(c)
	}
	s.reapClients()
}

func (s *Server) handle(c *Client, req protocol.Request) error {
	switch r := req.(type) {
	case protocol.CreatePool:
		return s.handleCreatePool(c, r)
	case protocol.ResizePool:
		return s.handleResizePool(c, r)
	case protocol.DestroyPool:
		return s.handleDestroyPool(c, r)
	case protocol.CreateBuffer:
		return s.handleCreateBuffer(c, r)
	case protocol.DestroyBuffer:
		return s.handleDestroyBuffer(c, r)
	case protocol.CreateSurface:
		return s.handleCreateSurface(c, r)
	case protocol.DestroySurface:
		return s.handleDestroySurface(c, r)
	case protocol.Attach:
		return s.handleAttach(c, r)
	case protocol.Damage:
		return s.handleDamage(c, r)
	case protocol.SetInputRegion:
		return s.handleSetInputRegion(c, r)
	case protocol.Frame:
		return s.handleFrame(c, r)
	case protocol.Commit:
		return s.handleCommit(c, r)
	case protocol.CreateToplevel:
		return s.handleCreateToplevel(c, r)
	case protocol.CreatePopup:
		return s.handleCreatePopup(c, r)
	case protocol.DestroyWindow:
		return s.handleDestroyWindow(c, r)
	case protocol.SetTitle:
		return s.handleSetTitle(c, r)
	case protocol.SetAppID:
		return s.handleSetAppID(c, r)
	case protocol.AckConfigure:
		return s.handleAckConfigure(c, r)
	case protocol.SetMaximized:
		return s.handleSetMaximized(c, r)
	case protocol.SetFullscreen:
		return s.handleSetFullscreen(c, r)
	case protocol.SetMinimized:
		return s.handleSetMinimized(c, r)
	case protocol.SetDecorationMode:
		return s.handleSetDecorationMode(c, r)
	default:
		return protoErr(0, protocol.CodeInvalidArgument, "unknown request %T", req)
	}
}

// shm

func (s *Server) handleCreatePool(c *Client, r protocol.CreatePool) error {
	if _, used := c.pools[r.PoolID]; used {
		_ = unix.Close(r.FD)
		return duplicateObject(r.PoolID, "pool")
	}
	pool, err := shm.NewPool(r.FD, r.Size)
	if err != nil {
		_ = unix.Close(r.FD)
		return shmErr(r.PoolID, err)
	}
	c.pools[r.PoolID] = pool
	return nil
}

func (s *Server) handleResizePool(c *Client, r protocol.ResizePool) error {
	pool, perr := c.pool(r.PoolID)
	if perr != nil {
		return perr
	}
	if err := pool.Resize(r.Size); err != nil {
		return shmErr(r.PoolID, err)
	}
	return nil
}

func (s *Server) handleDestroyPool(c *Client, r protocol.DestroyPool) error {
	pool, perr := c.pool(r.PoolID)
	if perr != nil {
		return perr
	}
	// Buffers carved from the pool stay valid; the mapping lives until
	// the last of them is released.
	pool.Destroy()
	delete(c.pools, r.PoolID)
	return nil
}

func (s *Server) handleCreateBuffer(c *Client, r protocol.CreateBuffer) error {
	pool, perr := c.pool(r.PoolID)
	if perr != nil {
		return perr
	}
	if _, used := c.buffers[r.BufferID]; used {
		return duplicateObject(r.BufferID, "buffer")
	}
	buf, err := pool.CreateBuffer(r.Offset, r.Width, r.Height, r.Stride, r.Format)
	if err != nil {
		return shmErr(r.BufferID, err)
	}
	c.buffers[r.BufferID] = buf
	c.bufferIDs[buf.ID()] = r.BufferID
	s.bufferOwner[buf.ID()] = c
	return nil
}

func (s *Server) handleDestroyBuffer(c *Client, r protocol.DestroyBuffer) error {
	buf, perr := c.buffer(r.BufferID)
	if perr != nil {
		return perr
	}
	// Surfaces may still reference the storage; rendering them fails
	// gracefully and no release event follows a destroyed handle.
	s.renderer.ClearTextureCache(render.TextureKey{ID: buf.ID()})
	delete(c.buffers, r.BufferID)
	delete(c.bufferIDs, buf.ID())
	delete(s.bufferOwner, buf.ID())
	buf.Release()
	return nil
}

// surfaces

func (s *Server) handleCreateSurface(c *Client, r protocol.CreateSurface) error {
	if _, used := c.surfaces[r.SurfaceID]; used {
		return duplicateObject(r.SurfaceID, "surface")
	}
	surf := s.registry.New(c.id)
	c.surfaces[r.SurfaceID] = surf
	c.surfaceIDs[surf.ID()] = r.SurfaceID
	s.surfaceOwner[surf.ID()] = c
	return nil
}

func (s *Server) handleDestroySurface(c *Client, r protocol.DestroySurface) error {
	surf, perr := c.surface(r.SurfaceID)
	if perr != nil {
		return perr
	}
	s.destroySurface(c, r.SurfaceID, surf)
	return nil
}

func (s *Server) handleAttach(c *Client, r protocol.Attach) error {
	surf, perr := c.surface(r.SurfaceID)
	if perr != nil {
		return perr
	}
	if r.BufferID == 0 {
		surf.Attach(nil)
		return nil
	}
	buf, perr := c.buffer(r.BufferID)
	if perr != nil {
		return perr
	}
	surf.Attach(buf)
	return nil
}

func (s *Server) handleDamage(c *Client, r protocol.Damage) error {
	surf, perr := c.surface(r.SurfaceID)
	if perr != nil {
		return perr
	}
	if r.W <= 0 || r.H <= 0 {
		return nil
	}
	surf.Damage(geometry.Rect{
		X: float64(r.X), Y: float64(r.Y),
		W: float64(r.W), H: float64(r.H),
	})
	return nil
}

func (s *Server) handleSetInputRegion(c *Client, r protocol.SetInputRegion) error {
	surf, perr := c.surface(r.SurfaceID)
	if perr != nil {
		return perr
	}
	if r.Infinite {
		surf.SetInputRegion(nil)
		return nil
	}
	region := make(geometry.Region, 0, len(r.Rects))
	for _, rr := range r.Rects {
		if rr.W <= 0 || rr.H <= 0 {
			continue
		}
		region = append(region, geometry.Rect{
			X: float64(rr.X), Y: float64(rr.Y),
			W: float64(rr.W), H: float64(rr.H),
		})
	}
	// An explicit empty region accepts nothing.
	surf.SetInputRegion(&region)
	return nil
}

func (s *Server) handleFrame(c *Client, r protocol.Frame) error {
	surf, perr := c.surface(r.SurfaceID)
	if perr != nil {
		return perr
	}
	c.framePending[r.SurfaceID] = append(c.framePending[r.SurfaceID], r.CallbackID)
	surf.RequestFrame()
	return nil
}

func (s *Server) handleCommit(c *Client, r protocol.Commit) error {
	surf, perr := c.surface(r.SurfaceID)
	if perr != nil {
		return perr
	}

	preBounds := surf.Bounds()
	res := surf.Commit()

	if res.Replaced != nil {
		s.renderer.ClearTextureCache(render.TextureKey{ID: res.Replaced.ID()})
		s.sendBufferRelease(res.Replaced)
	}

	damage := surf.TakeDamage()
	if res.BufferChanged || len(damage) > 0 {
		if buf := surf.Buffer(); buf != nil {
			s.renderer.ClearTextureCache(render.TextureKey{ID: buf.ID()})
		}
	}

	local := geometry.RectFromSize(surf.Size())
	pos := surf.Position()
	for _, d := range damage {
		s.addDamage(d.Intersect(local).Offset(pos.X, pos.Y))
	}

	if pend := c.framePending[r.SurfaceID]; len(pend) > 0 {
		c.frameReady[r.SurfaceID] = append(c.frameReady[r.SurfaceID], pend...)
		delete(c.framePending, r.SurfaceID)
		// A commit that only asks for a callback still needs a present
		// to complete it.
		s.scheduleFrame()
	}

	if res.BufferChanged || res.NewlyMapped || res.Unmapped {
		s.addDamage(preBounds)
		s.addDamage(surf.Bounds())
		s.scheduleFrame()
	}

	if res.NewlyMapped {
		if win, ok := s.stack.ByID(surf.ID()); ok {
			root := rootWindow(win)
			s.stack.Raise(root)
			s.damageWindowTree(root)
			if !win.IsPopup() {
				s.focusWindow(win)
			}
		}
		s.refreshPointer()
	}
	if res.Unmapped {
		if id, ok := s.seat.Keyboard().Focus(); ok && id == surf.ID() {
			s.seat.Keyboard().SetFocus(0)
			s.focusTopmost()
		}
		s.refreshPointer()
	}
	return nil
}

// windows

func (s *Server) handleCreateToplevel(c *Client, r protocol.CreateToplevel) error {
	surf, perr := c.surface(r.SurfaceID)
	if perr != nil {
		return perr
	}
	if _, used := c.windows[r.WindowID]; used {
		return duplicateObject(r.WindowID, "window")
	}
	if _, has := s.stack.ByID(surf.ID()); has {
		return protoErr(r.SurfaceID, protocol.CodeProtocolViolation, "surface already has a role")
	}

	win := wm.NewToplevel(surf)
	if s.cfg.Compositor.Decorations == "server" {
		win.SetDecoration(wm.DecorationServerSide)
	}
	s.stack.Add(win)
	c.windows[r.WindowID] = win
	c.windowIDs[win.ID()] = r.WindowID

	// The initial configure proposes no size; the client picks one.
	s.pushConfigureSized(win, geometry.Size{})
	return nil
}

func (s *Server) handleCreatePopup(c *Client, r protocol.CreatePopup) error {
	surf, perr := c.surface(r.SurfaceID)
	if perr != nil {
		return perr
	}
	parent, perr := c.window(r.ParentID)
	if perr != nil {
		return perr
	}
	if _, used := c.windows[r.WindowID]; used {
		return duplicateObject(r.WindowID, "window")
	}
	if _, has := s.stack.ByID(surf.ID()); has {
		return protoErr(r.SurfaceID, protocol.CodeProtocolViolation, "surface already has a role")
	}

	win := wm.NewPopup(surf, parent, geometry.Point{X: r.OffsetX, Y: r.OffsetY})
	s.stack.Add(win)
	c.windows[r.WindowID] = win
	c.windowIDs[win.ID()] = r.WindowID

	s.pushConfigureSized(win, geometry.Size{})
	return nil
}

func (s *Server) handleDestroyWindow(c *Client, r protocol.DestroyWindow) error {
	win, perr := c.window(r.WindowID)
	if perr != nil {
		return perr
	}
	s.removeWindow(c, win)
	s.focusTopmost()
	s.refreshPointer()
	return nil
}

func (s *Server) handleSetTitle(c *Client, r protocol.SetTitle) error {
	win, perr := c.window(r.WindowID)
	if perr != nil {
		return perr
	}
	win.SetTitle(r.Title)
	return nil
}

func (s *Server) handleSetAppID(c *Client, r protocol.SetAppID) error {
	win, perr := c.window(r.WindowID)
	if perr != nil {
		return perr
	}
	win.SetAppID(r.AppID)
	return nil
}

func (s *Server) handleAckConfigure(c *Client, r protocol.AckConfigure) error {
	win, perr := c.window(r.WindowID)
	if perr != nil {
		return perr
	}
	if _, ok := win.AckConfigure(r.Serial); !ok {
		return protoErr(r.WindowID, protocol.CodeInvalidArgument,
			"unknown configure serial %d", r.Serial)
	}
	return nil
}

func (s *Server) handleSetMaximized(c *Client, r protocol.SetMaximized) error {
	win, perr := c.window(r.WindowID)
	if perr != nil {
		return perr
	}
	if win.IsPopup() {
		return protoErr(r.WindowID, protocol.CodeProtocolViolation, "popup cannot be maximized")
	}
	if win.Maximized() == r.Maximized {
		return nil
	}

	old := win.Bounds()
	if r.Maximized {
		out := s.primaryOutput()
		if out == nil {
			return protoErr(r.WindowID, protocol.CodeInvalidArgument, "no output to maximize onto")
		}
		win.SetMaximized(true)
		win.MoveTo(out.Position)
		s.pushConfigureSized(win, out.Size)
	} else {
		win.SetMaximized(false)
		saved := win.SavedGeometry()
		s.pushConfigureSized(win, geometry.Size{W: int32(saved.W), H: int32(saved.H)})
	}
	s.addDamage(old)
	s.addDamage(win.Bounds())
	s.scheduleFrame()
	s.refreshPointer()
	return nil
}

func (s *Server) handleSetFullscreen(c *Client, r protocol.SetFullscreen) error {
	win, perr := c.window(r.WindowID)
	if perr != nil {
		return perr
	}
	if win.IsPopup() {
		return protoErr(r.WindowID, protocol.CodeProtocolViolation, "popup cannot be fullscreen")
	}
	if win.Fullscreen() == r.Fullscreen {
		return nil
	}

	old := win.Bounds()
	if r.Fullscreen {
		out := s.primaryOutput()
		if out == nil {
			return protoErr(r.WindowID, protocol.CodeInvalidArgument, "no output to fill")
		}
		win.SetFullscreen(true)
		win.MoveTo(out.Position)
		s.pushConfigureSized(win, out.Size)
	} else {
		win.SetFullscreen(false)
		saved := win.SavedGeometry()
		s.pushConfigureSized(win, geometry.Size{W: int32(saved.W), H: int32(saved.H)})
	}
	s.addDamage(old)
	s.addDamage(win.Bounds())
	s.scheduleFrame()
	s.refreshPointer()
	return nil
}

func (s *Server) handleSetMinimized(c *Client, r protocol.SetMinimized) error {
	win, perr := c.window(r.WindowID)
	if perr != nil {
		return perr
	}
	if win.IsPopup() {
		return protoErr(r.WindowID, protocol.CodeProtocolViolation, "popup cannot be minimized")
	}
	if win.Minimized() {
		return nil
	}

	s.setMinimizedTree(win, true)
	s.damageWindowTree(win)

	if id, ok := s.seat.Keyboard().Focus(); ok && windowTreeHasSurface(win, id) {
		s.seat.Keyboard().SetFocus(0)
		s.focusTopmost()
	}
	s.refreshPointer()
	s.scheduleFrame()
	return nil
}

func (s *Server) handleSetDecorationMode(c *Client, r protocol.SetDecorationMode) error {
	win, perr := c.window(r.WindowID)
	if perr != nil {
		return perr
	}

	// The config picks the house style; an explicit client preference
	// wins for its own window.
	mode := wm.DecorationClientSide
	if r.ServerSide {
		mode = wm.DecorationServerSide
	}
	win.SetDecoration(mode)
	c.send(protocol.DecorationMode{
		WindowID:   r.WindowID,
		ServerSide: mode == wm.DecorationServerSide,
	})
	return nil
}

// setMinimizedTree minimizes or restores a window together with its
// popups, so no child outlives its parent's visibility.
func (s *Server) setMinimizedTree(win *wm.Window, on bool) {
	win.SetMinimized(on)
	for _, child := range win.Children() {
		s.setMinimizedTree(child, on)
	}
}

func windowTreeHasSurface(win *wm.Window, sid uint64) bool {
	if win.Surface().ID() == sid {
		return true
	}
	for _, child := range win.Children() {
		if windowTreeHasSurface(child, sid) {
			return true
		}
	}
	return false
}
