package comp

import (
	"fmt"
	"time"

	"github.com/waywardwm/wayward/internal/backend"
	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/ipc"
	"github.com/waywardwm/wayward/internal/protocol"
)

// The server doubles as the IPC control handler. Every method hops
// onto the loop goroutine, so the control plane reads the same
// consistent state the clients see.

// frameCounter is the optional backend face for per-output frame
// statistics.
type frameCounter interface {
	FrameCount(name string) int
}

// injector is the optional backend face for synthesizing input.
type injector interface {
	Inject(ev backend.InputEvent) bool
}

// Status summarizes compositor state for the control plane.
func (s *Server) Status() ipc.Status {
	var st ipc.Status
	err := s.do(func() {
		st = ipc.Status{
			Display:       s.cfg.Compositor.Display,
			UptimeSeconds: int64(time.Since(s.started) / time.Second),
			Clients:       len(s.clients),
			Surfaces:      s.registry.Len(),
			Windows:       s.stack.Len(),
			Serial:        s.seat.Serial(),
		}
		counts, _ := s.backend.(frameCounter)
		for _, out := range s.backend.Outputs() {
			info := ipc.OutputInfo{
				Name:   out.Name,
				Width:  int(out.Size.W),
				Height: int(out.Size.H),
				Scale:  out.Scale,
			}
			if counts != nil {
				info.Frames = counts.FrameCount(out.Name)
			}
			st.Outputs = append(st.Outputs, info)
		}
	})
	if err != nil {
		return ipc.Status{Display: s.cfg.Compositor.Display}
	}
	return st
}

// Windows lists the stack back to front.
func (s *Server) Windows() []ipc.WindowInfo {
	var infos []ipc.WindowInfo
	_ = s.do(func() {
		for _, win := range s.stack.Windows() {
			b := win.Bounds()
			infos = append(infos, ipc.WindowInfo{
				ID:         win.ID(),
				Client:     win.Surface().ClientID(),
				Title:      win.Title(),
				AppID:      win.AppID(),
				X:          b.X,
				Y:          b.Y,
				W:          int(b.W),
				H:          int(b.H),
				Mapped:     win.Mapped(),
				Activated:  win.Activated(),
				Maximized:  win.Maximized(),
				Fullscreen: win.Fullscreen(),
				Minimized:  win.Minimized(),
				Popup:      win.IsPopup(),
			})
		}
	})
	return infos
}

// FocusWindow raises and focuses a window by its stack id, restoring
// it when minimized.
func (s *Server) FocusWindow(id uint64) error {
	var ferr error
	err := s.do(func() {
		win, ok := s.stack.ByID(id)
		if !ok {
			ferr = fmt.Errorf("no window %d", id)
			return
		}
		if win.IsPopup() {
			ferr = fmt.Errorf("window %d is a popup", id)
			return
		}
		if win.Minimized() {
			s.setMinimizedTree(win, false)
		}
		s.raiseAndFocus(win)
		s.refreshPointer()
		s.scheduleFrame()
	})
	if err != nil {
		return err
	}
	return ferr
}

// CloseWindow asks the owning client to close a window; the client
// stays in charge of actually destroying it.
func (s *Server) CloseWindow(id uint64) error {
	var ferr error
	err := s.do(func() {
		win, ok := s.stack.ByID(id)
		if !ok {
			ferr = fmt.Errorf("no window %d", id)
			return
		}
		owner, ok := s.surfaceOwner[win.Surface().ID()]
		if !ok {
			ferr = fmt.Errorf("window %d has no owner", id)
			return
		}
		cid, ok := owner.windowIDs[win.ID()]
		if !ok {
			ferr = fmt.Errorf("window %d has no client handle", id)
			return
		}
		owner.send(protocol.Closed{WindowID: cid})
		s.reapClients()
	})
	if err != nil {
		return err
	}
	return ferr
}

// Inject feeds one synthesized input event through the backend, so it
// travels the same path as real input.
func (s *Server) Inject(req ipc.InjectRequest) error {
	inj, ok := s.backend.(injector)
	if !ok {
		return fmt.Errorf("backend does not support input injection")
	}

	var ev backend.InputEvent
	switch req.Type {
	case ipc.InjectPointerMotion:
		ev = backend.PointerMotionEvent{Time: req.Time, Pos: geometry.Point{X: req.X, Y: req.Y}}
	case ipc.InjectPointerButton:
		ev = backend.PointerButtonEvent{Time: req.Time, Button: req.Button, Pressed: req.Pressed}
	case ipc.InjectKey:
		ev = backend.KeyEvent{Time: req.Time, Key: req.Key, Pressed: req.Pressed}
	case ipc.InjectTouchDown:
		ev = backend.TouchDownEvent{Time: req.Time, Slot: req.Slot, Pos: geometry.Point{X: req.X, Y: req.Y}}
	case ipc.InjectTouchUp:
		ev = backend.TouchUpEvent{Time: req.Time, Slot: req.Slot}
	default:
		return fmt.Errorf("unknown inject type %q", req.Type)
	}

	if !inj.Inject(ev) {
		return fmt.Errorf("event queue full or backend closed")
	}
	return nil
}
