package comp

import (
	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/input"
	"github.com/waywardwm/wayward/internal/protocol"
)

// The server is the seat's event sink: each callback translates the
// internal surface id to the owning client's id space and forwards the
// event on that client's connection. The seat guarantees every surface
// id it hands over is live, so a failed lookup only means the owner is
// already being torn down.

func (s *Server) surfaceAddr(sid uint64) (*Client, uint32, bool) {
	owner, ok := s.surfaceOwner[sid]
	if !ok {
		return nil, 0, false
	}
	cid, ok := owner.surfaceIDs[sid]
	if !ok {
		return nil, 0, false
	}
	return owner, cid, true
}

func (s *Server) PointerEnter(sid uint64, serial uint32, local geometry.Point) {
	if c, cid, ok := s.surfaceAddr(sid); ok {
		c.send(protocol.PointerEnter{SurfaceID: cid, Serial: serial, X: local.X, Y: local.Y})
	}
}

func (s *Server) PointerLeave(sid uint64, serial uint32) {
	if c, cid, ok := s.surfaceAddr(sid); ok {
		c.send(protocol.PointerLeave{SurfaceID: cid, Serial: serial})
	}
}

func (s *Server) PointerMotion(sid uint64, time uint32, local geometry.Point) {
	if c, _, ok := s.surfaceAddr(sid); ok {
		c.send(protocol.PointerMotion{Time: time, X: local.X, Y: local.Y})
	}
}

func (s *Server) PointerButton(sid uint64, serial, time, button uint32, pressed bool) {
	if c, _, ok := s.surfaceAddr(sid); ok {
		c.send(protocol.PointerButton{Serial: serial, Time: time, Button: button, Pressed: pressed})
	}
}

func (s *Server) PointerAxis(sid uint64, serial, time uint32, axis input.Axis, value float64) {
	if c, _, ok := s.surfaceAddr(sid); ok {
		c.send(protocol.PointerAxis{Serial: serial, Time: time, Axis: uint32(axis), Value: value})
	}
}

func (s *Server) KeyboardEnter(sid uint64, serial uint32, keys []uint32) {
	if c, cid, ok := s.surfaceAddr(sid); ok {
		c.send(protocol.KeyboardEnter{SurfaceID: cid, Serial: serial, Keys: keys})
	}
}

func (s *Server) KeyboardLeave(sid uint64, serial uint32) {
	if c, cid, ok := s.surfaceAddr(sid); ok {
		c.send(protocol.KeyboardLeave{SurfaceID: cid, Serial: serial})
	}
}

func (s *Server) KeyboardKey(sid uint64, serial, time, key uint32, pressed bool) {
	if c, _, ok := s.surfaceAddr(sid); ok {
		c.send(protocol.Key{Serial: serial, Time: time, Key: key, Pressed: pressed})
	}
}

func (s *Server) KeyboardModifiers(sid uint64, serial uint32, mods input.Modifiers) {
	if c, _, ok := s.surfaceAddr(sid); ok {
		c.send(protocol.Modifiers{
			Serial:    serial,
			Depressed: mods.Depressed,
			Latched:   mods.Latched,
			Locked:    mods.Locked,
			Group:     mods.Group,
		})
	}
}

func (s *Server) TouchDown(sid uint64, serial, time uint32, slot int32, local geometry.Point) {
	if c, cid, ok := s.surfaceAddr(sid); ok {
		c.send(protocol.TouchDown{SurfaceID: cid, Serial: serial, Time: time, Slot: slot, X: local.X, Y: local.Y})
	}
}

func (s *Server) TouchUp(sid uint64, serial, time uint32, slot int32) {
	if c, _, ok := s.surfaceAddr(sid); ok {
		c.send(protocol.TouchUp{Serial: serial, Time: time, Slot: slot})
	}
}

func (s *Server) TouchMotion(sid uint64, time uint32, slot int32, local geometry.Point) {
	if c, _, ok := s.surfaceAddr(sid); ok {
		c.send(protocol.TouchMotion{Time: time, Slot: slot, X: local.X, Y: local.Y})
	}
}

func (s *Server) TouchCancel(sid uint64, serial uint32, slot int32) {
	if c, _, ok := s.surfaceAddr(sid); ok {
		c.send(protocol.TouchCancel{Serial: serial})
	}
}
