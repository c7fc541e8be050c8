// Package surface owns the live surface set and the double-buffered state
// protocol: client requests accumulate in pending state, and commit promotes
// pending to current atomically. The renderer and hit-tester only ever see
// current state.
package surface

import (
	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/shm"
)

// State is the double-buffered half of a surface. Pending state collects
// client requests; current state is what composition and hit-testing see.
type State struct {
	// Buffer is the attached pixel source, nil when detached.
	Buffer *shm.Buffer
	// Size mirrors the committed buffer's dimensions.
	Size geometry.Size
	// InputRegion restricts where the surface accepts input, in
	// surface-local coordinates. nil means the whole surface accepts.
	InputRegion *geometry.Region

	// bufferSet records that an attach happened since the last commit, so
	// commit can tell "no change" apart from "detach".
	bufferSet bool
	// inputRegionSet records a set_input_region since the last commit.
	inputRegionSet bool
	// frameRequested records a frame callback request.
	frameRequested bool
	// damage accumulates damage rectangles in surface-local coordinates.
	damage geometry.Region
}

// CommitResult describes what a commit changed, so the caller can release
// replaced buffers and update stacking or focus.
type CommitResult struct {
	// BufferChanged is true when the committed buffer differs from the
	// previous current buffer.
	BufferChanged bool
	// Replaced is the previous current buffer when a new one displaced
	// it, nil otherwise. The caller owns sending its release event.
	Replaced *shm.Buffer
	// NewlyMapped is true when this commit gave the surface its first
	// buffer, making it visible.
	NewlyMapped bool
	// Unmapped is true when this commit detached the buffer.
	Unmapped bool
}

// Surface is the central protocol object: a client-owned rectangle of
// pixels with position, committed state and accumulated pending state.
// Position is compositor-owned (the window layer moves surfaces), so it is
// not part of the double-buffered state.
type Surface struct {
	id       uint64
	clientID uint64

	position geometry.Point
	mapped   bool

	current State
	pending State
}

// ID returns the surface's registry-unique id.
func (s *Surface) ID() uint64 { return s.id }

// ClientID returns the id of the owning client connection.
func (s *Surface) ClientID() uint64 { return s.clientID }

// Position returns the surface origin in compositor space.
func (s *Surface) Position() geometry.Point { return s.position }

// MoveTo places the surface origin. Positioning is compositor policy, so
// it takes effect immediately rather than on commit.
func (s *Surface) MoveTo(p geometry.Point) { s.position = p }

// Mapped reports whether the surface has a committed buffer.
func (s *Surface) Mapped() bool { return s.mapped }

// Size returns the committed size.
func (s *Surface) Size() geometry.Size { return s.current.Size }

// Bounds returns the committed extent in compositor space.
func (s *Surface) Bounds() geometry.Rect {
	return geometry.RectFromSize(s.current.Size).Offset(s.position.X, s.position.Y)
}

// Current returns a copy of the committed state.
func (s *Surface) Current() State { return s.current }

// Buffer returns the committed buffer, nil when detached.
func (s *Surface) Buffer() *shm.Buffer { return s.current.Buffer }

// Attach stages buf as the surface's pixel source. nil detaches, which
// unmaps the surface on the next commit. Nothing is visible until commit.
func (s *Surface) Attach(buf *shm.Buffer) {
	s.pending.Buffer = buf
	s.pending.bufferSet = true
}

// SetInputRegion stages the input region. nil restores the default of the
// whole surface accepting input. Takes effect on commit.
func (s *Surface) SetInputRegion(region *geometry.Region) {
	s.pending.InputRegion = region
	s.pending.inputRegionSet = true
}

// Damage stages a damaged rectangle in surface-local coordinates.
func (s *Surface) Damage(r geometry.Rect) {
	s.pending.damage = append(s.pending.damage, r)
}

// RequestFrame stages a frame callback: after the next commit is first
// composited, the client is told the frame is done.
func (s *Surface) RequestFrame() {
	s.pending.frameRequested = true
}

// Commit atomically promotes all pending state to current. This is the
// only operation that mutates current state.
func (s *Surface) Commit() CommitResult {
	var res CommitResult

	if s.pending.bufferSet {
		prev := s.current.Buffer
		next := s.pending.Buffer
		if next != prev {
			res.BufferChanged = true
			if prev != nil && next != nil {
				res.Replaced = prev
			}
		}
		s.current.Buffer = next
		if next != nil {
			s.current.Size = next.Size()
			if !s.mapped {
				s.mapped = true
				res.NewlyMapped = true
			}
		} else {
			s.current.Size = geometry.Size{}
			if s.mapped {
				s.mapped = false
				res.Unmapped = true
				res.Replaced = prev
			}
		}
	}

	if s.pending.inputRegionSet {
		s.current.InputRegion = s.pending.InputRegion
	}

	s.current.damage = append(s.current.damage, s.pending.damage...)
	if s.pending.frameRequested {
		s.current.frameRequested = true
	}

	s.pending = State{}
	return res
}

// InputAccepts reports whether the committed input region accepts the
// surface-local point. Bounding-box containment is the caller's job.
func (s *Surface) InputAccepts(local geometry.Point) bool {
	if s.current.InputRegion == nil {
		return true
	}
	return s.current.InputRegion.Contains(local)
}

// TakeDamage returns and clears the committed damage accumulated since the
// last frame.
func (s *Surface) TakeDamage() geometry.Region {
	d := s.current.damage
	s.current.damage = nil
	return d
}

// TakeFrameRequest returns and clears the committed frame callback flag.
func (s *Surface) TakeFrameRequest() bool {
	requested := s.current.frameRequested
	s.current.frameRequested = false
	return requested
}
