package comp

import (
	"errors"
	"fmt"

	"github.com/waywardwm/wayward/internal/backend"
	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/logger"
	"github.com/waywardwm/wayward/internal/protocol"
	"github.com/waywardwm/wayward/internal/render"
)

// frameResult classifies one output's render pass.
type frameResult int

const (
	// frameSkipped means no damage touched the output.
	frameSkipped frameResult = iota
	framePresented
	// frameFailed is a transient present failure; the frame must be
	// retried on the next tick.
	frameFailed
)

// frame renders every output touched by accumulated damage and fires
// pending frame callbacks. Returning an error stops the compositor;
// transient present failures are absorbed up to maxPresentFailures.
func (s *Server) frame() error {
	if !s.needsFrame {
		return nil
	}

	presented := false
	retry := false
	for _, out := range s.backend.Outputs() {
		res, err := s.renderOutput(out)
		if err != nil {
			return err
		}
		switch res {
		case framePresented:
			presented = true
		case frameFailed:
			retry = true
		}
	}

	// A failed present keeps the damage that fed it, so the next tick
	// re-renders even on an otherwise quiescent scene. Callbacks wait
	// until the whole scene has landed.
	if retry {
		return nil
	}

	s.damage = s.damage[:0]
	s.needsFrame = false

	if presented {
		s.fireFrameCallbacks()
	}
	return nil
}

// renderOutput draws one output.
func (s *Server) renderOutput(out *backend.Output) (frameResult, error) {
	clips, touched := s.outputClips(out)
	if !touched {
		return frameSkipped, nil
	}

	if err := s.renderer.BeginFrame(out.Geometry()); err != nil {
		return frameFailed, fmt.Errorf("output %s: %w", out.Name, err)
	}

	els := s.collectElements(out)
	if err := s.renderer.RenderElements(els, s.cfg.Compositor.BackgroundColor(), clips); err != nil {
		return frameFailed, fmt.Errorf("output %s: %w", out.Name, err)
	}

	if err := s.renderer.FinishFrame(); err != nil {
		if errors.Is(err, render.ErrPresentFailed) {
			s.presentFailures++
			if s.presentFailures >= maxPresentFailures {
				return frameFailed, fmt.Errorf("output %s: %d consecutive present failures: %w",
					out.Name, s.presentFailures, err)
			}
			logger.Warnf("output %s: present failed (%d/%d): %v",
				out.Name, s.presentFailures, maxPresentFailures, err)
			return frameFailed, nil
		}
		return frameFailed, fmt.Errorf("output %s: %w", out.Name, err)
	}

	s.presentFailures = 0
	s.presentedOutputs[out.Name] = true
	return framePresented, nil
}

// outputClips translates accumulated layout-space damage into
// output-local clip rects. Empty damage with a scheduled frame means a
// full repaint; damage that misses the output entirely skips it.
func (s *Server) outputClips(out *backend.Output) ([]geometry.Rect, bool) {
	// An output's first frame has no previous content to damage
	// against; everything outside the damage would present as
	// uninitialized zeros instead of the clear color.
	if !s.presentedOutputs[out.Name] {
		return nil, true
	}
	if len(s.damage) == 0 {
		return nil, true
	}

	bounds := geometry.RectFromSize(out.Size).Offset(out.Position.X, out.Position.Y)
	var clips []geometry.Rect
	for _, d := range s.damage {
		hit := d.Intersect(bounds)
		if hit.Empty() {
			continue
		}
		clips = append(clips, hit.Offset(-out.Position.X, -out.Position.Y))
	}
	if len(clips) == 0 {
		return nil, false
	}
	return clips, true
}

// collectElements walks the stack back to front and builds the render
// list for one output. Surfaces whose buffers fail to import are
// skipped rather than taking the frame down.
func (s *Server) collectElements(out *backend.Output) []render.Element {
	var els []render.Element
	local := geometry.RectFromSize(out.Size)

	for _, win := range s.stack.Windows() {
		if !win.HitTestable() {
			continue
		}
		surf := win.Surface()
		buf := surf.Buffer()
		if buf == nil {
			continue
		}

		dst := surf.Bounds().Offset(-out.Position.X, -out.Position.Y)
		if dst.Intersect(local).Empty() {
			continue
		}

		tex, err := s.renderer.ImportSHMBuffer(buf)
		if err != nil {
			logger.Debugf("surface %d: buffer import: %v", surf.ID(), err)
			continue
		}
		els = append(els, render.Element{
			Texture: tex,
			Dst:     dst,
			Opacity: 1,
		})
	}
	return els
}

// fireFrameCallbacks completes every callback promoted by a commit,
// stamped with the present time.
func (s *Server) fireFrameCallbacks() {
	now := s.now()
	for _, c := range s.clients {
		for cid, ids := range c.frameReady {
			if surf, ok := c.surfaces[cid]; ok {
				surf.TakeFrameRequest()
			}
			for _, id := range ids {
				c.send(protocol.FrameDone{CallbackID: id, Time: now})
			}
			delete(c.frameReady, cid)
		}
	}
	s.reapClients()
}
