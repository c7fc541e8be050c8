// Package render defines the backend-agnostic rendering contract the
// compositor loop consumes, plus a software implementation. Protocol and
// focus logic never touch a graphics API; swapping the backend means
// swapping the Renderer implementation and nothing else.
package render

import (
	"errors"
	"image/color"

	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/shm"
)

var (
	// ErrBackendGone is returned when the graphics context is invalid
	ErrBackendGone = errors.New("graphics backend is gone")
	// ErrUnsupportedFormat is returned for pixel formats with no backend mapping
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
	// ErrImportFailed is returned when a buffer cannot be imported
	ErrImportFailed = errors.New("buffer import failed")
	// ErrDriverRejected is returned when the driver refuses a dmabuf
	ErrDriverRejected = errors.New("driver rejected dmabuf")
	// ErrPresentFailed is returned when a finished frame cannot be presented
	ErrPresentFailed = errors.New("present failed")
)

// Transform is an output rotation/flip, in 90 degree steps.
type Transform uint32

const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
)

// OutputGeometry identifies and sizes the output a frame is rendered
// for.
type OutputGeometry struct {
	Name      string
	Size      geometry.Size
	Scale     float64
	Transform Transform
}

// TextureKey is the stable identity a texture is cached under. SHM
// buffer ids and dmabuf ids are separate namespaces.
type TextureKey struct {
	DMA bool
	ID  uint64
}

// Texture is an imported buffer, owned by the renderer.
type Texture interface {
	Key() TextureKey
	Size() geometry.Size
	// Opaque reports whether the texture has no alpha, letting the
	// renderer skip blending.
	Opaque() bool
}

// Element describes one thing to draw in one frame: ephemeral, produced
// fresh from current surface state each frame and discarded after
// rendering. Never persisted, never mutated after creation.
type Element struct {
	Texture Texture
	// Dst is the destination rectangle in output-logical coordinates.
	Dst geometry.Rect
	// Damage is the element's damaged area, element-local. Empty means
	// the whole element.
	Damage geometry.Region
	// Opacity multiplies the element's alpha, 0 to 1.
	Opacity float64
	// Transform is a per-element transform, consumed by backends that
	// support it.
	Transform Transform
}

// Renderer is the per-backend contract. The loop drives it in strict
// order: BeginFrame, imports, RenderElements, FinishFrame. A failed
// present is non-fatal for one frame; the caller escalates after
// consecutive failures.
type Renderer interface {
	// BeginFrame prepares backend state for one output's frame.
	BeginFrame(out OutputGeometry) error
	// ImportSHMBuffer turns a shared-memory buffer into a texture,
	// serving repeat imports of unchanged content from a cache.
	ImportSHMBuffer(buf *shm.Buffer) (Texture, error)
	// ImportDMABuf imports a hardware buffer without copying.
	ImportDMABuf(buf *DMABuf) (Texture, error)
	// RenderElements draws elements back-to-front over the clear color,
	// clipped to the frame damage. An empty damage list means the whole
	// output.
	RenderElements(els []Element, clear color.NRGBA, damage []geometry.Rect) error
	// FinishFrame presents the frame to the output.
	FinishFrame() error
	// ClearTextureCache drops the cached texture for a buffer identity.
	// Must be called when a buffer is destroyed or its content replaced,
	// so a stale texture is never sampled.
	ClearTextureCache(key TextureKey)
}
