package render

import (
	"fmt"
	"image/color"
	"math"

	"golang.org/x/sys/unix"

	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/shm"
)

// softwareTexture holds converted pixels in BGRA byte order, 4 bytes
// per pixel, row-major with no padding.
type softwareTexture struct {
	key    TextureKey
	size   geometry.Size
	opaque bool
	pix    []byte
}

func (t *softwareTexture) Key() TextureKey     { return t.key }
func (t *softwareTexture) Size() geometry.Size { return t.size }
func (t *softwareTexture) Opaque() bool        { return t.opaque }

// Software is a CPU renderer compositing into per-output BGRA
// framebuffers. It backs the headless backend and any scanout path
// that accepts a raw pixel slice. Method order follows the Renderer
// contract; instances belong to the compositor loop and are not safe
// for concurrent use.
type Software struct {
	present func(out OutputGeometry, pix []byte) error

	cache  map[TextureKey]*softwareTexture
	frames map[string][]byte

	out     OutputGeometry
	fb      []byte
	inFrame bool
	lost    bool
}

// NewSoftware creates a software renderer. present receives each
// finished frame's output geometry and pixel slice; the slice is
// reused across frames, so the callee must copy anything it retains.
// A nil present discards frames.
func NewSoftware(present func(out OutputGeometry, pix []byte) error) *Software {
	return &Software{
		present: present,
		cache:   make(map[TextureKey]*softwareTexture),
		frames:  make(map[string][]byte),
	}
}

// MarkLost invalidates the renderer, as a lost GPU context would.
// Every subsequent BeginFrame fails with ErrBackendGone.
func (r *Software) MarkLost() {
	r.lost = true
}

// BeginFrame targets the named output's framebuffer, allocating or
// resizing it as needed. Framebuffer contents persist between frames
// so damage-only repaints work.
func (r *Software) BeginFrame(out OutputGeometry) error {
	if r.lost {
		return fmt.Errorf("%w: context lost", ErrBackendGone)
	}
	if r.inFrame {
		return fmt.Errorf("render: frame already in progress on %q", r.out.Name)
	}
	if out.Size.Empty() {
		return fmt.Errorf("render: output %q has no area", out.Name)
	}

	want := int(out.Size.W) * int(out.Size.H) * 4
	fb := r.frames[out.Name]
	if len(fb) != want {
		fb = make([]byte, want)
		r.frames[out.Name] = fb
	}

	r.out = out
	r.fb = fb
	r.inFrame = true
	return nil
}

// ImportSHMBuffer converts a shared-memory buffer into a texture.
// Repeat imports of the same buffer identity are served from the cache
// until ClearTextureCache drops it.
func (r *Software) ImportSHMBuffer(buf *shm.Buffer) (Texture, error) {
	if r.lost {
		return nil, fmt.Errorf("%w: context lost", ErrBackendGone)
	}
	key := TextureKey{ID: buf.ID()}
	if t, ok := r.cache[key]; ok {
		return t, nil
	}
	if buf.Format().BytesPerPixel() == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, buf.Format())
	}

	t := &softwareTexture{
		key:    key,
		size:   geometry.Size{W: buf.Width(), H: buf.Height()},
		opaque: buf.Format().Opaque(),
		pix:    make([]byte, int(buf.Width())*int(buf.Height())*4),
	}
	err := buf.Access(func(data []byte) error {
		return convertToBGRA(t.pix, data, buf.Width(), buf.Height(), buf.Stride(), buf.Format())
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFailed, err)
	}

	r.cache[key] = t
	return t, nil
}

// ImportDMABuf maps a linear dmabuf and converts it like an shm
// buffer. Non-linear layouts need a real GPU driver to sample, so the
// software path rejects them.
func (r *Software) ImportDMABuf(buf *DMABuf) (Texture, error) {
	if r.lost {
		return nil, fmt.Errorf("%w: context lost", ErrBackendGone)
	}
	key := TextureKey{DMA: true, ID: buf.ID()}
	if t, ok := r.cache[key]; ok {
		return t, nil
	}
	if buf.Modifier != ModifierLinear {
		return nil, fmt.Errorf("%w: modifier %#x", ErrDriverRejected, buf.Modifier)
	}
	if buf.Format.BytesPerPixel() == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, buf.Format)
	}
	if buf.Width <= 0 || buf.Height <= 0 || buf.Stride < buf.Width*buf.Format.BytesPerPixel() || buf.Offset < 0 {
		return nil, fmt.Errorf("%w: bad plane geometry", ErrImportFailed)
	}

	length := int(buf.Offset) + int(buf.Stride)*int(buf.Height)
	data, err := unix.Mmap(buf.FD, 0, length, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap: %v", ErrImportFailed, err)
	}
	defer unix.Munmap(data)

	t := &softwareTexture{
		key:    key,
		size:   geometry.Size{W: buf.Width, H: buf.Height},
		opaque: buf.Format.Opaque(),
		pix:    make([]byte, int(buf.Width)*int(buf.Height)*4),
	}
	if err := convertToBGRA(t.pix, data[buf.Offset:], buf.Width, buf.Height, buf.Stride, buf.Format); err != nil {
		return nil, err
	}

	r.cache[key] = t
	return t, nil
}

// RenderElements paints the frame: damage rects are cleared to the
// clear color, then elements are blended over them back-to-front. An
// empty damage list repaints the whole output.
func (r *Software) RenderElements(els []Element, clear color.NRGBA, damage []geometry.Rect) error {
	if !r.inFrame {
		return fmt.Errorf("render: no frame in progress")
	}

	w, h := int(r.out.Size.W), int(r.out.Size.H)
	if len(damage) == 0 {
		damage = []geometry.Rect{geometry.RectFromSize(r.out.Size)}
	}

	clips := make([]pixRect, 0, len(damage))
	for _, d := range damage {
		if pr, ok := toPixels(d, w, h); ok {
			clips = append(clips, pr)
		}
	}
	for _, pr := range clips {
		fillRect(r.fb, w, pr, clear)
	}

	for _, el := range els {
		if el.Texture == nil {
			continue
		}
		tex, ok := el.Texture.(*softwareTexture)
		if !ok {
			return fmt.Errorf("render: element texture from a different renderer")
		}
		o8 := uint32(math.Round(el.Opacity * 255))
		if el.Opacity >= 1 {
			o8 = 255
		}
		if o8 == 0 {
			continue
		}
		dpr, ok := toPixels(el.Dst, w, h)
		if !ok {
			continue
		}
		for _, pr := range clips {
			r.blit(tex, el.Dst, intersectPix(pr, dpr), o8)
		}
	}
	return nil
}

// FinishFrame hands the framebuffer to the present callback.
func (r *Software) FinishFrame() error {
	if !r.inFrame {
		return fmt.Errorf("render: no frame in progress")
	}
	r.inFrame = false
	if r.present == nil {
		return nil
	}
	if err := r.present(r.out, r.fb); err != nil {
		return fmt.Errorf("%w: %v", ErrPresentFailed, err)
	}
	return nil
}

// ClearTextureCache drops the cached texture for a buffer identity.
func (r *Software) ClearTextureCache(key TextureKey) {
	delete(r.cache, key)
}

// blit blends the texture into the framebuffer at dst, restricted to
// the clip rect. Clipping is resolved up front so the inner loop has
// no bounds checks. Source pixels are premultiplied; blending is
// src-over with the element opacity folded into the source.
func (r *Software) blit(tex *softwareTexture, dst geometry.Rect, clip pixRect, o8 uint32) {
	if clip.x0 >= clip.x1 || clip.y0 >= clip.y1 {
		return
	}
	fbW := int(r.out.Size.W)
	tw, th := int(tex.size.W), int(tex.size.H)
	dx0 := int(math.Floor(dst.X))
	dy0 := int(math.Floor(dst.Y))

	sx0 := clip.x0 - dx0
	wpx := clip.x1 - clip.x0
	if sx0 < 0 {
		wpx += sx0
		clip.x0 -= sx0
		sx0 = 0
	}
	if sx0+wpx > tw {
		wpx = tw - sx0
	}
	if wpx <= 0 {
		return
	}

	for y := clip.y0; y < clip.y1; y++ {
		sy := y - dy0
		if sy < 0 || sy >= th {
			continue
		}
		fo := (y*fbW + clip.x0) * 4
		so := (sy*tw + sx0) * 4

		if o8 == 255 && tex.opaque {
			copy(r.fb[fo:fo+wpx*4], tex.pix[so:so+wpx*4])
			continue
		}

		for x := 0; x < wpx; x++ {
			a := uint32(tex.pix[so+3])
			ea := mul255(a, o8)
			switch ea {
			case 0:
			case 255:
				r.fb[fo] = tex.pix[so]
				r.fb[fo+1] = tex.pix[so+1]
				r.fb[fo+2] = tex.pix[so+2]
				r.fb[fo+3] = 0xff
			default:
				inv := 255 - ea
				r.fb[fo] = uint8(mul255(uint32(tex.pix[so]), o8) + mul255(uint32(r.fb[fo]), inv))
				r.fb[fo+1] = uint8(mul255(uint32(tex.pix[so+1]), o8) + mul255(uint32(r.fb[fo+1]), inv))
				r.fb[fo+2] = uint8(mul255(uint32(tex.pix[so+2]), o8) + mul255(uint32(r.fb[fo+2]), inv))
				r.fb[fo+3] = 0xff
			}
			fo += 4
			so += 4
		}
	}
}

// convertToBGRA expands src rows into tightly packed 4-byte BGRA.
func convertToBGRA(dst, src []byte, width, height, stride int32, format shm.Format) error {
	w, h := int(width), int(height)
	switch format {
	case shm.FormatARGB8888, shm.FormatXRGB8888:
		for row := 0; row < h; row++ {
			so := row * int(stride)
			do := row * w * 4
			copy(dst[do:do+w*4], src[so:so+w*4])
		}
		if format == shm.FormatXRGB8888 {
			for i := 3; i < len(dst); i += 4 {
				dst[i] = 0xff
			}
		}
	case shm.FormatRGB565:
		for row := 0; row < h; row++ {
			so := row * int(stride)
			do := row * w * 4
			for col := 0; col < w; col++ {
				px := uint16(src[so]) | uint16(src[so+1])<<8
				rb := uint8(px >> 11 & 0x1f)
				gb := uint8(px >> 5 & 0x3f)
				bb := uint8(px & 0x1f)
				dst[do] = bb<<3 | bb>>2
				dst[do+1] = gb<<2 | gb>>4
				dst[do+2] = rb<<3 | rb>>2
				dst[do+3] = 0xff
				so += 2
				do += 4
			}
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	return nil
}

// mul255 multiplies two 0..255 values with correct rounding.
func mul255(x, y uint32) uint32 {
	v := x * y
	return (v + 1 + (v >> 8)) >> 8
}

type pixRect struct {
	x0, y0, x1, y1 int
}

// toPixels converts a logical rect to integer pixels clamped to the
// output, reporting false when nothing remains.
func toPixels(r geometry.Rect, w, h int) (pixRect, bool) {
	pr := pixRect{
		x0: int(math.Floor(r.X)),
		y0: int(math.Floor(r.Y)),
		x1: int(math.Ceil(r.X + r.W)),
		y1: int(math.Ceil(r.Y + r.H)),
	}
	pr.x0 = max(pr.x0, 0)
	pr.y0 = max(pr.y0, 0)
	pr.x1 = min(pr.x1, w)
	pr.y1 = min(pr.y1, h)
	if pr.x0 >= pr.x1 || pr.y0 >= pr.y1 {
		return pixRect{}, false
	}
	return pr, true
}

func intersectPix(a, b pixRect) pixRect {
	return pixRect{
		x0: max(a.x0, b.x0),
		y0: max(a.y0, b.y0),
		x1: min(a.x1, b.x1),
		y1: min(a.y1, b.y1),
	}
}

func fillRect(fb []byte, fbW int, r pixRect, c color.NRGBA) {
	for y := r.y0; y < r.y1; y++ {
		off := (y*fbW + r.x0) * 4
		for x := r.x0; x < r.x1; x++ {
			fb[off] = c.B
			fb[off+1] = c.G
			fb[off+2] = c.R
			fb[off+3] = 0xff
			off += 4
		}
	}
}
