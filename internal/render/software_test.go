package render

import (
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/shm"
)

func testOutput(w, h int32) OutputGeometry {
	return OutputGeometry{
		Name:  "HEADLESS-1",
		Size:  geometry.Size{W: w, H: h},
		Scale: 1,
	}
}

// solidBuffer creates a shared-memory buffer with every pixel set to
// the given raw bytes (little-endian, bpp bytes per pixel).
func solidBuffer(t *testing.T, width, height int32, format shm.Format, px []byte) *shm.Buffer {
	t.Helper()
	bpp := format.BytesPerPixel()
	require.Equal(t, int(bpp), len(px))

	stride := width * bpp
	fd, err := shm.CreateAnonymousFile(int64(stride) * int64(height))
	require.NoError(t, err)
	pool, err := shm.NewPool(fd, stride*height)
	require.NoError(t, err)
	buf, err := pool.CreateBuffer(0, width, height, stride, format)
	require.NoError(t, err)
	require.NoError(t, buf.Access(func(data []byte) error {
		for i := 0; i < len(data); i += int(bpp) {
			copy(data[i:], px)
		}
		return nil
	}))
	t.Cleanup(func() {
		buf.Release()
		pool.Destroy()
	})
	return buf
}

func pixelAt(pix []byte, fbW, x, y int) [4]byte {
	off := (y*fbW + x) * 4
	return [4]byte{pix[off], pix[off+1], pix[off+2], pix[off+3]}
}

func TestImportSHMBufferConvertsFormats(t *testing.T) {
	r := NewSoftware(nil)

	t.Run("argb8888 keeps bytes and alpha", func(t *testing.T) {
		buf := solidBuffer(t, 4, 4, shm.FormatARGB8888, []byte{0x10, 0x20, 0x30, 0x80})
		tex, err := r.ImportSHMBuffer(buf)
		require.NoError(t, err)

		st := tex.(*softwareTexture)
		assert.Equal(t, geometry.Size{W: 4, H: 4}, tex.Size())
		assert.False(t, tex.Opaque())
		assert.Equal(t, []byte{0x10, 0x20, 0x30, 0x80}, st.pix[:4])
	})

	t.Run("xrgb8888 forces alpha opaque", func(t *testing.T) {
		buf := solidBuffer(t, 4, 4, shm.FormatXRGB8888, []byte{0x10, 0x20, 0x30, 0x00})
		tex, err := r.ImportSHMBuffer(buf)
		require.NoError(t, err)

		st := tex.(*softwareTexture)
		assert.True(t, tex.Opaque())
		assert.Equal(t, []byte{0x10, 0x20, 0x30, 0xff}, st.pix[:4])
	})

	t.Run("rgb565 expands with bit replication", func(t *testing.T) {
		// 0xF800 is pure red in 565.
		buf := solidBuffer(t, 4, 4, shm.FormatRGB565, []byte{0x00, 0xF8})
		tex, err := r.ImportSHMBuffer(buf)
		require.NoError(t, err)

		st := tex.(*softwareTexture)
		assert.True(t, tex.Opaque())
		assert.Equal(t, []byte{0x00, 0x00, 0xff, 0xff}, st.pix[:4])
	})

	t.Run("rgb565 white is full white", func(t *testing.T) {
		buf := solidBuffer(t, 2, 2, shm.FormatRGB565, []byte{0xff, 0xff})
		tex, err := r.ImportSHMBuffer(buf)
		require.NoError(t, err)

		st := tex.(*softwareTexture)
		assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, st.pix[:4])
	})
}

func TestImportServesCacheUntilCleared(t *testing.T) {
	r := NewSoftware(nil)
	buf := solidBuffer(t, 2, 2, shm.FormatARGB8888, []byte{0xff, 0x00, 0x00, 0xff})

	first, err := r.ImportSHMBuffer(buf)
	require.NoError(t, err)

	// Client writes new content; without an invalidation the cache
	// still serves the old texture.
	require.NoError(t, buf.Access(func(data []byte) error {
		data[0] = 0x00
		data[2] = 0xff
		return nil
	}))
	again, err := r.ImportSHMBuffer(buf)
	require.NoError(t, err)
	assert.Same(t, first, again)

	r.ClearTextureCache(first.Key())
	fresh, err := r.ImportSHMBuffer(buf)
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.Equal(t, byte(0xff), fresh.(*softwareTexture).pix[2])
}

func TestImportReleasedBufferFails(t *testing.T) {
	r := NewSoftware(nil)
	buf := solidBuffer(t, 2, 2, shm.FormatARGB8888, []byte{0, 0, 0, 0xff})
	buf.Release()

	_, err := r.ImportSHMBuffer(buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImportFailed)
}

func TestRenderFillsClearColor(t *testing.T) {
	rec := &presentRecorder{}
	r := NewSoftware(rec.present)
	out := testOutput(16, 16)

	require.NoError(t, r.BeginFrame(out))
	require.NoError(t, r.RenderElements(nil, color.NRGBA{R: 0x20, G: 0x40, B: 0x60, A: 0xff}, nil))
	require.NoError(t, r.FinishFrame())

	require.Len(t, rec.frames, 1)
	frame := rec.last()
	assert.Equal(t, out, frame.out)
	assert.Equal(t, [4]byte{0x60, 0x40, 0x20, 0xff}, pixelAt(frame.pix, 16, 0, 0))
	assert.Equal(t, [4]byte{0x60, 0x40, 0x20, 0xff}, pixelAt(frame.pix, 16, 15, 15))
}

func TestRenderCompositesOpaqueElement(t *testing.T) {
	rec := &presentRecorder{}
	r := NewSoftware(rec.present)
	buf := solidBuffer(t, 8, 8, shm.FormatARGB8888, []byte{0x00, 0x00, 0xff, 0xff})

	tex, err := r.ImportSHMBuffer(buf)
	require.NoError(t, err)

	require.NoError(t, r.BeginFrame(testOutput(32, 32)))
	els := []Element{{
		Texture: tex,
		Dst:     geometry.RectFromSize(tex.Size()).Offset(8, 8),
		Opacity: 1,
	}}
	require.NoError(t, r.RenderElements(els, color.NRGBA{A: 0xff}, nil))
	require.NoError(t, r.FinishFrame())

	pix := rec.last().pix
	red := [4]byte{0x00, 0x00, 0xff, 0xff}
	black := [4]byte{0x00, 0x00, 0x00, 0xff}
	assert.Equal(t, red, pixelAt(pix, 32, 8, 8))
	assert.Equal(t, red, pixelAt(pix, 32, 15, 15))
	assert.Equal(t, black, pixelAt(pix, 32, 7, 8))
	assert.Equal(t, black, pixelAt(pix, 32, 16, 16))
}

func TestRenderBlendsPremultipliedAlpha(t *testing.T) {
	rec := &presentRecorder{}
	r := NewSoftware(rec.present)

	t.Run("half alpha white over black", func(t *testing.T) {
		buf := solidBuffer(t, 4, 4, shm.FormatARGB8888, []byte{0x80, 0x80, 0x80, 0x80})
		tex, err := r.ImportSHMBuffer(buf)
		require.NoError(t, err)

		require.NoError(t, r.BeginFrame(testOutput(8, 8)))
		els := []Element{{Texture: tex, Dst: geometry.RectFromSize(tex.Size()), Opacity: 1}}
		require.NoError(t, r.RenderElements(els, color.NRGBA{A: 0xff}, nil))
		require.NoError(t, r.FinishFrame())

		assert.Equal(t, [4]byte{0x80, 0x80, 0x80, 0xff}, pixelAt(rec.last().pix, 8, 2, 2))
	})

	t.Run("element opacity halves an opaque source", func(t *testing.T) {
		buf := solidBuffer(t, 4, 4, shm.FormatXRGB8888, []byte{0x00, 0x00, 0xff, 0x00})
		tex, err := r.ImportSHMBuffer(buf)
		require.NoError(t, err)

		require.NoError(t, r.BeginFrame(testOutput(8, 8)))
		els := []Element{{Texture: tex, Dst: geometry.RectFromSize(tex.Size()), Opacity: 0.5}}
		require.NoError(t, r.RenderElements(els, color.NRGBA{A: 0xff}, nil))
		require.NoError(t, r.FinishFrame())

		got := pixelAt(rec.last().pix, 8, 2, 2)
		assert.InDelta(t, 0x80, int(got[2]), 1)
		assert.Equal(t, byte(0x00), got[0])
	})
}

func TestRenderRespectsDamageClip(t *testing.T) {
	rec := &presentRecorder{}
	r := NewSoftware(rec.present)
	out := testOutput(64, 64)

	require.NoError(t, r.BeginFrame(out))
	require.NoError(t, r.RenderElements(nil, color.NRGBA{R: 0xff, A: 0xff}, nil))
	require.NoError(t, r.FinishFrame())

	// Second frame repaints only a small rect; the rest of the
	// framebuffer must survive untouched.
	require.NoError(t, r.BeginFrame(out))
	damage := []geometry.Rect{{X: 40, Y: 40, W: 8, H: 8}}
	require.NoError(t, r.RenderElements(nil, color.NRGBA{B: 0xff, A: 0xff}, damage))
	require.NoError(t, r.FinishFrame())

	pix := rec.last().pix
	assert.Equal(t, [4]byte{0x00, 0x00, 0xff, 0xff}, pixelAt(pix, 64, 0, 0), "outside damage keeps previous frame")
	assert.Equal(t, [4]byte{0xff, 0x00, 0x00, 0xff}, pixelAt(pix, 64, 41, 41), "inside damage repainted")
	assert.Equal(t, [4]byte{0x00, 0x00, 0xff, 0xff}, pixelAt(pix, 64, 48, 48), "damage rect is half-open")
}

func TestRenderPaintsBackToFront(t *testing.T) {
	rec := &presentRecorder{}
	r := NewSoftware(rec.present)
	redBuf := solidBuffer(t, 16, 16, shm.FormatXRGB8888, []byte{0x00, 0x00, 0xff, 0x00})
	greenBuf := solidBuffer(t, 16, 16, shm.FormatXRGB8888, []byte{0x00, 0xff, 0x00, 0x00})

	red, err := r.ImportSHMBuffer(redBuf)
	require.NoError(t, err)
	green, err := r.ImportSHMBuffer(greenBuf)
	require.NoError(t, err)

	require.NoError(t, r.BeginFrame(testOutput(32, 32)))
	els := []Element{
		{Texture: red, Dst: geometry.RectFromSize(red.Size()), Opacity: 1},
		{Texture: green, Dst: geometry.RectFromSize(green.Size()).Offset(8, 0), Opacity: 1},
	}
	require.NoError(t, r.RenderElements(els, color.NRGBA{A: 0xff}, nil))
	require.NoError(t, r.FinishFrame())

	pix := rec.last().pix
	assert.Equal(t, [4]byte{0x00, 0x00, 0xff, 0xff}, pixelAt(pix, 32, 4, 4), "left strip shows the lower element")
	assert.Equal(t, [4]byte{0x00, 0xff, 0x00, 0xff}, pixelAt(pix, 32, 12, 4), "overlap shows the element later in the list")
}

func TestFrameLifecycle(t *testing.T) {
	r := NewSoftware(nil)

	assert.Error(t, r.RenderElements(nil, color.NRGBA{}, nil))
	assert.Error(t, r.FinishFrame())

	require.NoError(t, r.BeginFrame(testOutput(8, 8)))
	assert.Error(t, r.BeginFrame(testOutput(8, 8)), "nested frames are not allowed")
	require.NoError(t, r.FinishFrame())

	r.MarkLost()
	err := r.BeginFrame(testOutput(8, 8))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendGone)

	buf := solidBuffer(t, 2, 2, shm.FormatARGB8888, []byte{0, 0, 0, 0xff})
	_, err = r.ImportSHMBuffer(buf)
	assert.ErrorIs(t, err, ErrBackendGone)
}

func TestPresentFailureIsReported(t *testing.T) {
	rec := &presentRecorder{err: errors.New("connector unplugged")}
	r := NewSoftware(rec.present)

	require.NoError(t, r.BeginFrame(testOutput(8, 8)))
	require.NoError(t, r.RenderElements(nil, color.NRGBA{A: 0xff}, nil))
	err := r.FinishFrame()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPresentFailed)

	// The frame is over even though present failed; the next frame
	// may begin.
	assert.NoError(t, r.BeginFrame(testOutput(8, 8)))
}

func TestImportDMABuf(t *testing.T) {
	r := NewSoftware(nil)

	newDMAFD := func(t *testing.T, px []byte) int {
		t.Helper()
		fd, err := shm.CreateAnonymousFile(4 * 4 * 4)
		require.NoError(t, err)
		data, err := unix.Mmap(fd, 0, 4*4*4, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		require.NoError(t, err)
		for i := 0; i < len(data); i += 4 {
			copy(data[i:], px)
		}
		require.NoError(t, unix.Munmap(data))
		t.Cleanup(func() { unix.Close(fd) })
		return fd
	}

	t.Run("linear import converts pixels", func(t *testing.T) {
		fd := newDMAFD(t, []byte{0xff, 0x00, 0x00, 0xff})
		buf := NewDMABuf(fd, 4, 4, 16, 0, shm.FormatARGB8888, ModifierLinear)

		tex, err := r.ImportDMABuf(buf)
		require.NoError(t, err)
		assert.Equal(t, geometry.Size{W: 4, H: 4}, tex.Size())
		assert.True(t, tex.Key().DMA)
		assert.Equal(t, []byte{0xff, 0x00, 0x00, 0xff}, tex.(*softwareTexture).pix[:4])

		// The descriptor stays owned by the caller.
		var st unix.Stat_t
		assert.NoError(t, unix.Fstat(fd, &st))
	})

	t.Run("tiled layout is rejected", func(t *testing.T) {
		fd := newDMAFD(t, []byte{0, 0, 0, 0xff})
		buf := NewDMABuf(fd, 4, 4, 16, 0, shm.FormatARGB8888, ModifierInvalid)

		_, err := r.ImportDMABuf(buf)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDriverRejected)
	})

	t.Run("undersized stride is rejected", func(t *testing.T) {
		fd := newDMAFD(t, []byte{0, 0, 0, 0xff})
		buf := NewDMABuf(fd, 4, 4, 8, 0, shm.FormatARGB8888, ModifierLinear)

		_, err := r.ImportDMABuf(buf)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrImportFailed)
	})

	t.Run("unknown format is rejected", func(t *testing.T) {
		fd := newDMAFD(t, []byte{0, 0, 0, 0xff})
		buf := NewDMABuf(fd, 4, 4, 16, 0, shm.Format(0x9999), ModifierLinear)

		_, err := r.ImportDMABuf(buf)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

// presentRecorder captures presented frames, copying the pixel slice
// the renderer reuses.
type presentRecorder struct {
	frames []presentedFrame
	err    error
}

type presentedFrame struct {
	out OutputGeometry
	pix []byte
}

func (p *presentRecorder) present(out OutputGeometry, pix []byte) error {
	if p.err != nil {
		return p.err
	}
	cp := make([]byte, len(pix))
	copy(cp, pix)
	p.frames = append(p.frames, presentedFrame{out: out, pix: cp})
	return nil
}

func (p *presentRecorder) last() presentedFrame {
	return p.frames[len(p.frames)-1]
}
