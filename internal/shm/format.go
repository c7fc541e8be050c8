package shm

import "fmt"

// Format is a pixel format for shared-memory buffers. Values follow the
// Wayland wl_shm encoding: ARGB8888 and XRGB8888 use the reserved enum
// values 0 and 1, everything else is a fourcc code.
type Format uint32

const (
	FormatARGB8888 Format = 0
	FormatXRGB8888 Format = 1
	FormatRGB565   Format = 0x36314752 // 'RG16'
)

// BytesPerPixel returns the pixel size in bytes, or 0 for unknown formats.
func (f Format) BytesPerPixel() int32 {
	switch f {
	case FormatARGB8888, FormatXRGB8888:
		return 4
	case FormatRGB565:
		return 2
	default:
		return 0
	}
}

// Valid reports whether the format is one the compositor accepts.
func (f Format) Valid() bool {
	return f.BytesPerPixel() != 0
}

// Opaque reports whether the format carries no alpha channel. Opaque
// buffers can skip blending during composition.
func (f Format) Opaque() bool {
	switch f {
	case FormatXRGB8888, FormatRGB565:
		return true
	default:
		return false
	}
}

func (f Format) String() string {
	switch f {
	case FormatARGB8888:
		return "ARGB8888"
	case FormatXRGB8888:
		return "XRGB8888"
	case FormatRGB565:
		return "RGB565"
	default:
		return fmt.Sprintf("Format(0x%x)", uint32(f))
	}
}
