package render

import (
	"sync/atomic"

	"github.com/waywardwm/wayward/internal/shm"
)

// Well-known dmabuf layout modifiers.
const (
	// ModifierLinear marks a plain row-major layout.
	ModifierLinear uint64 = 0
	// ModifierInvalid marks an unspecified, driver-chosen layout.
	ModifierInvalid uint64 = 0x00ffffffffffffff
)

var dmabufIDCounter uint64

// DMABuf describes a single-plane hardware buffer shared by file
// descriptor. The descriptor stays owned by the caller; importing does
// not close it.
type DMABuf struct {
	id       uint64
	FD       int
	Width    int32
	Height   int32
	Stride   int32
	Offset   int32
	Format   shm.Format
	Modifier uint64
}

// NewDMABuf wraps a hardware buffer descriptor and assigns it a stable
// identity for texture caching.
func NewDMABuf(fd int, width, height, stride, offset int32, format shm.Format, modifier uint64) *DMABuf {
	return &DMABuf{
		id:       atomic.AddUint64(&dmabufIDCounter, 1),
		FD:       fd,
		Width:    width,
		Height:   height,
		Stride:   stride,
		Offset:   offset,
		Format:   format,
		Modifier: modifier,
	}
}

// ID returns the buffer's cache identity.
func (b *DMABuf) ID() uint64 {
	return b.id
}
