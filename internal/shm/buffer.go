package shm

import (
	"sync/atomic"

	"github.com/waywardwm/wayward/internal/geometry"
)

var bufferIDCounter uint64

// nextBufferID hands out process-unique buffer identities. The renderer
// keys its texture cache on them.
func nextBufferID() uint64 {
	return atomic.AddUint64(&bufferIDCounter, 1)
}

// Buffer is a typed rectangular view into a pool's mapping. Views share
// ownership of the mapping and may outlive the pool handle that created
// them.
type Buffer struct {
	pool   *Pool
	id     uint64
	offset int32
	width  int32
	height int32
	stride int32
	format Format

	released bool
}

// ID returns the buffer's process-unique identity.
func (b *Buffer) ID() uint64 { return b.id }

// Width returns the buffer width in pixels.
func (b *Buffer) Width() int32 { return b.width }

// Height returns the buffer height in pixels.
func (b *Buffer) Height() int32 { return b.height }

// Stride returns the byte length of one pixel row.
func (b *Buffer) Stride() int32 { return b.stride }

// Offset returns the view's byte offset into the pool.
func (b *Buffer) Offset() int32 { return b.offset }

// Format returns the buffer's pixel format.
func (b *Buffer) Format() Format { return b.format }

// Size returns the buffer dimensions.
func (b *Buffer) Size() geometry.Size {
	return geometry.Size{W: b.width, H: b.height}
}

// Access runs fn over the buffer's bytes (stride*height of them, starting
// at the view's offset) while holding the pool's read lock, so a resize
// cannot remap the memory out from under fn. The slice is only valid for
// the duration of the call.
func (b *Buffer) Access(fn func(data []byte) error) error {
	b.pool.mu.RLock()
	defer b.pool.mu.RUnlock()

	if b.released {
		return ErrBufferReleased
	}
	if b.pool.data == nil {
		return ErrPoolDestroyed
	}
	end := b.offset + b.stride*b.height
	return fn(b.pool.data[b.offset:end:end])
}

// Release drops the view's reference on the pool mapping. Idempotent; the
// mapping is unmapped once the pool handle and all views are gone.
func (b *Buffer) Release() {
	b.pool.mu.Lock()
	defer b.pool.mu.Unlock()

	if b.released {
		return
	}
	b.released = true
	delete(b.pool.buffers, b.id)
	b.pool.releaseLocked()
}

// Released reports whether the view has been released.
func (b *Buffer) Released() bool {
	b.pool.mu.RLock()
	defer b.pool.mu.RUnlock()
	return b.released
}
