// Package shm maps client-supplied file descriptors into process memory and
// carves typed buffer views out of the mapping. It is the only package that
// touches raw OS memory; everything above it sees buffer contents as an
// opaque byte region behind Buffer.Access.
package shm

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	// ErrInvalidSize is returned for non-positive pool sizes
	ErrInvalidSize = errors.New("pool size must be positive")
	// ErrMapFailed is returned when the OS memory map call fails
	ErrMapFailed = errors.New("memory map failed")
	// ErrInvalidParameters is returned for buffer geometry that does not fit the pool
	ErrInvalidParameters = errors.New("invalid buffer parameters")
	// ErrShrinkNotAllowed is returned when a resize would orphan a live buffer
	ErrShrinkNotAllowed = errors.New("resize would orphan a live buffer")
	// ErrPoolDestroyed is returned when operating on a destroyed pool
	ErrPoolDestroyed = errors.New("pool is destroyed")
	// ErrBufferReleased is returned when accessing a released buffer
	ErrBufferReleased = errors.New("buffer is released")
)

// Pool is a memory mapping shared between the compositor and one client.
// The mapping is reference counted: the pool handle holds one reference and
// every live Buffer view holds another, so the bytes stay mapped until the
// handle is destroyed and the last view is released.
//
// All mutation happens on the compositor loop goroutine. The one concurrency
// concession is Buffer.Access, which holds the read half of mu so a render
// step on another goroutine can read pixels while Resize is excluded.
type Pool struct {
	mu   sync.RWMutex
	data []byte
	fd   int
	size int32

	refs      int
	destroyed bool
	buffers   map[uint64]*Buffer
}

// NewPool maps size bytes of fd and returns a pool owning the mapping.
// The pool maps through a private duplicate of fd and closes the original
// on success, so the caller's descriptor never leaks. On failure the
// original descriptor stays with the caller.
func NewPool(fd int, size int32) (*Pool, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	dup, err := unix.Dup(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: dup: %v", ErrMapFailed, err)
	}

	data, err := unix.Mmap(dup, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(dup)
		return nil, fmt.Errorf("%w: %v", ErrMapFailed, err)
	}
	_ = unix.Close(fd)

	return &Pool{
		data:    data,
		fd:      dup,
		size:    size,
		refs:    1,
		buffers: make(map[uint64]*Buffer),
	}, nil
}

// Size returns the pool's current byte length.
func (p *Pool) Size() int32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.size
}

// CreateBuffer carves a view of the pool at offset with the given geometry.
// The view holds a reference on the mapping until released.
func (p *Pool) CreateBuffer(offset, width, height, stride int32, format Format) (*Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return nil, ErrPoolDestroyed
	}
	if width <= 0 || height <= 0 || stride <= 0 || offset < 0 {
		return nil, fmt.Errorf("%w: %dx%d stride %d at offset %d", ErrInvalidParameters, width, height, stride, offset)
	}
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("%w: unknown format %s", ErrInvalidParameters, format)
	}
	if stride < width*bpp {
		return nil, fmt.Errorf("%w: stride %d too small for width %d (%s)", ErrInvalidParameters, stride, width, format)
	}
	if int64(offset)+int64(stride)*int64(height) > int64(p.size) {
		return nil, fmt.Errorf("%w: extent %d exceeds pool size %d", ErrInvalidParameters, int64(offset)+int64(stride)*int64(height), p.size)
	}

	b := &Buffer{
		pool:   p,
		id:     nextBufferID(),
		offset: offset,
		width:  width,
		height: height,
		stride: stride,
		format: format,
	}
	p.buffers[b.id] = b
	p.refs++
	return b, nil
}

// Resize changes the pool's byte length. Shrinking below the extent of any
// live buffer fails with ErrShrinkNotAllowed and leaves the mapping
// untouched. On success existing buffer views stay valid at their offsets.
func (p *Pool) Resize(newSize int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return ErrPoolDestroyed
	}
	if newSize <= 0 {
		return ErrInvalidSize
	}
	for _, b := range p.buffers {
		if extent := int64(b.offset) + int64(b.stride)*int64(b.height); extent > int64(newSize) {
			return fmt.Errorf("%w: buffer extent %d, new size %d", ErrShrinkNotAllowed, extent, newSize)
		}
	}
	if newSize == p.size {
		return nil
	}

	// Map the new length before tearing down the old mapping, so a failed
	// mmap leaves the pool fully usable.
	data, err := unix.Mmap(p.fd, 0, int(newSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMapFailed, err)
	}
	_ = unix.Munmap(p.data)
	p.data = data
	p.size = newSize
	return nil
}

// Destroy drops the pool handle's reference. Live buffer views keep the
// mapping alive; the OS mapping and descriptor are released when the last
// reference is gone. Destroy is idempotent.
func (p *Pool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return
	}
	p.destroyed = true
	p.releaseLocked()
}

// releaseLocked drops one reference and unmaps at zero. Callers hold mu.
func (p *Pool) releaseLocked() {
	p.refs--
	if p.refs > 0 {
		return
	}
	if p.data != nil {
		_ = unix.Munmap(p.data)
		p.data = nil
	}
	if p.fd >= 0 {
		_ = unix.Close(p.fd)
		p.fd = -1
	}
}

// CreateAnonymousFile returns a descriptor backed by anonymous shared
// memory, sized and ready to map. Used by the headless backend and tests
// to stand in for client-provided descriptors.
func CreateAnonymousFile(size int64) (int, error) {
	fd, err := unix.MemfdCreate("wayward-shm", unix.MFD_CLOEXEC)
	if err != nil {
		return -1, fmt.Errorf("memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, size); err != nil {
		_ = unix.Close(fd)
		return -1, fmt.Errorf("ftruncate: %w", err)
	}
	return fd, nil
}
