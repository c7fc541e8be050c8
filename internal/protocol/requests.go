package protocol

import "github.com/waywardwm/wayward/internal/shm"

// CreatePool shares a memory file with the compositor. The descriptor
// is owned by the compositor from the moment the request is handed
// over, whether or not it succeeds.
type CreatePool struct {
	PoolID uint32
	FD     int
	Size   int32
}

// ResizePool grows a pool after the client enlarged the backing file.
// Shrinking below any created buffer's extent is an error.
type ResizePool struct {
	PoolID uint32
	Size   int32
}

// DestroyPool drops the client's pool handle. Buffers created from the
// pool keep working until each is destroyed.
type DestroyPool struct {
	PoolID uint32
}

// CreateBuffer carves a typed view out of a pool.
type CreateBuffer struct {
	BufferID uint32
	PoolID   uint32
	Offset   int32
	Width    int32
	Height   int32
	Stride   int32
	Format   shm.Format
}

// DestroyBuffer drops the client's buffer handle.
type DestroyBuffer struct {
	BufferID uint32
}

// CreateSurface creates a surface with no role.
type CreateSurface struct {
	SurfaceID uint32
}

// DestroySurface destroys a surface and its role object.
type DestroySurface struct {
	SurfaceID uint32
}

// Attach stages a buffer for the surface's next commit. BufferID 0
// detaches, unmapping the surface on commit.
type Attach struct {
	SurfaceID uint32
	BufferID  uint32
}

// Damage marks a surface-local rect as changed since the last commit.
type Damage struct {
	SurfaceID uint32
	X, Y      int32
	W, H      int32
}

// SetInputRegion stages the surface's input region. Infinite restores
// the default whole-surface region; otherwise the union of rects is
// used, which may be empty for click-through surfaces.
type SetInputRegion struct {
	SurfaceID uint32
	Infinite  bool
	Rects     []RegionRect
}

// RegionRect is one surface-local rectangle of an input region.
type RegionRect struct {
	X, Y int32
	W, H int32
}

// Frame asks for one FrameDone on the next presented frame that
// includes the surface's current content.
type Frame struct {
	SurfaceID  uint32
	CallbackID uint32
}

// Commit atomically applies all staged surface state.
type Commit struct {
	SurfaceID uint32
}

// CreateToplevel assigns the toplevel role to a surface.
type CreateToplevel struct {
	WindowID  uint32
	SurfaceID uint32
}

// CreatePopup assigns the popup role to a surface, positioned relative
// to the parent window's origin.
type CreatePopup struct {
	WindowID  uint32
	SurfaceID uint32
	ParentID  uint32
	OffsetX   float64
	OffsetY   float64
}

// DestroyWindow destroys a window role, leaving the surface roleless.
type DestroyWindow struct {
	WindowID uint32
}

// SetTitle sets a toplevel's title.
type SetTitle struct {
	WindowID uint32
	Title    string
}

// SetAppID sets a toplevel's application id.
type SetAppID struct {
	WindowID uint32
	AppID    string
}

// AckConfigure acknowledges a Configure event. The next commit then
// realizes the acknowledged state.
type AckConfigure struct {
	WindowID uint32
	Serial   uint32
}

// SetMaximized requests entering or leaving the maximized state.
type SetMaximized struct {
	WindowID  uint32
	Maximized bool
}

// SetFullscreen requests entering or leaving fullscreen.
type SetFullscreen struct {
	WindowID   uint32
	Fullscreen bool
}

// SetMinimized requests minimizing. There is no unminimize request;
// restoring is compositor policy.
type SetMinimized struct {
	WindowID uint32
}

// SetDecorationMode asks who should draw the window frame. The
// compositor answers with a DecorationMode event carrying its
// decision.
type SetDecorationMode struct {
	WindowID   uint32
	ServerSide bool
}

func (CreatePool) isRequest()        {}
func (ResizePool) isRequest()        {}
func (DestroyPool) isRequest()       {}
func (CreateBuffer) isRequest()      {}
func (DestroyBuffer) isRequest()     {}
func (CreateSurface) isRequest()     {}
func (DestroySurface) isRequest()    {}
func (Attach) isRequest()            {}
func (Damage) isRequest()            {}
func (SetInputRegion) isRequest()    {}
func (Frame) isRequest()             {}
func (Commit) isRequest()            {}
func (CreateToplevel) isRequest()    {}
func (CreatePopup) isRequest()       {}
func (DestroyWindow) isRequest()     {}
func (SetTitle) isRequest()          {}
func (SetAppID) isRequest()          {}
func (AckConfigure) isRequest()      {}
func (SetMaximized) isRequest()      {}
func (SetFullscreen) isRequest()     {}
func (SetMinimized) isRequest()      {}
func (SetDecorationMode) isRequest() {}
