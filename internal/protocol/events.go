package protocol

// Configure proposes a window size and state set. The client answers
// with AckConfigure followed by a commit at the new size.
type Configure struct {
	WindowID uint32
	Serial   uint32
	Width    int32
	Height   int32
	States   StateFlags
}

// Closed asks the client to close a window. The client decides when to
// actually destroy it.
type Closed struct {
	WindowID uint32
}

// DecorationMode announces who draws the window frame, answering
// SetDecorationMode.
type DecorationMode struct {
	WindowID   uint32
	ServerSide bool
}

// BufferReleased tells the client the compositor no longer reads a
// buffer, making it safe to reuse.
type BufferReleased struct {
	BufferID uint32
}

// FrameDone fires a frame callback.
type FrameDone struct {
	CallbackID uint32
	Time       uint32
}

// PointerEnter notifies that the pointer moved onto a surface.
type PointerEnter struct {
	SurfaceID uint32
	Serial    uint32
	X, Y      float64
}

// PointerLeave notifies that the pointer left a surface.
type PointerLeave struct {
	SurfaceID uint32
	Serial    uint32
}

// PointerMotion reports pointer movement within the focused surface,
// in surface-local coordinates.
type PointerMotion struct {
	Time uint32
	X, Y float64
}

// PointerButton reports a button press or release on the focused
// surface.
type PointerButton struct {
	Serial  uint32
	Time    uint32
	Button  uint32
	Pressed bool
}

// PointerAxis reports scrolling on the focused surface.
type PointerAxis struct {
	Serial uint32
	Time   uint32
	Axis   uint32
	Value  float64
}

// KeyboardEnter notifies that a surface gained keyboard focus. Keys
// lists the keys already held, so the client never misses a press.
type KeyboardEnter struct {
	SurfaceID uint32
	Serial    uint32
	Keys      []uint32
}

// KeyboardLeave notifies that a surface lost keyboard focus.
type KeyboardLeave struct {
	SurfaceID uint32
	Serial    uint32
}

// Key reports a key press or release on the focused surface.
type Key struct {
	Serial  uint32
	Time    uint32
	Key     uint32
	Pressed bool
}

// Modifiers reports the keyboard modifier state.
type Modifiers struct {
	Serial    uint32
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

// TouchDown reports a new touch point on a surface.
type TouchDown struct {
	SurfaceID uint32
	Serial    uint32
	Time      uint32
	Slot      int32
	X, Y      float64
}

// TouchUp reports a lifted touch point.
type TouchUp struct {
	Serial uint32
	Time   uint32
	Slot   int32
}

// TouchMotion reports movement of an active touch point, in
// coordinates local to the surface the point went down on.
type TouchMotion struct {
	Time uint32
	Slot int32
	X, Y float64
}

// TouchCancel aborts all of the client's active touch points.
type TouchCancel struct {
	Serial uint32
}

// Error reports a fatal protocol error just before disconnect.
type Error struct {
	ObjectID uint32
	Code     ErrorCode
	Message  string
}

func (Configure) isEvent()      {}
func (Closed) isEvent()         {}
func (DecorationMode) isEvent() {}
func (BufferReleased) isEvent() {}
func (FrameDone) isEvent()      {}
func (PointerEnter) isEvent()   {}
func (PointerLeave) isEvent()   {}
func (PointerMotion) isEvent()  {}
func (PointerButton) isEvent()  {}
func (PointerAxis) isEvent()    {}
func (KeyboardEnter) isEvent()  {}
func (KeyboardLeave) isEvent()  {}
func (Key) isEvent()            {}
func (Modifiers) isEvent()      {}
func (TouchDown) isEvent()      {}
func (TouchUp) isEvent()        {}
func (TouchMotion) isEvent()    {}
func (TouchCancel) isEvent()    {}
func (Error) isEvent()          {}
