// Package protocol defines the request and event vocabulary spoken
// between clients and the compositor core. Object references are
// client-scoped uint32 ids chosen by the client; id 0 is the null
// object. The compositor maps them to internal objects per client, so
// ids from different clients never collide.
package protocol

// Conn delivers events to one client. Implementations decide the
// transport; the core only needs ordered, reliable delivery.
type Conn interface {
	Send(ev Event) error
	Close() error
}

// Request is a client-to-compositor message. The set of
// implementations is closed; the dispatcher type-switches over it.
type Request interface {
	isRequest()
}

// Event is a compositor-to-client message.
type Event interface {
	isEvent()
}

// ErrorCode classifies a fatal protocol error.
type ErrorCode uint32

const (
	// CodeInvalidObject means a request referenced an id the client
	// never created or already destroyed.
	CodeInvalidObject ErrorCode = iota + 1
	// CodeInvalidArgument means a request carried out-of-range values.
	CodeInvalidArgument
	// CodeProtocolViolation means a request was illegal in the current
	// state, like attaching a destroyed buffer.
	CodeProtocolViolation
	// CodeNoMemory means the compositor could not satisfy an
	// allocation on the client's behalf.
	CodeNoMemory
)

func (c ErrorCode) String() string {
	switch c {
	case CodeInvalidObject:
		return "invalid object"
	case CodeInvalidArgument:
		return "invalid argument"
	case CodeProtocolViolation:
		return "protocol violation"
	case CodeNoMemory:
		return "no memory"
	default:
		return "unknown error"
	}
}

// StateFlags is the window state bitmask carried by Configure events.
type StateFlags uint32

const (
	StateActivated StateFlags = 1 << iota
	StateMaximized
	StateFullscreen
	StateResizing
	StateTiledLeft
	StateTiledRight
	StateTiledTop
	StateTiledBottom
)

// Has reports whether every flag in mask is set.
func (s StateFlags) Has(mask StateFlags) bool {
	return s&mask == mask
}
