package comp

import (
	"errors"
	"fmt"

	"github.com/waywardwm/wayward/internal/protocol"
	"github.com/waywardwm/wayward/internal/shm"
)

// ErrUnknownObject is returned when a request names an object id the
// client never created or already destroyed.
var ErrUnknownObject = errors.New("unknown object id")

// ErrDuplicateObject is returned when a request reuses an id that is
// still bound to a live object.
var ErrDuplicateObject = errors.New("duplicate object id")

// ProtocolError is a client mistake severe enough to disconnect for.
// The compositor reports it with one Error event and then tears the
// client down; compositor-internal failures are never protocol errors.
type ProtocolError struct {
	ObjectID uint32
	Code     protocol.ErrorCode
	Message  string
	cause    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("object %d: %s: %s", e.ObjectID, e.Code, e.Message)
}

func (e *ProtocolError) Unwrap() error { return e.cause }

func protoErr(object uint32, code protocol.ErrorCode, format string, args ...any) *ProtocolError {
	return &ProtocolError{
		ObjectID: object,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	}
}

func unknownObject(id uint32, what string) *ProtocolError {
	return &ProtocolError{
		ObjectID: id,
		Code:     protocol.CodeInvalidObject,
		Message:  "no such " + what,
		cause:    ErrUnknownObject,
	}
}

func duplicateObject(id uint32, what string) *ProtocolError {
	return &ProtocolError{
		ObjectID: id,
		Code:     protocol.CodeInvalidArgument,
		Message:  what + " id already in use",
		cause:    ErrDuplicateObject,
	}
}

// shmErr maps a pool or buffer failure onto the protocol error
// taxonomy.
func shmErr(object uint32, err error) *ProtocolError {
	code := protocol.CodeInvalidArgument
	if errors.Is(err, shm.ErrMapFailed) {
		code = protocol.CodeNoMemory
	}
	return protoErr(object, code, "%v", err)
}
