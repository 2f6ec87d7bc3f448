package sqlite

import (
	"context"
	"errors"
)

// Error is a failure reported by the engine or by the host side of the
// boundary. It is a snapshot: once constructed it never changes and holds no
// reference into linear memory.
type Error struct {
	message string
	code    Status
}

// NewError returns a host-origin error with code StatusUnknown.
func NewError(message string) *Error {
	return &Error{message: message, code: StatusUnknown}
}

// NewErrorCode returns an error with an explicit code.
func NewErrorCode(message string, code Status) *Error {
	return &Error{message: message, code: code}
}

// NewModuleError snapshots the engine's last error message and code.
// Errors reading them from the module are returned as-is.
func NewModuleError(ctx context.Context, h *Heap) (*Error, error) {
	msg, err := lastErrMsg(ctx, h)
	if err != nil {
		return nil, err
	}
	code, err := h.exports.ErrCode(ctx)
	if err != nil {
		return nil, err
	}
	return &Error{message: msg, code: code}, nil
}

// NewModuleErrorCode snapshots the engine's last error message and pairs it
// with code instead of the engine's last code.
func NewModuleErrorCode(ctx context.Context, h *Heap, code Status) (*Error, error) {
	msg, err := lastErrMsg(ctx, h)
	if err != nil {
		return nil, err
	}
	return &Error{message: msg, code: code}, nil
}

func lastErrMsg(ctx context.Context, h *Heap) (string, error) {
	ptr, err := h.exports.ErrMsg(ctx)
	if err != nil {
		return "", err
	}
	return h.ReadString(ctx, ptr)
}

// Message returns the human-readable message.
func (e *Error) Message() string {
	return e.message
}

// Code returns the result code, StatusUnknown for host-origin failures.
func (e *Error) Code() Status {
	return e.code
}

// CodeName returns the symbolic name of Code.
func (e *Error) CodeName() string {
	return e.code.String()
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.code == StatusUnknown {
		return e.message
	}
	return e.message + " (" + e.code.String() + ")"
}

// Is reports whether target is an *Error with the same code and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code && e.message == t.message
}

// StatusOf returns the code of the first *Error in err's chain, or
// StatusUnknown if there is none. A nil error is StatusOK.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return StatusUnknown
}
