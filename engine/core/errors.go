package core

import (
	"errors"
	"fmt"
)

var (
	// The presentation surface no longer matches the window (out of date or
	// suboptimal). The only recoverable backend condition.
	ErrSurfaceStale = errors.New("surface out of date, recreating")
	// The window has a zero sized drawable area.
	ErrSurfaceMinimized = errors.New("surface minimized")
	ErrDeviceLost       = errors.New("device lost")
	ErrTimeout          = errors.New("timed out waiting on the device")
	ErrOutOfMemory      = errors.New("out of memory")
	ErrInvalidGraph     = errors.New("invalid render graph")
	// Marks errors after which the frame graph cannot continue.
	ErrFatal   = errors.New("fatal")
	ErrUnknown = errors.New("unknown")
)

type fatalError struct {
	msg   string
	cause error
}

func (e *fatalError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *fatalError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrFatal}
	}
	return []error{ErrFatal, e.cause}
}

// Fatal wraps cause so that errors.Is(err, ErrFatal) holds while the
// original cause stays reachable.
func Fatal(cause error, format string, args ...interface{}) error {
	return &fatalError{msg: fmt.Sprintf(format, args...), cause: cause}
}

// IsFatal reports whether err must terminate the owner of the failed call.
// Device loss, timeouts and exhausted memory are always fatal.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal) ||
		errors.Is(err, ErrDeviceLost) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrOutOfMemory)
}
