package errcode

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Code is a stable, host-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	NoDevice      Code = "no_such_device" // construction failed, device is dropped
	NoData        Code = "no_data"        // acquisition produced nothing this cycle
	NoMemory      Code = "out_of_memory"
	Unsupported   Code = "unsupported"
	InvalidParams Code = "invalid_params"
	UnknownSensor Code = "unknown_sensor"
	Timeout       Code = "timeout"

	Error Code = "error" // generic fallback
)

// E keeps the operation and cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.NoDevice) match a wrapped *E.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Wrap builds an *E for op with the given code and cause.
func Wrap(c Code, op string, err error, msg string) error {
	return &E{C: c, Op: op, Msg: msg, Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}

// MapDriverErr maps low-level kernel errors to a Code.
func MapDriverErr(err error) Code {
	if err == nil {
		return OK
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return Of(err)
	}
	switch errno {
	case unix.ENXIO, unix.ENODEV, unix.ENOENT:
		return NoDevice
	case unix.ENOMEM:
		return NoMemory
	case unix.EAGAIN:
		return NoData
	case unix.ETIMEDOUT:
		return Timeout
	case unix.ENOTTY, unix.EOPNOTSUPP:
		return Unsupported
	}
	return Error
}
