// services/hal/internal/halerr/errors.go
package halerr

import "errors"

var (
	// Acquisition (transient; the previous sample stays authoritative)
	ErrShortRead    = errors.New("short_read")
	ErrUnknownEvent = errors.New("unknown_event")
	ErrNoSync       = errors.New("no_sync")
	ErrPoll         = errors.New("poll_failed")
	ErrPollTimeout  = errors.New("poll_timeout")
	ErrNotReadable  = errors.New("not_readable")
	ErrRejected     = errors.New("value_rejected")

	// Build/config
	ErrNoModel       = errors.New("no_model")
	ErrNoNode        = errors.New("no_node")
	ErrMissingValue  = errors.New("missing_value")
	ErrTransport     = errors.New("unsupported_transport")
	ErrUnknownReader = errors.New("unknown_reader")

	// Generic / pass-through
	ErrUnsupported = errors.New("unsupported")
)
