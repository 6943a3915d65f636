package core

import (
	"io"

	"github.com/rs/zerolog"

	"sensorhal-go/services/hal/config"
	"sensorhal-go/services/hal/internal/nodes"
	"sensorhal-go/types"
)

// Device is the contract every sensor kind implements. Calls are made from
// one goroutine; implementations are not synchronised.
type Device interface {
	// PollFD is the descriptor that becomes readable when data is pending.
	PollFD() int
	Sensors() []types.SensorInfo
	Enable(id uint32) bool
	Disable(id uint32) bool
	SetInterval(id uint32, ms uint32) bool
	// ReadFD makes one acquisition attempt and returns the ids that now hold
	// a fresh sample. Failure returns none and leaves the last sample intact.
	ReadFD() []uint32
	GetData(id uint32) (*types.SensorData, error)
	Close() error
}

// Node is an open data node.
type Node interface {
	io.ReadCloser
	Fd() int
	// UseMonotonicClock switches an evdev node to CLOCK_MONOTONIC stamps.
	UseMonotonicClock() error
	// WaitReadable blocks until an IIO buffer has a record.
	WaitReadable() error
}

// Opener opens a data node.
type Opener func(path string, writable bool) (Node, error)

// Env is what a builder gets from the host.
type Env struct {
	Config config.Store
	Sysfs  *nodes.Resolver
	Open   Opener
	Log    zerolog.Logger
}

// Builder constructs one device kind.
type Builder interface {
	Build(env Env) (Device, error)
}

// BuilderFunc adapts a constructor to Builder.
type BuilderFunc func(env Env) (Device, error)

func (f BuilderFunc) Build(env Env) (Device, error) { return f(env) }

// Acquisition is the read strategy a device selects once at construction.
type Acquisition int

const (
	AcquireEvents   Acquisition = iota // evdev frames through the reassembler
	AcquireBuffer                      // one packed IIO record per read
	AcquireStrategy                    // device-specific reader
)

func (a Acquisition) String() string {
	switch a {
	case AcquireEvents:
		return "events"
	case AcquireBuffer:
		return "buffer"
	case AcquireStrategy:
		return "strategy"
	}
	return "unknown"
}

// DefaultIntervalMs is the polling interval until the host sets one.
const DefaultIntervalMs = 1000
