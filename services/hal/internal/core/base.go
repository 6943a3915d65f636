package core

import (
	"github.com/rs/zerolog"

	"sensorhal-go/errcode"
	"sensorhal-go/services/hal/internal/halerr"
	"sensorhal-go/services/hal/internal/nodes"
)

// IIO buffer defaults.
const (
	BufferLength = 480
	BufferEnable = 1
)

// Profile names the nodes of one sensor kind.
type Profile struct {
	SensorType      string // config section, e.g. "ACCEL"
	Key             string // sysfs name, e.g. "accelerometer_sensor"
	HubIntervalNode string
	IIOEnableNode   string
	EnableBit       uint
	Writable        bool // open the data node read-write
	EventOnly       bool // reject IIO devices
}

// Base is the state every device shares: the resolved nodes, the open data
// node and the current interval.
type Base struct {
	Profile    Profile
	Info       nodes.Info
	Hub        bool
	Node       Node
	Log        zerolog.Logger
	IntervalMs uint32
}

// Attach resolves and opens the nodes described by s. Every failure maps to
// errcode.NoDevice.
func Attach(env Env, s Profile) (*Base, error) {
	const op = "core.Attach"
	log := env.Log.With().Str("sensor", s.Key).Logger()

	hub := env.Sysfs.IsHubControlled(s.HubIntervalNode)
	info, err := env.Sysfs.Resolve(nodes.Query{
		SensorType:      s.SensorType,
		Key:             s.Key,
		IIOEnableNode:   s.IIOEnableNode,
		HubIntervalNode: s.HubIntervalNode,
		Hub:             hub,
	})
	if err != nil {
		return nil, errcode.Wrap(errcode.NoDevice, op, err, s.Key)
	}
	if s.EventOnly && info.Method != nodes.MethodInputEvent {
		return nil, errcode.Wrap(errcode.NoDevice, op, halerr.ErrTransport, info.Method.String())
	}

	n, err := env.Open(info.DataNode, s.Writable)
	if err != nil {
		return nil, errcode.Wrap(errcode.NoDevice, op, err, info.DataNode)
	}

	switch info.Method {
	case nodes.MethodInputEvent:
		if err := n.UseMonotonicClock(); err != nil {
			n.Close()
			return nil, errcode.Wrap(errcode.NoDevice, op, err, "monotonic clock")
		}
	case nodes.MethodIIO:
		if err := nodes.SetValue(info.BufferLengthNode, BufferLength); err != nil {
			log.Warn().Err(err).Str("node", info.BufferLengthNode).Msg("buffer length not set")
		}
		if err := nodes.SetValue(info.BufferEnableNode, BufferEnable); err != nil {
			log.Warn().Err(err).Str("node", info.BufferEnableNode).Msg("buffer not enabled")
		}
	}

	log.Info().
		Str("method", info.Method.String()).
		Bool("hub", hub).
		Str("data", info.DataNode).
		Str("enable", info.EnableNode).
		Str("interval", info.IntervalNode).
		Msg("attached")

	return &Base{
		Profile:    s,
		Info:       info,
		Hub:        hub,
		Node:       n,
		Log:        log,
		IntervalMs: DefaultIntervalMs,
	}, nil
}

// Acquisition is AcquireEvents for evdev nodes and AcquireBuffer for IIO.
func (b *Base) Acquisition() Acquisition {
	if b.Info.Method == nodes.MethodIIO {
		return AcquireBuffer
	}
	return AcquireEvents
}

func (b *Base) PollFD() int {
	if b.Node == nil {
		return -1
	}
	return b.Node.Fd()
}

// Close releases the data node. Safe to call more than once.
func (b *Base) Close() error {
	if b.Node == nil {
		return nil
	}
	err := b.Node.Close()
	b.Node = nil
	return err
}

// Arm sets or clears the sensor's enable bit. Failures are logged only.
func (b *Base) Arm(on bool) {
	if err := nodes.SetEnable(b.Info.EnableNode, b.Hub, on, b.Profile.EnableBit); err != nil {
		b.Log.Warn().Err(err).Bool("on", on).Msg("enable node write failed")
		return
	}
	b.Log.Info().Bool("on", on).Msg("enable")
}

// WriteInterval writes ms to the interval node and records it on success.
func (b *Base) WriteInterval(ms uint32) bool {
	if err := nodes.SetIntervalMs(b.Info.IntervalNode, ms); err != nil {
		b.Log.Warn().Err(err).Uint32("ms", ms).Msg("interval write failed")
		return false
	}
	b.IntervalMs = ms
	b.Log.Info().Uint32("ms", ms).Msg("interval")
	return true
}

// HasInterval reports whether the interval node exists.
func (b *Base) HasInterval() bool {
	return b.Info.IntervalNode != "" && nodes.Exists(b.Info.IntervalNode)
}

// Model resolves the chip name for sensorType. When required is false a
// missing model returns "" and no error.
func (env Env) Model(sensorType string, required bool) (string, error) {
	id, err := env.Sysfs.FindModelID(env.Config, sensorType)
	if err == nil {
		return id, nil
	}
	if !required {
		return "", nil
	}
	return "", errcode.Wrap(errcode.NoDevice, "core.Model", halerr.ErrNoModel, sensorType)
}

// Drop logs a failed acquisition and returns no ids.
func (b *Base) Drop(err error) []uint32 {
	b.Log.Debug().Err(err).Msg("read dropped")
	return nil
}
