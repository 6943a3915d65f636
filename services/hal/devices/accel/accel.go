// Package accel exposes the accelerometer, either as an evdev stream of
// REL_X/Y/Z frames or as packed IIO records.
package accel

import (
	"tinygo.org/x/drivers"

	"sensorhal-go/drivers/iio"
	"sensorhal-go/drivers/input"
	"sensorhal-go/errcode"
	"sensorhal-go/services/hal/config"
	"sensorhal-go/services/hal/internal/core"
	"sensorhal-go/services/hal/internal/evstream"
	"sensorhal-go/types"
	"sensorhal-go/x/mathx"
)

const (
	SensorID   = 1
	SensorType = "ACCEL"

	inputName       = "accelerometer_sensor"
	hubIntervalNode = "accel_poll_delay"
	iioEnableNode   = "accel_enable"
	enableBit       = 0

	gravity = 9.80665
	gToMg   = 1000
)

func init() { core.RegisterBuilder("accel", builder{}) }

type builder struct{}

func (builder) Build(env core.Env) (core.Device, error) { return New(env) }

var layout = evstream.Layout{
	evstream.Rel(input.RelX): 0,
	evstream.Rel(input.RelY): 1,
	evstream.Rel(input.RelZ): 2,
}

type Device struct {
	*core.Base

	info types.SensorInfo
	unit float64
	acq  core.Acquisition
	rs   *evstream.Reassembler

	raw [3]int32
	ts  uint64
}

var _ core.Device = (*Device)(nil)

// toMS2 converts raw counts in unit mg to m/s².
func toMS2(raw, unit float64) float64 { return raw * unit / gToMg * gravity }

func New(env core.Env) (*Device, error) {
	model, err := env.Model(SensorType, true)
	if err != nil {
		return nil, err
	}
	c := env.Constants(SensorType, model)
	vendor := c.String(config.ElementVendor)
	name := c.String(config.ElementName)
	res := mathx.Clamp(c.Int(config.ElementResolution), 0, 62)
	unit := c.Float(config.ElementRawDataUnit)
	if err := c.Err(); err != nil {
		return nil, err
	}

	b, err := core.Attach(env, core.Profile{
		SensorType:      SensorType,
		Key:             inputName,
		HubIntervalNode: hubIntervalNode,
		IIOEnableNode:   iioEnableNode,
		EnableBit:       enableBit,
		Writable:        true,
	})
	if err != nil {
		return nil, err
	}

	span := int64(1) << res
	d := &Device{
		Base: b,
		unit: unit,
		acq:  b.Acquisition(),
		rs:   evstream.New(layout, evstream.DefaultBudget),
		raw:  [3]int32{-1, -1, -1},
	}
	d.info = types.SensorInfo{
		ID:          SensorID,
		Name:        "ACCELEROMETER",
		Type:        types.SensorAccelerometer,
		EventType:   types.EventTypeOf(types.SensorAccelerometer),
		ModelName:   name,
		Vendor:      vendor,
		MinRange:    toMS2(float64(-(span / 2)), unit),
		MaxRange:    toMS2(float64(span/2-1), unit),
		Resolution:  toMS2(1, unit),
		MinInterval: 1,
		Measures:    drivers.Acceleration,
	}
	return d, nil
}

func (d *Device) Sensors() []types.SensorInfo { return []types.SensorInfo{d.info} }

func (d *Device) Enable(id uint32) bool {
	d.Arm(true)
	d.SetInterval(id, d.IntervalMs)
	d.ts = 0
	return true
}

func (d *Device) Disable(id uint32) bool {
	d.Arm(false)
	return true
}

func (d *Device) SetInterval(id uint32, ms uint32) bool { return d.WriteInterval(ms) }

func (d *Device) ReadFD() []uint32 {
	if d.acq == core.AcquireBuffer {
		if err := d.Node.WaitReadable(); err != nil {
			return d.Drop(err)
		}
		v, err := iio.ReadVec3(d.Node)
		if err != nil {
			return d.Drop(err)
		}
		d.raw = [3]int32{int32(v.X), int32(v.Y), int32(v.Z)}
		d.ts = uint64(v.Timestamp)
		return []uint32{SensorID}
	}

	f, err := d.rs.Read(d.Node)
	if err != nil {
		return d.Drop(err)
	}
	f.Apply(d.raw[:])
	d.ts = f.Time
	return []uint32{SensorID}
}

func (d *Device) GetData(id uint32) (*types.SensorData, error) {
	if id != SensorID {
		return nil, errcode.UnknownSensor
	}
	s := types.NewSensorData(types.AccuracyGood, d.ts, 3)
	for i, r := range d.raw {
		s.Values[i] = toMS2(float64(r), d.unit)
	}
	return s, nil
}
