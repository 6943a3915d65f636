// Package gyro exposes the calibrated gyroscope in degrees per second.
package gyro

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
	SensorType = "GYRO"

	inputName       = "gyro_sensor"
	hubIntervalNode = "gyro_poll_delay"
	iioEnableNode   = "gyro_enable"
	enableBit       = 1

	dpsToMdps = 1000
)

func init() { core.RegisterBuilder("gyro", builder{}) }

type builder struct{}

func (builder) Build(env core.Env) (core.Device, error) { return New(env) }

var layout = evstream.Layout{
	evstream.Rel(input.RelRX): 0,
	evstream.Rel(input.RelRY): 1,
	evstream.Rel(input.RelRZ): 2,
}

type Device struct {
	*core.Base

	info types.SensorInfo
	dps  float64 // degrees per second per count
	acq  core.Acquisition
	rs   *evstream.Reassembler

	raw [3]int32
	ts  uint64
}

var _ core.Device = (*Device)(nil)

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
	})
	if err != nil {
		return nil, err
	}

	dps := unit / dpsToMdps
	span := int64(1) << res
	return &Device{
		Base: b,
		dps:  dps,
		acq:  b.Acquisition(),
		rs:   evstream.New(layout, evstream.DefaultBudget),
		raw:  [3]int32{-1, -1, -1},
		info: types.SensorInfo{
			ID:          SensorID,
			Name:        "SENSOR_GYROSCOPE",
			Type:        types.SensorGyroscope,
			EventType:   types.EventTypeOf(types.SensorGyroscope),
			ModelName:   name,
			Vendor:      vendor,
			MinRange:    float64(-(span / 2)) * dps,
			MaxRange:    float64(span/2-1) * dps,
			Resolution:  dps,
			MinInterval: 1,
			Measures:    drivers.AngularVelocity,
		},
	}, nil
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
	switch d.acq {
	case core.AcquireBuffer:
		if err := d.Node.WaitReadable(); err != nil {
			return d.Drop(err)
		}
		v, err := iio.ReadVec3(d.Node)
		if err != nil {
			return d.Drop(err)
		}
		d.raw = [3]int32{int32(v.X), int32(v.Y), int32(v.Z)}
		d.ts = uint64(v.Timestamp)
	default:
		f, err := d.rs.Read(d.Node)
		if err != nil {
			return d.Drop(err)
		}
		f.Apply(d.raw[:])
		d.ts = f.Time
	}
	return []uint32{SensorID}
}

func (d *Device) GetData(id uint32) (*types.SensorData, error) {
	if id != SensorID {
		return nil, errcode.UnknownSensor
	}
	s := types.NewSensorData(types.AccuracyGood, d.ts, 3)
	for i, r := range d.raw {
		s.Values[i] = float64(r) * d.dps
	}
	return s, nil
}
