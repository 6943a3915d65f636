// Package gyrouncal exposes the uncalibrated gyroscope: three rates and
// three bias estimates, all in degrees per second.
package gyrouncal

import (
	"tinygo.org/x/drivers"

	"sensorhal-go/drivers/input"
	"sensorhal-go/errcode"
	"sensorhal-go/services/hal/config"
	"sensorhal-go/services/hal/internal/core"
	"sensorhal-go/services/hal/internal/evstream"
	"sensorhal-go/types"
	"sensorhal-go/x/mathx"
)

const (
	SensorID = 1
	// SensorType is the config section; the chip is shared with the gyroscope.
	SensorType = "GYRO"

	inputName       = "uncal_gyro_sensor"
	hubIntervalNode = "uncal_gyro_poll_delay"
	iioEnableNode   = "uncal_gyro_enable"
	enableBit       = 14

	dpsToMdps = 1000
)

// Chip defaults, used unless the store describes the model.
const (
	DefaultModel       = "BMI168"
	DefaultVendor      = "Bosch"
	DefaultResolution  = 16
	DefaultRawDataUnit = 61.04
)

func init() { core.RegisterBuilder("gyro_uncal", builder{}) }

type builder struct{}

func (builder) Build(env core.Env) (core.Device, error) { return New(env) }

// rates in 0..2, bias in 3..5
var layout = evstream.Layout{
	evstream.Rel(input.RelRX):     0,
	evstream.Rel(input.RelRY):     1,
	evstream.Rel(input.RelRZ):     2,
	evstream.Rel(input.RelHWheel): 3,
	evstream.Rel(input.RelDial):   4,
	evstream.Rel(input.RelWheel):  5,
}

type Device struct {
	*core.Base

	info types.SensorInfo
	dps  float64
	rs   *evstream.Reassembler

	raw [6]int32
	ts  uint64
}

var _ core.Device = (*Device)(nil)

func New(env core.Env) (*Device, error) {
	model, err := env.Model(SensorType, false)
	if err != nil {
		return nil, err
	}
	c := env.Constants(SensorType, model)
	name := c.OptString(config.ElementName, DefaultModel)
	vendor := c.OptString(config.ElementVendor, DefaultVendor)
	res := mathx.Clamp(int64(c.OptFloat(config.ElementResolution, DefaultResolution)), 0, 62)
	unit := c.OptFloat(config.ElementRawDataUnit, DefaultRawDataUnit)

	b, err := core.Attach(env, core.Profile{
		SensorType:      SensorType,
		Key:             inputName,
		HubIntervalNode: hubIntervalNode,
		IIOEnableNode:   iioEnableNode,
		EnableBit:       enableBit,
		EventOnly:       true,
	})
	if err != nil {
		return nil, err
	}

	dps := unit / dpsToMdps
	span := int64(1) << res
	return &Device{
		Base: b,
		dps:  dps,
		rs:   evstream.New(layout, evstream.DefaultBudget),
		raw:  [6]int32{-1, -1, -1, -1, -1, -1},
		info: types.SensorInfo{
			ID:          SensorID,
			Name:        "SENSOR_GYROSCOPE_UNCALIBRATED",
			Type:        types.SensorGyroscopeUncal,
			EventType:   types.EventTypeOf(types.SensorGyroscopeUncal),
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
	s := types.NewSensorData(types.AccuracyGood, d.ts, len(d.raw))
	for i, r := range d.raw {
		s.Values[i] = float64(r) * d.dps
	}
	return s, nil
}
