// Package pressure exposes the barometer: pressure in hPa, altitude in
// metres relative to the last sea-level pressure the hub reported, and die
// temperature in °C.
package pressure

import (
	"math"

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
	SensorID   = 1
	SensorType = "PRESSURE"

	inputName       = "pressure_sensor"
	hubIntervalNode = "pressure_poll_delay"
	iioEnableNode   = "pressure_enable"
	enableBit       = 5
)

// Chip defaults, used unless the store describes the model.
const (
	DefaultModel       = "LPS25H"
	DefaultVendor      = "ST Microelectronics"
	DefaultRawDataUnit = 0.000244
	DefaultMinRange    = 260
	DefaultMaxRange    = 1260
)

const (
	temperatureResolution = 0.002083
	temperatureOffset     = 42.5

	// sea level arrives in Pa; scaled to hPa on output
	seaLevelRaw        = 101325.0
	seaLevelResolution = 0.01
	seaLevelEpsilon    = 0.00001
)

func init() { core.RegisterBuilder("pressure", builder{}) }

type builder struct{}

func (builder) Build(env core.Env) (core.Device, error) { return New(env) }

const (
	slotPressure = iota
	slotSeaLevel
	slotTemperature
)

var layout = evstream.Layout{
	evstream.Rel(input.RelHWheel): slotPressure,
	evstream.Rel(input.RelDial):   slotSeaLevel,
	evstream.Rel(input.RelWheel):  slotTemperature,
}

type Device struct {
	*core.Base

	info types.SensorInfo
	unit float64
	rs   *evstream.Reassembler

	// pressure, raw sea level, temperature
	raw [3]int32
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
	unit := c.OptFloat(config.ElementRawDataUnit, DefaultRawDataUnit)
	minRange := c.OptFloat(config.ElementMinRange, DefaultMinRange)
	maxRange := c.OptFloat(config.ElementMaxRange, DefaultMaxRange)

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

	return &Device{
		Base: b,
		unit: unit,
		rs:   evstream.New(layout, evstream.DefaultBudget),
		raw:  [3]int32{0, seaLevelRaw, 0},
		info: types.SensorInfo{
			ID:          SensorID,
			Name:        "SENSOR_PRESSURE",
			Type:        types.SensorPressure,
			EventType:   types.EventTypeOf(types.SensorPressure),
			ModelName:   name,
			Vendor:      vendor,
			MinRange:    minRange,
			MaxRange:    maxRange,
			Resolution:  1,
			MinInterval: 1,
			Measures:    drivers.Pressure | drivers.Temperature,
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

// Altitude is the barometric altitude in metres for p and sea-level
// pressure sl, both in hPa. A zero sea level falls back to standard.
func Altitude(p, sl float64) float64 {
	if mathx.NearZero(sl, seaLevelEpsilon) {
		sl = seaLevelRaw * seaLevelResolution
	}
	return 44330 * (1 - math.Pow(p/sl, 1/5.255))
}

func (d *Device) GetData(id uint32) (*types.SensorData, error) {
	if id != SensorID {
		return nil, errcode.UnknownSensor
	}
	p := float64(d.raw[slotPressure]) * d.unit
	sl := float64(d.raw[slotSeaLevel]) * seaLevelResolution

	s := types.NewSensorData(types.AccuracyGood, d.ts, 3)
	s.Values[0] = p
	s.Values[1] = Altitude(p, sl)
	s.Values[2] = float64(d.raw[slotTemperature])*temperatureResolution + temperatureOffset
	return s, nil
}
