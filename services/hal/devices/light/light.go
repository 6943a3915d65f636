// Package light exposes the ambient light sensor in lux.
//
// Two frame formats exist. Most chips report lux directly, either as an
// absolute ABS_MISC value or as REL_RX biased by one. ADC chips report the
// raw clear and white channels and lux is derived on the host. The format
// is picked per chip by its DECODER config element.
package light

import (
	"tinygo.org/x/drivers"

	"sensorhal-go/errcode"
	"sensorhal-go/services/hal/config"
	"sensorhal-go/services/hal/internal/core"
	"sensorhal-go/services/hal/internal/evstream"
	"sensorhal-go/types"
)

const (
	SensorID   = 1
	SensorType = "LIGHT"

	inputName       = "light_sensor"
	hubIntervalNode = "light_poll_delay"
	iioEnableNode   = "light_enable"
	enableBit       = 9

	// ElementDecoder names the frame decoder for a chip.
	ElementDecoder = "DECODER"
)

// Chip defaults, used unless the store describes the model.
const (
	DefaultModel    = "TSL2584"
	DefaultVendor   = "AMS"
	DefaultMinRange = 0
	DefaultMaxRange = 65536
	DefaultDecoder  = "lux"
)

func init() { core.RegisterBuilder("light", builder{}) }

type builder struct{}

func (builder) Build(env core.Env) (core.Device, error) { return New(env) }

type Device struct {
	*core.Base

	info types.SensorInfo
	dec  Decoder
	rs   *evstream.Reassembler

	raw []int32
	lux float64
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
	minRange := c.OptFloat(config.ElementMinRange, DefaultMinRange)
	maxRange := c.OptFloat(config.ElementMaxRange, DefaultMaxRange)
	decName := c.OptString(ElementDecoder, DefaultDecoder)

	dec, ok := LookupDecoder(decName)
	if !ok {
		return nil, errcode.Wrap(errcode.NoDevice, "light.New", errUnknownDecoder, decName)
	}

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
	b.Log.Debug().Str("decoder", decName).Msg("light decoder")

	return &Device{
		Base: b,
		dec:  dec,
		rs:   evstream.New(dec.Layout(), evstream.DefaultBudget),
		raw:  make([]int32, dec.Slots()),
		lux:  -1,
		info: types.SensorInfo{
			ID:          SensorID,
			Name:        "SENSOR_LIGHT",
			Type:        types.SensorLight,
			EventType:   types.EventTypeOf(types.SensorLight),
			ModelName:   name,
			Vendor:      vendor,
			MinRange:    minRange,
			MaxRange:    maxRange,
			Resolution:  1,
			MinInterval: 1,
			Measures:    drivers.Luminosity,
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
	f.Apply(d.raw)
	if lux, ok := d.dec.Lux(&f, d.raw); ok {
		d.lux = lux
	}
	d.ts = f.Time
	return []uint32{SensorID}
}

func (d *Device) GetData(id uint32) (*types.SensorData, error) {
	if id != SensorID {
		return nil, errcode.UnknownSensor
	}
	s := types.NewSensorData(types.AccuracyGood, d.ts, 1)
	s.Values[0] = d.lux
	return s, nil
}
