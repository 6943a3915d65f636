// Package hrmraw exposes the optical heart-rate front end: the raw PPG
// frame (id 1) and the green LED channel (id 2). Both ids share one data
// node, one enable bit and one interval.
package hrmraw

import (
	"sensorhal-go/errcode"
	"sensorhal-go/services/hal/config"
	"sensorhal-go/services/hal/internal/core"
	"sensorhal-go/services/hal/internal/halerr"
	"sensorhal-go/types"
	"sensorhal-go/x/mathx"
)

const (
	IDRaw      = 1
	IDLEDGreen = 2

	SensorType = "HRM_RAW"

	inputName       = "hrm_raw_sensor"
	hubIntervalNode = "hrm_poll_delay"
	iioEnableNode   = "hrm_raw_enable"
	enableBit       = 18

	ledGreenSlot = 5
)

// Chip defaults, used unless the store describes the model.
const (
	DefaultModel    = "AD45251"
	DefaultVendor   = "ANALOG DEVICES"
	DefaultMinRange = 0
	DefaultMaxRange = 1000
	DefaultReader   = "standard"
	DefaultPollMs   = 1000
)

func init() { core.RegisterBuilder("hrm_raw", builder{}) }

type builder struct{}

func (builder) Build(env core.Env) (core.Device, error) { return New(env) }

type Device struct {
	*core.Base

	info     [2]types.SensorInfo
	reader   Reader
	interval bool

	enabled int
	// last request per id
	rawMs, greenMs uint32

	data Sample
}

var _ core.Device = (*Device)(nil)

func New(env core.Env) (*Device, error) {
	const op = "hrmraw.New"
	model, err := env.Model(SensorType, false)
	if err != nil {
		return nil, err
	}
	c := env.Constants(SensorType, model)
	name := c.OptString(config.ElementName, DefaultModel)
	vendor := c.OptString(config.ElementVendor, DefaultVendor)
	minRange := c.OptFloat(config.ElementMinRange, DefaultMinRange)
	maxRange := c.OptFloat(config.ElementMaxRange, DefaultMaxRange)
	readerName := c.OptString(config.ElementReader, DefaultReader)

	rd, ok := NewReader(readerName)
	if !ok {
		return nil, errcode.Wrap(errcode.NoDevice, op, halerr.ErrUnknownReader, readerName)
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
	b.Log.Debug().Str("reader", readerName).Msg("hrm_raw reader")

	d := &Device{
		Base:     b,
		reader:   rd,
		interval: b.HasInterval(),
		rawMs:    DefaultPollMs,
		greenMs:  DefaultPollMs,
	}
	b.IntervalMs = DefaultPollMs

	d.info[0] = types.SensorInfo{
		ID:          IDRaw,
		Name:        "SENSOR_HRM_RAW",
		Type:        types.SensorHRMRaw,
		EventType:   types.EventTypeOf(types.SensorHRMRaw),
		ModelName:   name,
		Vendor:      vendor,
		MinRange:    minRange,
		MaxRange:    maxRange,
		Resolution:  1,
		MinInterval: 1,
	}
	d.info[1] = d.info[0]
	d.info[1].ID = IDLEDGreen
	d.info[1].Name = "HRM LED GREEN SENSOR"
	d.info[1].Type = types.SensorHRMLEDGreen
	d.info[1].EventType = types.EventTypeOf(types.SensorHRMLEDGreen)
	return d, nil
}

func (d *Device) Sensors() []types.SensorInfo { return d.info[:] }

// Enable arms the front end on the first enable of either id.
func (d *Device) Enable(id uint32) bool {
	d.enabled++
	if d.enabled > 1 {
		return true
	}
	d.Arm(true)
	if d.interval {
		d.SetInterval(id, d.IntervalMs)
	}
	d.data.Time = 0
	return true
}

// Disable disarms once both ids are disabled.
func (d *Device) Disable(id uint32) bool {
	d.enabled--
	if d.enabled > 0 {
		return true
	}
	d.Arm(false)
	d.enabled = 0
	return true
}

// SetInterval applies the faster of ms and the other id's last request.
func (d *Device) SetInterval(id uint32, ms uint32) bool {
	if !d.interval {
		return true
	}
	other := d.greenMs
	if id == IDLEDGreen {
		other = d.rawMs
	}
	if !d.WriteInterval(mathx.Min(ms, other)) {
		return false
	}
	if id == IDLEDGreen {
		d.greenMs = ms
	} else {
		d.rawMs = ms
	}
	return true
}

func (d *Device) ReadFD() []uint32 {
	if err := d.reader.Read(d.Node, &d.data); err != nil {
		return d.Drop(err)
	}
	return []uint32{IDRaw, IDLEDGreen}
}

func (d *Device) GetData(id uint32) (*types.SensorData, error) {
	switch id {
	case IDRaw:
		s := types.NewSensorData(types.AccuracyGood, d.data.Time, d.data.Count)
		copy(s.Values, d.data.Values[:])
		return s, nil
	case IDLEDGreen:
		s := types.NewSensorData(types.AccuracyGood, d.data.Time, 1)
		s.Values[0] = d.data.Values[ledGreenSlot]
		return s, nil
	}
	return nil, errcode.UnknownSensor
}
