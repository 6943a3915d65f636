// Package proxi exposes the proximity switch as a distance of 0 (near) or
// 5 (far) centimetres.
package proxi

import (
	"tinygo.org/x/drivers"

	"sensorhal-go/drivers/input"
	"sensorhal-go/errcode"
	"sensorhal-go/services/hal/config"
	"sensorhal-go/services/hal/internal/core"
	"sensorhal-go/services/hal/internal/evstream"
	"sensorhal-go/services/hal/internal/halerr"
	"sensorhal-go/types"
)

const (
	SensorID   = 1
	SensorType = "PROXI"

	inputName       = "proximity_sensor"
	hubIntervalNode = "prox_poll_delay"
	iioEnableNode   = "proximity_enable"
	enableBit       = 7
)

// Node states reported on ABS_DISTANCE.
const (
	StateNear int32 = 0
	StateFar  int32 = 1
)

const (
	distancePerState = 5
	maxRange         = 5
)

func init() { core.RegisterBuilder("proxi", builder{}) }

type builder struct{}

func (builder) Build(env core.Env) (core.Device, error) { return New(env) }

var layout = evstream.Layout{evstream.Abs(input.AbsDistance): 0}

type Device struct {
	*core.Base

	info  types.SensorInfo
	rs    *evstream.Reassembler
	state int32
	ts    uint64
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
	if err := c.Err(); err != nil {
		return nil, err
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

	return &Device{
		Base:  b,
		rs:    evstream.New(layout, evstream.DefaultBudget),
		state: StateFar,
		info: types.SensorInfo{
			ID:          SensorID,
			Name:        "SENSOR_PROXIMITY",
			Type:        types.SensorProximity,
			EventType:   types.EventTypeOf(types.SensorProximity),
			ModelName:   name,
			Vendor:      vendor,
			MinRange:    0,
			MaxRange:    maxRange,
			Resolution:  1,
			MinInterval: 1,
			Measures:    drivers.Distance,
		},
	}, nil
}

func (d *Device) Sensors() []types.SensorInfo { return []types.SensorInfo{d.info} }

// Enable arms the sensor. The proximity switch reports on change and has
// no interval.
func (d *Device) Enable(id uint32) bool {
	d.Arm(true)
	d.ts = 0
	return true
}

func (d *Device) Disable(id uint32) bool {
	d.Arm(false)
	return true
}

func (d *Device) SetInterval(id uint32, ms uint32) bool { return true }

func (d *Device) ReadFD() []uint32 {
	f, err := d.rs.Read(d.Node)
	if err != nil {
		return d.Drop(err)
	}
	if f.Has(0) {
		s := f.Values[0]
		if s != StateNear && s != StateFar {
			return d.Drop(halerr.ErrRejected)
		}
		d.state = s
	}
	d.ts = f.Time
	return []uint32{SensorID}
}

func (d *Device) GetData(id uint32) (*types.SensorData, error) {
	if id != SensorID {
		return nil, errcode.UnknownSensor
	}
	s := types.NewSensorData(types.AccuracyGood, d.ts, 1)
	s.Values[0] = float64(d.state * distancePerState)
	return s, nil
}
