// Package geomag exposes the magnetometer in µT with a hard-iron status
// channel reported as accuracy.
package geomag

import (
	"tinygo.org/x/drivers"

	"sensorhal-go/drivers/iio"
	"sensorhal-go/drivers/input"
	"sensorhal-go/errcode"
	"sensorhal-go/services/hal/config"
	"sensorhal-go/services/hal/internal/core"
	"sensorhal-go/services/hal/internal/evstream"
	"sensorhal-go/types"
)

const (
	SensorID   = 1
	SensorType = "MAGNETIC"

	inputName       = "geomagnetic_sensor"
	hubIntervalNode = "mag_poll_delay"
	iioEnableNode   = "geomagnetic_enable"
	enableBit       = 4

	// the status channel is reported with a bias of one
	statusBias = 1
)

func init() { core.RegisterBuilder("geomag", builder{}) }

type builder struct{}

func (builder) Build(env core.Env) (core.Device, error) { return New(env) }

const slotStatus = 3

var layout = evstream.Layout{
	evstream.Rel(input.RelRX):     0,
	evstream.Rel(input.RelRY):     1,
	evstream.Rel(input.RelRZ):     2,
	evstream.Rel(input.RelHWheel): slotStatus,
}

type Device struct {
	*core.Base

	info types.SensorInfo
	unit float64
	acq  core.Acquisition
	rs   *evstream.Reassembler

	xyz  [3]int32
	hdst int32
	ts   uint64
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
	minRange := c.Float(config.ElementMinRange)
	maxRange := c.Float(config.ElementMaxRange)
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

	return &Device{
		Base: b,
		unit: unit,
		acq:  b.Acquisition(),
		rs:   evstream.New(layout, evstream.DefaultBudget),
		info: types.SensorInfo{
			ID:          SensorID,
			Name:        "SENSOR_GEOMAGNETIC",
			Type:        types.SensorGeomagnetic,
			EventType:   types.EventTypeOf(types.SensorGeomagnetic),
			ModelName:   name,
			Vendor:      vendor,
			MinRange:    minRange,
			MaxRange:    maxRange,
			Resolution:  unit,
			MinInterval: 1,
			Measures:    drivers.MagneticField,
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
		v, err := iio.ReadVec4(d.Node)
		if err != nil {
			return d.Drop(err)
		}
		d.xyz = [3]int32{int32(v.X), int32(v.Y), int32(v.Z)}
		d.hdst = int32(v.Status) - statusBias
		d.ts = uint64(v.Timestamp)
	default:
		f, err := d.rs.Read(d.Node)
		if err != nil {
			return d.Drop(err)
		}
		f.Apply(d.xyz[:])
		if f.Has(slotStatus) {
			d.hdst = f.Values[slotStatus] - statusBias
		}
		d.ts = f.Time
	}
	return []uint32{SensorID}
}

// accuracy folds status 1 onto 0 and passes the rest through.
func (d *Device) accuracy() types.Accuracy {
	if d.hdst == 1 {
		return types.AccuracyBad
	}
	return types.Accuracy(d.hdst)
}

func (d *Device) GetData(id uint32) (*types.SensorData, error) {
	if id != SensorID {
		return nil, errcode.UnknownSensor
	}
	acc := d.accuracy()
	s := types.NewSensorData(acc, d.ts, 4)
	for i, r := range d.xyz {
		s.Values[i] = float64(r) * d.unit
	}
	s.Values[slotStatus] = float64(acc)
	return s, nil
}
