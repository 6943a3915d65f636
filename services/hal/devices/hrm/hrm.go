// Package hrm exposes the heart-rate monitor: beats per minute, SpO2
// (always zero), peak-to-peak and signal-to-noise ratio.
package hrm

import (
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
	SensorType = "HRM"

	inputName       = "hrm_lib_sensor"
	hubIntervalNode = "hrm_poll_delay"
	iioEnableNode   = "hrm_lib_enable"
	enableBit       = 20

	DefaultRawDataUnit = 1

	// values arrive biased by one
	valueBias = 1
	maxHR     = 300
	snrScale  = 10000.0
)

func init() { core.RegisterBuilder("hrm", builder{}) }

type builder struct{}

func (builder) Build(env core.Env) (core.Device, error) { return New(env) }

const (
	slotHR = iota
	slotPeakToPeak
	slotSNR
)

var layout = evstream.Layout{
	evstream.Rel(input.RelX): slotHR,
	evstream.Rel(input.RelY): slotPeakToPeak,
	evstream.Rel(input.RelZ): slotSNR,
}

// Reading is the last accepted measurement.
type Reading struct {
	HR         int32
	SpO2       int32
	PeakToPeak int32
	SNR        float64
}

type Device struct {
	*core.Base

	info     types.SensorInfo
	unit     float64
	interval bool
	rs       *evstream.Reassembler

	raw  [3]int32 // unbiased HR, peak-to-peak, SNR
	last Reading
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
	unit := c.OptFloat(config.ElementRawDataUnit, DefaultRawDataUnit)
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

	d := &Device{
		Base:     b,
		unit:     unit,
		interval: b.HasInterval(),
		rs:       evstream.New(layout, evstream.DefaultBudget),
		info: types.SensorInfo{
			ID:          SensorID,
			Name:        "SENSOR_HRM",
			Type:        types.SensorHRM,
			EventType:   types.EventTypeOf(types.SensorHRM),
			ModelName:   name,
			Vendor:      vendor,
			MinRange:    0,
			MaxRange:    1,
			Resolution:  1,
			MinInterval: 1,
		},
	}
	if !d.interval {
		b.Log.Info().Msg("no interval control")
	}
	return d, nil
}

func (d *Device) Sensors() []types.SensorInfo { return []types.SensorInfo{d.info} }

func (d *Device) Enable(id uint32) bool {
	d.Arm(true)
	if d.interval {
		d.SetInterval(id, d.IntervalMs)
	}
	d.ts = 0
	return true
}

func (d *Device) Disable(id uint32) bool {
	d.Arm(false)
	return true
}

func (d *Device) SetInterval(id uint32, ms uint32) bool {
	if !d.interval {
		return true
	}
	return d.WriteInterval(ms)
}

// ReadFD reads one frame. Channels missing from the frame keep their last
// accepted value; a rejected frame changes nothing.
func (d *Device) ReadFD() []uint32 {
	f, err := d.rs.Read(d.Node)
	if err != nil {
		return d.Drop(err)
	}
	raw := d.raw
	for i := range raw {
		if f.Has(i) {
			raw[i] = f.Values[i] - valueBias
		}
	}
	if float64(raw[slotHR])*d.unit > maxHR {
		return d.Drop(halerr.ErrRejected)
	}
	d.raw = raw
	d.last = Reading{
		HR:         raw[slotHR],
		PeakToPeak: raw[slotPeakToPeak],
		SNR:        float64(raw[slotSNR]) / snrScale,
	}
	d.ts = f.Time
	return []uint32{SensorID}
}

// Last returns the last accepted reading, unscaled.
func (d *Device) Last() Reading { return d.last }

func (d *Device) GetData(id uint32) (*types.SensorData, error) {
	if id != SensorID {
		return nil, errcode.UnknownSensor
	}
	s := types.NewSensorData(types.AccuracyGood, d.ts, 4)
	s.Values[0] = float64(d.last.HR) * d.unit
	s.Values[1] = float64(d.last.SpO2)
	s.Values[2] = float64(d.last.PeakToPeak)
	s.Values[3] = d.last.SNR
	return s, nil
}
