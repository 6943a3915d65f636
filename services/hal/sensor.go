package hal

import (
	"slices"

	"tinygo.org/x/drivers"

	"sensorhal-go/errcode"
	"sensorhal-go/types"
)

// Sensor drives one sensor id of a Device synchronously through the
// tinygo drivers.Sensor interface.
type Sensor struct {
	dev  Device
	info types.SensorInfo
	last *types.SensorData
}

var _ drivers.Sensor = (*Sensor)(nil)

// AsSensor wraps sensor id of d. It reports false when d has no such id.
func AsSensor(d Device, id uint32) (*Sensor, bool) {
	for _, info := range d.Sensors() {
		if info.ID == id {
			return &Sensor{dev: d, info: info}, true
		}
	}
	return nil, false
}

func (s *Sensor) Info() types.SensorInfo { return s.info }

// Update performs one acquisition. which must overlap the measurements the
// sensor provides.
func (s *Sensor) Update(which drivers.Measurement) error {
	if which&s.info.Measures == 0 {
		return errcode.Unsupported
	}
	if !slices.Contains(s.dev.ReadFD(), s.info.ID) {
		return errcode.NoData
	}
	d, err := s.dev.GetData(s.info.ID)
	if err != nil {
		return err
	}
	s.last = d
	return nil
}

// Data is the sample from the last successful Update, or nil.
func (s *Sensor) Data() *types.SensorData { return s.last }

// Value returns value i of the last sample.
func (s *Sensor) Value(i int) (float64, bool) {
	if s.last == nil || i < 0 || i >= len(s.last.Values) {
		return 0, false
	}
	return s.last.Values[i], true
}
