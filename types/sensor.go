package types

import "tinygo.org/x/drivers"

// SensorType identifies the kind of a sensor descriptor.
type SensorType int32

const (
	SensorUnknown SensorType = iota
	SensorAccelerometer
	SensorGyroscope
	SensorGyroscopeUncal
	SensorGeomagnetic
	SensorPressure
	SensorLight
	SensorProximity
	SensorHRM
	SensorHRMRaw
	SensorHRMLEDGreen
)

var sensorTypeNames = [...]string{
	SensorUnknown:        "unknown",
	SensorAccelerometer:  "accelerometer",
	SensorGyroscope:      "gyroscope",
	SensorGyroscopeUncal: "gyroscope_uncal",
	SensorGeomagnetic:    "geomagnetic",
	SensorPressure:       "pressure",
	SensorLight:          "light",
	SensorProximity:      "proximity",
	SensorHRM:            "hrm",
	SensorHRMRaw:         "hrm_raw",
	SensorHRMLEDGreen:    "hrm_led_green",
}

func (t SensorType) String() string {
	if t < 0 || int(t) >= len(sensorTypeNames) {
		return "unknown"
	}
	return sensorTypeNames[t]
}

// Event type encoding: sensor type in the high half, event kind in the low half.
const (
	EventShift   = 16
	RawDataEvent = 0x0001
)

// EventTypeOf returns the raw-data event id for t.
func EventTypeOf(t SensorType) uint32 {
	return uint32(t)<<EventShift | RawDataEvent
}

// Accuracy of a sample.
type Accuracy int32

const (
	AccuracyUndefined Accuracy = -1
	AccuracyBad       Accuracy = 0
	AccuracyNormal    Accuracy = 1
	AccuracyGood      Accuracy = 2
	AccuracyVeryGood  Accuracy = 3
)

// SensorInfo is the immutable descriptor a device reports for one sensor id.
type SensorInfo struct {
	ID              uint32     `json:"id"`
	Name            string     `json:"name"`
	Type            SensorType `json:"type"`
	EventType       uint32     `json:"event_type"`
	ModelName       string     `json:"model_name"`
	Vendor          string     `json:"vendor"`
	MinRange        float64    `json:"min_range"`
	MaxRange        float64    `json:"max_range"`
	Resolution      float64    `json:"resolution"`
	MinInterval     int        `json:"min_interval"` // ms
	MaxBatchCount   int        `json:"max_batch_count"`
	WakeupSupported bool       `json:"wakeup_supported"`

	// Measures is the tinygo measurement class; zero when none applies (HRM).
	Measures drivers.Measurement `json:"-"`
}

// MaxValues bounds SensorData.Values.
const MaxValues = 16

// SensorData is one converted sample handed to the host. Each GetData call
// returns a fresh value owned by the caller.
type SensorData struct {
	Accuracy  Accuracy  `json:"accuracy"`
	Timestamp uint64    `json:"timestamp"` // µs, monotonic clock
	Values    []float64 `json:"values"`
}

// NewSensorData allocates a sample with n values.
func NewSensorData(acc Accuracy, ts uint64, n int) *SensorData {
	if n > MaxValues {
		n = MaxValues
	}
	return &SensorData{Accuracy: acc, Timestamp: ts, Values: make([]float64, n)}
}
