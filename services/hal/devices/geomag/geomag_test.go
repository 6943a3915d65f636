package geomag

import (
	"testing"

	"github.com/matryer/is"

	"sensorhal-go/drivers/iio"
	"sensorhal-go/drivers/input"
	"sensorhal-go/errcode"
	"sensorhal-go/services/hal/config"
	"sensorhal-go/services/hal/internal/halfake"
	"sensorhal-go/types"
)

func newEnv(t *testing.T) *halfake.Env {
	env := halfake.NewEnv(t, "")
	env.Tree.Chip("geomagnetic_sensor", "AK09911C")
	env.Model(SensorType, "AK09911C", map[string]string{
		config.ElementVendor:      "AKM",
		config.ElementMinRange:    "-4912",
		config.ElementMaxRange:    "4912",
		config.ElementRawDataUnit: "0.6",
	})
	return env
}

func TestDescriptorFromConfig(t *testing.T) {
	is := is.New(t)
	env := newEnv(t)
	env.Tree.InputDevice(0, inputName, 0)
	d, err := New(env.Env)
	is.NoErr(err)
	info := d.Sensors()[0]
	is.Equal(info.MinRange, -4912.0)
	is.Equal(info.MaxRange, 4912.0)
	is.Equal(info.Resolution, 0.6)
}

func TestMissingRangeFails(t *testing.T) {
	env := halfake.NewEnv(t, "")
	env.Tree.Chip("geomagnetic_sensor", "AK09911C")
	env.Model(SensorType, "AK09911C", map[string]string{
		config.ElementVendor:      "AKM",
		config.ElementRawDataUnit: "0.6",
	})
	env.Tree.InputDevice(0, inputName, 0)
	if _, err := New(env.Env); errcode.Of(err) != errcode.NoDevice {
		t.Fatalf("err = %v", err)
	}
}

func TestStatusMapping(t *testing.T) {
	env := newEnv(t)
	env.Tree.InputDevice(0, inputName, 0)
	d, err := New(env.Env)
	if err != nil {
		t.Fatal(err)
	}
	// raw status -> (hdst = raw-1) -> accuracy
	cases := map[int32]types.Accuracy{
		1: 0, // hdst 0
		2: 0, // hdst 1 folds to 0
		3: 2,
		4: 3,
		0: -1,
	}
	for raw, want := range cases {
		env.Node.Events(halfake.Rel(input.RelHWheel, raw), halfake.Syn(1))
		if len(d.ReadFD()) != 1 {
			t.Fatalf("raw %d: read failed", raw)
		}
		s, _ := d.GetData(SensorID)
		if s.Accuracy != want || s.Values[3] != float64(want) {
			t.Errorf("raw %d: accuracy=%d values[3]=%v, want %d", raw, s.Accuracy, s.Values[3], want)
		}
	}
}

func TestEventAxesAndPartialStatus(t *testing.T) {
	is := is.New(t)
	env := newEnv(t)
	env.Tree.InputDevice(0, inputName, 0)
	d, err := New(env.Env)
	is.NoErr(err)

	env.Node.Events(
		halfake.Rel(input.RelRX, 10),
		halfake.Rel(input.RelRY, -10),
		halfake.Rel(input.RelRZ, 5),
		halfake.Rel(input.RelHWheel, 4),
		halfake.Syn(9),
	)
	is.Equal(len(d.ReadFD()), 1)
	// status not resent
	env.Node.Events(halfake.Rel(input.RelRX, 20), halfake.Syn(10))
	is.Equal(len(d.ReadFD()), 1)

	s, _ := d.GetData(SensorID)
	is.Equal(s.Values, []float64{20 * d.unit, -10 * d.unit, 5 * d.unit, 3})
	is.Equal(s.Accuracy, types.AccuracyVeryGood)
	is.Equal(s.Timestamp, uint64(10))
}

func TestIIORecord(t *testing.T) {
	is := is.New(t)
	env := newEnv(t)
	env.Tree.IIODevice(3, inputName, iioEnableNode)
	d, err := New(env.Env)
	is.NoErr(err)

	env.Node.Vec4(iio.Vec4{X: 100, Y: 200, Z: -300, Status: 3, Timestamp: 555})
	is.Equal(len(d.ReadFD()), 1)
	s, _ := d.GetData(SensorID)
	is.Equal(s.Values, []float64{100 * d.unit, 200 * d.unit, -300 * d.unit, 2})
	is.Equal(s.Accuracy, types.AccuracyGood)
	is.Equal(s.Timestamp, uint64(555))
}
