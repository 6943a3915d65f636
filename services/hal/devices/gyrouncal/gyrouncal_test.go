package gyrouncal

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"sensorhal-go/drivers/input"
	"sensorhal-go/errcode"
	"sensorhal-go/services/hal/config"
	"sensorhal-go/services/hal/internal/halerr"
	"sensorhal-go/services/hal/internal/halfake"
)

func TestDefaultsWithoutModel(t *testing.T) {
	is := is.New(t)
	env := halfake.NewEnv(t, "")
	env.Tree.InputDevice(0, inputName, 0)
	d, err := New(env.Env)
	is.NoErr(err)

	info := d.Sensors()[0]
	is.Equal(info.ModelName, DefaultModel)
	is.Equal(info.Vendor, DefaultVendor)
	unit := DefaultRawDataUnit
	is.Equal(info.Resolution, unit/dpsToMdps)
	is.Equal(info.MaxRange, 32767*d.dps)
}

func TestModelOverridesDefaults(t *testing.T) {
	is := is.New(t)
	env := halfake.NewEnv(t, "")
	env.Tree.Chip("gyro_sensor", "LSM6DS3")
	env.Model(SensorType, "LSM6DS3", map[string]string{
		config.ElementVendor:      "ST",
		config.ElementRawDataUnit: "70",
	})
	env.Tree.InputDevice(0, inputName, 0)
	d, err := New(env.Env)
	is.NoErr(err)
	info := d.Sensors()[0]
	is.Equal(info.ModelName, "LSM6DS3")
	is.Equal(info.Vendor, "ST")
	is.Equal(info.Resolution, 0.07)
}

func TestSixDistinctSlots(t *testing.T) {
	is := is.New(t)
	env := halfake.NewEnv(t, "")
	env.Tree.InputDevice(0, inputName, 0)
	d, err := New(env.Env)
	is.NoErr(err)

	env.Node.Events(
		halfake.Rel(input.RelRX, 1),
		halfake.Rel(input.RelRY, 2),
		halfake.Rel(input.RelRZ, 3),
		halfake.Rel(input.RelHWheel, 4),
		halfake.Rel(input.RelDial, 5),
		halfake.Rel(input.RelWheel, 6),
		halfake.Syn(77),
	)
	is.Equal(d.ReadFD(), []uint32{SensorID})
	s, err := d.GetData(SensorID)
	is.NoErr(err)
	is.Equal(len(s.Values), 6)
	for i, v := range s.Values {
		is.Equal(v, float64(i+1)*d.dps)
	}
	is.Equal(s.Timestamp, uint64(77))

	_, err = d.GetData(0)
	is.Equal(errcode.Of(err), errcode.UnknownSensor)
}

func TestRejectsIIO(t *testing.T) {
	env := halfake.NewEnv(t, "")
	env.Tree.IIODevice(0, inputName, iioEnableNode)
	_, err := New(env.Env)
	if errcode.Of(err) != errcode.NoDevice || !errors.Is(err, halerr.ErrTransport) {
		t.Fatalf("err = %v", err)
	}
}
