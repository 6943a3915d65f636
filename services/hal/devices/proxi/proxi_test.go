package proxi

import (
	"testing"

	"github.com/matryer/is"

	"sensorhal-go/drivers/input"
	"sensorhal-go/errcode"
	"sensorhal-go/services/hal/config"
	"sensorhal-go/services/hal/internal/halfake"
)

func newDevice(t *testing.T) (*Device, *halfake.Env) {
	t.Helper()
	env := halfake.NewEnv(t, "")
	env.Tree.Chip("proximity_sensor", "TMD3782")
	env.Model(SensorType, "TMD3782", map[string]string{config.ElementVendor: "AMS"})
	env.Tree.InputDevice(2, inputName, 4)
	d, err := New(env.Env)
	if err != nil {
		t.Fatal(err)
	}
	return d, env
}

func TestNearFar(t *testing.T) {
	is := is.New(t)
	d, env := newDevice(t)

	s, err := d.GetData(SensorID)
	is.NoErr(err)
	is.Equal(s.Values, []float64{5}) // far until told otherwise

	env.Node.Events(halfake.Abs(input.AbsDistance, StateNear), halfake.Syn(100))
	is.Equal(d.ReadFD(), []uint32{SensorID})
	s, _ = d.GetData(SensorID)
	is.Equal(s.Values, []float64{0})
	is.Equal(s.Timestamp, uint64(100))

	env.Node.Events(halfake.Abs(input.AbsDistance, StateFar), halfake.Syn(200))
	d.ReadFD()
	s, _ = d.GetData(SensorID)
	is.Equal(s.Values, []float64{5})
}

func TestUnknownStateRejected(t *testing.T) {
	is := is.New(t)
	d, env := newDevice(t)

	env.Node.Events(halfake.Abs(input.AbsDistance, StateNear), halfake.Syn(1))
	d.ReadFD()

	env.Node.Events(halfake.Abs(input.AbsDistance, 3), halfake.Syn(2))
	is.Equal(len(d.ReadFD()), 0)
	s, _ := d.GetData(SensorID)
	is.Equal(s.Values, []float64{0})
	is.Equal(s.Timestamp, uint64(1))

	// anything other than ABS_DISTANCE fails the frame
	env.Node.Events(halfake.Rel(input.RelX, 1))
	is.Equal(len(d.ReadFD()), 0)
}

func TestNoIntervalControl(t *testing.T) {
	is := is.New(t)
	d, env := newDevice(t)
	before := env.Tree.Read("sys/class/input/input2/poll_delay")
	is.True(d.SetInterval(SensorID, 10))
	is.True(d.Enable(SensorID))
	is.Equal(env.Tree.Read("sys/class/input/input2/poll_delay"), before)
	is.Equal(env.Tree.Read("sys/class/input/input2/enable"), "1")
}

func TestModelRequired(t *testing.T) {
	env := halfake.NewEnv(t, "")
	env.Tree.InputDevice(0, inputName, 0)
	if _, err := New(env.Env); errcode.Of(err) != errcode.NoDevice {
		t.Fatalf("err = %v", err)
	}
}
