package light

import (
	"math"
	"testing"

	"github.com/matryer/is"

	"sensorhal-go/drivers/input"
	"sensorhal-go/errcode"
	"sensorhal-go/services/hal/internal/halfake"
)

func newDevice(t *testing.T, decoder string) (*Device, *halfake.Env) {
	t.Helper()
	env := halfake.NewEnv(t, "")
	env.Tree.InputDevice(0, inputName, 0)
	if decoder != "" {
		env.Tree.Chip("light_sensor", "CM3323")
		env.Model(SensorType, "CM3323", map[string]string{ElementDecoder: decoder})
	}
	d, err := New(env.Env)
	if err != nil {
		t.Fatal(err)
	}
	return d, env
}

func TestADCBranches(t *testing.T) {
	// ratio 2.0
	if got, want := ADCToLux(100, 50), 0.6985*math.Pow(100, 0.9943); got != want {
		t.Fatalf("high ratio: got %v want %v", got, want)
	}
	// straddle the 0.33 threshold
	if got, want := ADCToLux(33, 100), 0.6985*math.Pow(33, 0.9943); got != want {
		t.Fatalf("at threshold: got %v want %v", got, want)
	}
	if got, want := ADCToLux(32, 100), 0.25*math.Pow(32, 1.0552); got != want {
		t.Fatalf("below threshold: got %v want %v", got, want)
	}
	if got, want := ADCToLux(10, 0), 0.6985*math.Pow(10, 0.9943); got != want {
		t.Fatalf("zero white: got %v want %v", got, want)
	}
}

func TestDirectLux(t *testing.T) {
	is := is.New(t)
	d, env := newDevice(t, "")
	is.Equal(d.Sensors()[0].ModelName, DefaultModel)
	is.Equal(d.Sensors()[0].MaxRange, 65536.0)

	env.Node.Events(halfake.Abs(input.AbsMisc, 320), halfake.Syn(10))
	is.Equal(d.ReadFD(), []uint32{SensorID})
	s, err := d.GetData(SensorID)
	is.NoErr(err)
	is.Equal(s.Values, []float64{320})

	env.Node.Events(halfake.Rel(input.RelRX, 1), halfake.Syn(20))
	d.ReadFD()
	s, _ = d.GetData(SensorID)
	is.Equal(s.Values, []float64{0})
	is.Equal(s.Timestamp, uint64(20))

	// ADC channels are not part of the direct format
	env.Node.Events(halfake.Rel(input.RelHWheel, 5))
	is.Equal(len(d.ReadFD()), 0)
	is.Equal(env.Node.Pending(), 0)
	s, _ = d.GetData(SensorID)
	is.Equal(s.Values, []float64{0})
}

func TestADCDevice(t *testing.T) {
	is := is.New(t)
	d, env := newDevice(t, "adc")

	env.Node.Events(halfake.Rel(input.RelHWheel, 100), halfake.Rel(input.RelDial, 50), halfake.Syn(5))
	is.Equal(len(d.ReadFD()), 1)
	s, _ := d.GetData(SensorID)
	is.Equal(s.Values[0], ADCToLux(100, 50))

	// white channel only: adc is kept from the previous frame
	env.Node.Events(halfake.Rel(input.RelDial, 1000), halfake.Syn(6))
	is.Equal(len(d.ReadFD()), 1)
	s, _ = d.GetData(SensorID)
	is.Equal(s.Values[0], 0.25*math.Pow(100, 1.0552))
}

func TestUnknownDecoder(t *testing.T) {
	env := halfake.NewEnv(t, "")
	env.Tree.InputDevice(0, inputName, 0)
	env.Tree.Chip("light_sensor", "X")
	env.Model(SensorType, "X", map[string]string{ElementDecoder: "spectral"})
	if _, err := New(env.Env); errcode.Of(err) != errcode.NoDevice {
		t.Fatalf("err = %v", err)
	}
	if env.Node.Path != "" {
		t.Fatal("node opened for unknown decoder")
	}
}

func TestDecoders(t *testing.T) {
	got := Decoders()
	if len(got) != 2 || got[0] != "adc" || got[1] != "lux" {
		t.Fatalf("Decoders = %v", got)
	}
}
