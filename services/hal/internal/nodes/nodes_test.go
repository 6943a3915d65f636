package nodes_test

import (
	"errors"
	"path/filepath"
	"testing"

	"sensorhal-go/services/hal/config"
	"sensorhal-go/services/hal/internal/halfake"
	"sensorhal-go/services/hal/internal/nodes"
)

func TestResolveInputDirect(t *testing.T) {
	tr := halfake.NewTree(t)
	tr.InputDevice(0, "light_sensor", 0)
	tr.InputDevice(3, "accelerometer_sensor", 5)
	r := nodes.New(tr.Root)

	q := nodes.Query{SensorType: "ACCEL", Key: "accelerometer_sensor", HubIntervalNode: "accel_poll_delay"}
	if r.IsHubControlled(q.HubIntervalNode) {
		t.Fatal("no hub in tree")
	}
	info, err := r.Resolve(q)
	if err != nil {
		t.Fatal(err)
	}
	want := nodes.Info{
		Method:       nodes.MethodInputEvent,
		DataNode:     tr.Path("dev/input/event5"),
		EnableNode:   tr.Path("sys/class/input/input3/enable"),
		IntervalNode: tr.Path("sys/class/input/input3/poll_delay"),
	}
	if info != want {
		t.Fatalf("got %+v\nwant %+v", info, want)
	}
}

func TestResolveInputHub(t *testing.T) {
	tr := halfake.NewTree(t)
	tr.Hub("gyro_poll_delay")
	tr.InputDevice(1, "gyro_sensor", 2)
	r := nodes.New(tr.Root)

	q := nodes.Query{Key: "gyro_sensor", HubIntervalNode: "gyro_poll_delay"}
	q.Hub = r.IsHubControlled(q.HubIntervalNode)
	if !q.Hub {
		t.Fatal("hub not detected")
	}
	info, err := r.Resolve(q)
	if err != nil {
		t.Fatal(err)
	}
	if info.EnableNode != tr.Path("sys/class/sensors/ssp_sensor/enable") ||
		info.IntervalNode != tr.Path("sys/class/sensors/ssp_sensor/gyro_poll_delay") ||
		info.DataNode != tr.Path("dev/input/event2") {
		t.Fatalf("hub info = %+v", info)
	}
}

func TestResolveIIO(t *testing.T) {
	tr := halfake.NewTree(t)
	tr.IIODevice(2, "accelerometer_sensor", "accel_enable")
	r := nodes.New(tr.Root)

	info, err := r.Resolve(nodes.Query{Key: "accelerometer_sensor", IIOEnableNode: "accel_enable"})
	if err != nil {
		t.Fatal(err)
	}
	base := tr.Path("sys/bus/iio/devices/iio:device2")
	want := nodes.Info{
		Method:           nodes.MethodIIO,
		DataNode:         tr.Path("dev/iio:device2"),
		EnableNode:       filepath.Join(base, "accel_enable"),
		IntervalNode:     filepath.Join(base, "sampling_frequency"),
		BufferEnableNode: filepath.Join(base, "buffer/enable"),
		BufferLengthNode: filepath.Join(base, "buffer/length"),
		TriggerNode:      filepath.Join(base, "trigger/current_trigger"),
	}
	if info != want {
		t.Fatalf("got %+v\nwant %+v", info, want)
	}

	// hub mode: controls move to ssp_sensor, no trigger
	tr.Hub("accel_poll_delay")
	info, err = r.Resolve(nodes.Query{Key: "accelerometer_sensor", HubIntervalNode: "accel_poll_delay", Hub: true})
	if err != nil {
		t.Fatal(err)
	}
	if info.EnableNode != tr.Path("sys/class/sensors/ssp_sensor/enable") || info.TriggerNode != "" ||
		info.BufferLengthNode != filepath.Join(base, "buffer/length") {
		t.Fatalf("hub iio info = %+v", info)
	}
}

func TestResolveInputWinsOverIIO(t *testing.T) {
	tr := halfake.NewTree(t)
	tr.IIODevice(0, "gyro_sensor", "gyro_enable")
	tr.InputDevice(0, "gyro_sensor", 1)
	info, err := nodes.New(tr.Root).Resolve(nodes.Query{Key: "gyro_sensor"})
	if err != nil || info.Method != nodes.MethodInputEvent {
		t.Fatalf("info=%+v err=%v", info, err)
	}
}

func TestResolveNotFound(t *testing.T) {
	tr := halfake.NewTree(t)
	tr.InputDevice(0, "light_sensor", 0)
	tr.Write("sys/class/input/input1/name", "proximity_sensor\n") // no eventN child
	r := nodes.New(tr.Root)

	if _, err := r.Resolve(nodes.Query{Key: "pressure_sensor"}); !errors.Is(err, nodes.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if _, err := r.Resolve(nodes.Query{Key: "proximity_sensor"}); !errors.Is(err, nodes.ErrNotFound) {
		t.Fatalf("missing event child err = %v", err)
	}
}

func TestFindModelID(t *testing.T) {
	tr := halfake.NewTree(t)
	tr.Chip("accelerometer_sensor", "K2HH")
	tr.Chip("gyro_sensor", "BMI168")
	c := config.New("")
	c.Set("GYRO", "BMI168", config.ElementName, config.AttrValue, "BMI168")
	r := nodes.New(tr.Root)

	id, err := r.FindModelID(c, "GYRO")
	if err != nil || id != "BMI168" {
		t.Fatalf("id=%q err=%v", id, err)
	}
	if _, err := r.FindModelID(c, "ACCEL"); !errors.Is(err, nodes.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestSetEnableBitmask(t *testing.T) {
	tr := halfake.NewTree(t)
	tr.Write("enable", "5") // bits 0 and 2
	p := tr.Path("enable")

	if err := nodes.SetEnable(p, true, true, 9); err != nil {
		t.Fatal(err)
	}
	if got := tr.ReadInt("enable"); got != 5|1<<9 {
		t.Fatalf("after set = %d", got)
	}
	if err := nodes.SetEnable(p, true, false, 2); err != nil {
		t.Fatal(err)
	}
	if got := tr.ReadInt("enable"); got != 1|1<<9 {
		t.Fatalf("after clear = %d", got)
	}
	// direct nodes ignore the bit and use bit 0
	if err := nodes.SetEnable(p, false, false, 9); err != nil {
		t.Fatal(err)
	}
	if got := tr.ReadInt("enable"); got != 1<<9 {
		t.Fatalf("after direct clear = %d", got)
	}
}

func TestSetIntervalAndMissingNode(t *testing.T) {
	tr := halfake.NewTree(t)
	tr.Write("poll_delay", "0")
	if err := nodes.SetIntervalMs(tr.Path("poll_delay"), 200); err != nil {
		t.Fatal(err)
	}
	if got := tr.ReadInt("poll_delay"); got != 200_000_000 {
		t.Fatalf("interval = %d", got)
	}
	if err := nodes.SetValue(tr.Path("absent"), 1); err == nil {
		t.Fatal("write to missing node must fail")
	}
	if nodes.Exists(tr.Path("absent")) {
		t.Fatal("node created by failed write")
	}
	if err := nodes.SetEnable(tr.Path("absent"), false, true, 0); err == nil {
		t.Fatal("enable on missing node must fail")
	}
}
