package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"sensorhal-go/bus"
	"sensorhal-go/errcode"
	"sensorhal-go/services/hal/internal/consts"
	"sensorhal-go/services/hal/internal/core"
	"sensorhal-go/types"
)

// ---- Test fakes ----

type fakeDevice struct {
	fd    int
	infos []types.SensorInfo

	enabled  map[uint32]bool
	interval map[uint32]uint32
	reads    int
	refs     int // Enable minus Disable calls
}

var _ core.Device = (*fakeDevice)(nil)

func newFakeDevice(fd int, infos ...types.SensorInfo) *fakeDevice {
	return &fakeDevice{fd: fd, infos: infos, enabled: map[uint32]bool{}, interval: map[uint32]uint32{}}
}

func (d *fakeDevice) PollFD() int                 { return d.fd }
func (d *fakeDevice) Sensors() []types.SensorInfo { return d.infos }
func (d *fakeDevice) Close() error                { return nil }

func (d *fakeDevice) Enable(id uint32) bool {
	d.enabled[id] = true
	d.refs++
	return true
}

func (d *fakeDevice) Disable(id uint32) bool {
	d.enabled[id] = false
	d.refs--
	return true
}

func (d *fakeDevice) SetInterval(id, ms uint32) bool {
	d.interval[id] = ms
	return true
}

func (d *fakeDevice) ReadFD() []uint32 {
	d.reads++
	ids := make([]uint32, len(d.infos))
	for i, info := range d.infos {
		ids[i] = info.ID
	}
	return ids
}

func (d *fakeDevice) GetData(id uint32) (*types.SensorData, error) {
	s := types.NewSensorData(types.AccuracyGood, uint64(d.reads), 3)
	s.Values[0] = float64(id)
	return s, nil
}

// readyPoll reports every descriptor readable.
func readyPoll(fds []unix.PollFd, timeoutMs int) (int, error) {
	time.Sleep(time.Millisecond)
	for i := range fds {
		fds[i].Revents = unix.POLLIN
	}
	return len(fds), nil
}

func recvWithin[T any](t *testing.T, ch <-chan T, d time.Duration) (T, bool) {
	t.Helper()
	var zero T
	select {
	case v := <-ch:
		return v, true
	case <-time.After(d):
		return zero, false
	}
}

func request(t *testing.T, c *bus.Connection, name, verb string, payload any) types.Reply {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg := c.NewMessage(bus.Topic{consts.TokHAL, consts.TokSensor, name, consts.TokControl, verb}, payload, false)
	reply, err := c.RequestWait(ctx, msg)
	if err != nil {
		t.Fatalf("%s/%s: %v", name, verb, err)
	}
	r, ok := reply.Payload.(types.Reply)
	if !ok {
		t.Fatalf("%s/%s: unexpected reply %#v", name, verb, reply.Payload)
	}
	return r
}

func start(t *testing.T, devs ...core.Device) (*bus.Connection, *Service, func()) {
	t.Helper()
	b := bus.NewBus(16)
	conn := b.NewConnection("test")
	s := New(conn, devs, Options{Poll: readyPoll, PollTimeout: 5 * time.Millisecond, Log: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return conn, s, func() {
		cancel()
		<-done
	}
}

// ---- Tests ----

func TestServicePublishesStateAndValues(t *testing.T) {
	accel := newFakeDevice(7, types.SensorInfo{ID: 1, Type: types.SensorAccelerometer})
	conn, _, stop := start(t, accel)

	stateSub := conn.Subscribe(bus.Topic{consts.TokHAL, consts.TokState})
	defer conn.Unsubscribe(stateSub)
	if msg, ok := recvWithin(t, stateSub.Channel(), 500*time.Millisecond); !ok {
		t.Fatal("did not receive hal/state")
	} else if st := msg.Payload.(types.HALState); st.Level != consts.LevelRunning || st.Devices != 1 {
		t.Fatalf("unexpected state %+v", st)
	}

	infoSub := conn.Subscribe(bus.Topic{consts.TokHAL, consts.TokSensor, "accelerometer", consts.TokInfo})
	defer conn.Unsubscribe(infoSub)
	if msg, ok := recvWithin(t, infoSub.Channel(), 500*time.Millisecond); !ok {
		t.Fatal("no retained info")
	} else if info := msg.Payload.(types.SensorInfo); info.Type != types.SensorAccelerometer {
		t.Fatalf("unexpected info %+v", info)
	}

	valSub := conn.Subscribe(bus.Topic{consts.TokHAL, consts.TokSensor, "accelerometer", consts.TokValue})
	defer conn.Unsubscribe(valSub)

	// nothing is read until enabled
	if _, ok := recvWithin(t, valSub.Channel(), 30*time.Millisecond); ok {
		t.Fatal("value published before enable")
	}

	if r := request(t, conn, "accelerometer", consts.CtrlEnable, nil); !r.OK {
		t.Fatalf("enable: %+v", r)
	}
	msg, ok := recvWithin(t, valSub.Channel(), time.Second)
	if !ok {
		t.Fatal("timeout waiting for value")
	}
	smp := msg.Payload.(types.SensorSample)
	if smp.Sensor != "accelerometer" || smp.ID != 1 || smp.Data.Values[0] != 1 {
		t.Fatalf("unexpected sample %+v", smp)
	}

	if r := request(t, conn, "accelerometer", consts.CtrlInterval, map[string]any{"ms": 20}); !r.OK {
		t.Fatalf("interval: %+v", r)
	}
	if r := request(t, conn, "accelerometer", consts.CtrlInterval, types.Interval{}); r.OK || r.Error != string(errcode.InvalidParams) {
		t.Fatalf("zero interval: %+v", r)
	}
	if r := request(t, conn, "accelerometer", consts.CtrlRead, nil); !r.OK || r.Data == nil {
		t.Fatalf("read: %+v", r)
	}
	if r := request(t, conn, "accelerometer", "calibrate", nil); r.Error != string(errcode.Unsupported) {
		t.Fatalf("unknown verb: %+v", r)
	}
	if r := request(t, conn, "barometer", consts.CtrlEnable, nil); r.Error != string(errcode.UnknownSensor) {
		t.Fatalf("unknown sensor: %+v", r)
	}

	stop()
	if accel.enabled[1] {
		t.Fatal("sensor still enabled after shutdown")
	}
	if accel.interval[1] != 20 {
		t.Fatalf("interval = %d", accel.interval[1])
	}

	last := conn.Subscribe(bus.Topic{consts.TokHAL, consts.TokState})
	defer conn.Unsubscribe(last)
	if msg, ok := recvWithin(t, last.Channel(), 500*time.Millisecond); !ok {
		t.Fatal("no final state")
	} else if st := msg.Payload.(types.HALState); st.Level != consts.LevelStopped {
		t.Fatalf("final state %+v", st)
	}
}

func TestServiceSharedDevice(t *testing.T) {
	hrm := newFakeDevice(9,
		types.SensorInfo{ID: 1, Type: types.SensorHRMRaw},
		types.SensorInfo{ID: 2, Type: types.SensorHRMLEDGreen},
	)
	conn, s, stop := start(t, hrm)
	defer stop()

	if got := s.Sensors(); len(got) != 2 || got[0] != "hrm_raw" || got[1] != "hrm_led_green" {
		t.Fatalf("Sensors = %v", got)
	}

	green := conn.Subscribe(bus.Topic{consts.TokHAL, consts.TokSensor, "hrm_led_green", consts.TokValue})
	defer conn.Unsubscribe(green)
	raw := conn.Subscribe(bus.Topic{consts.TokHAL, consts.TokSensor, "hrm_raw", consts.TokValue})
	defer conn.Unsubscribe(raw)

	request(t, conn, "hrm_led_green", consts.CtrlEnable, nil)
	if _, ok := recvWithin(t, green.Channel(), time.Second); !ok {
		t.Fatal("no green sample")
	}
	// ids that are not enabled are read but not published
	if _, ok := recvWithin(t, raw.Channel(), 30*time.Millisecond); ok {
		t.Fatal("raw published while disabled")
	}

	st := conn.Subscribe(bus.Topic{consts.TokHAL, consts.TokSensor, "hrm_led_green", consts.TokState})
	defer conn.Unsubscribe(st)
	if msg, ok := recvWithin(t, st.Channel(), 500*time.Millisecond); !ok {
		t.Fatal("no status")
	} else if ss := msg.Payload.(types.SensorStatus); ss.Link != types.LinkUp {
		t.Fatalf("status %+v", ss)
	}
}

func TestDuplicateTypesGetDistinctNames(t *testing.T) {
	a := newFakeDevice(1, types.SensorInfo{ID: 1, Type: types.SensorLight})
	b := newFakeDevice(2, types.SensorInfo{ID: 3, Type: types.SensorLight})
	s := New(bus.NewBus(4).NewConnection("x"), []core.Device{a, b}, Options{})
	if got := s.Sensors(); got[0] != "light" || got[1] != "light_3" {
		t.Fatalf("Sensors = %v", got)
	}
}

func TestRepeatedEnableIsNoOp(t *testing.T) {
	raw := newFakeDevice(5, types.SensorInfo{ID: 1, Type: types.SensorHRMRaw})
	conn, _, stop := start(t, raw)

	for _, verb := range []string{consts.CtrlEnable, consts.CtrlEnable, consts.CtrlDisable, consts.CtrlDisable} {
		if r := request(t, conn, "hrm_raw", verb, nil); !r.OK {
			t.Fatalf("%s: %+v", verb, r)
		}
	}
	request(t, conn, "hrm_raw", consts.CtrlEnable, nil)
	request(t, conn, "hrm_raw", consts.CtrlEnable, nil)
	stop()

	if raw.refs != 0 {
		t.Fatalf("device left armed: refs=%d", raw.refs)
	}
}
