// Package service hosts the sensor devices: it multiplexes their data nodes
// with poll(2), publishes samples on the bus and serves per-sensor control.
// Every device call happens on the Run goroutine.
package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"sensorhal-go/bus"
	"sensorhal-go/errcode"
	"sensorhal-go/services/hal/internal/consts"
	"sensorhal-go/services/hal/internal/core"
	"sensorhal-go/services/hal/internal/util"
	"sensorhal-go/types"
)

// Poller waits for readiness on fds, as unix.Poll does.
type Poller func(fds []unix.PollFd, timeoutMs int) (int, error)

const DefaultPollTimeout = 100 * time.Millisecond

type Options struct {
	// PollTimeout bounds each wait so control and cancellation are seen.
	PollTimeout time.Duration
	Poll        Poller
	Log         zerolog.Logger
}

type sensor struct {
	name    string
	dev     core.Device
	info    types.SensorInfo
	enabled bool
}

type Service struct {
	conn    *bus.Connection
	devs    []core.Device
	sensors map[string]*sensor
	order   []*sensor
	opts    Options
	timer   *time.Timer
}

var topicCtrl = bus.Topic{consts.TokHAL, consts.TokSensor, bus.SingleWild, consts.TokControl, bus.SingleWild}

func New(conn *bus.Connection, devs []core.Device, opts Options) *Service {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if opts.Poll == nil {
		opts.Poll = unix.Poll
	}
	s := &Service{
		conn:    conn,
		devs:    devs,
		sensors: map[string]*sensor{},
		opts:    opts,
	}
	for _, d := range devs {
		for _, info := range d.Sensors() {
			name := info.Type.String()
			if _, dup := s.sensors[name]; dup {
				name += "_" + strconv.FormatUint(uint64(info.ID), 10)
			}
			sn := &sensor{name: name, dev: d, info: info}
			s.sensors[name] = sn
			s.order = append(s.order, sn)
		}
	}
	return s
}

// Sensors lists the published sensor names in device order.
func (s *Service) Sensors() []string {
	out := make([]string, len(s.order))
	for i, sn := range s.order {
		out[i] = sn.name
	}
	return out
}

func (s *Service) Run(ctx context.Context) {
	ctrlSub := s.conn.Subscribe(topicCtrl)
	defer s.conn.Unsubscribe(ctrlSub)

	for _, sn := range s.order {
		s.pubRet(sn.name, consts.TokInfo, sn.info)
		s.pubStatus(sn, types.LinkDown, "")
	}
	s.publishState(consts.LevelRunning, "started")

	s.timer = time.NewTimer(time.Hour)
	if !s.timer.Stop() {
		util.DrainTimer(s.timer)
	}

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case msg := <-ctrlSub.Channel():
			s.handleControl(msg)
			continue
		default:
		}

		fds, owners := s.pollSet()
		if len(fds) == 0 {
			util.ResetTimer(s.timer, s.opts.PollTimeout)
			select {
			case <-ctx.Done():
				s.shutdown()
				return
			case msg := <-ctrlSub.Channel():
				s.handleControl(msg)
			case <-s.timer.C:
			}
			continue
		}

		n, err := s.opts.Poll(fds, int(s.opts.PollTimeout/time.Millisecond))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			s.opts.Log.Error().Err(err).Msg("poll failed")
			s.publishState(consts.LevelRunning, "poll_failed")
			util.ResetTimer(s.timer, s.opts.PollTimeout)
			select {
			case <-ctx.Done():
			case <-s.timer.C:
			}
			continue
		}
		if n == 0 {
			continue
		}
		for i, fd := range fds {
			switch {
			case fd.Revents&unix.POLLIN != 0:
				s.acquire(owners[i])
			case fd.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0:
				s.degrade(owners[i], "poll_error")
			}
		}
	}
}

// pollSet collects the descriptors of devices with an enabled sensor.
func (s *Service) pollSet() ([]unix.PollFd, []core.Device) {
	var fds []unix.PollFd
	var owners []core.Device
	for _, d := range s.devs {
		if !s.anyEnabled(d) {
			continue
		}
		fd := d.PollFD()
		if fd < 0 {
			continue
		}
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
		owners = append(owners, d)
	}
	return fds, owners
}

func (s *Service) anyEnabled(d core.Device) bool {
	for _, sn := range s.order {
		if sn.dev == d && sn.enabled {
			return true
		}
	}
	return false
}

func (s *Service) lookup(d core.Device, id uint32) *sensor {
	for _, sn := range s.order {
		if sn.dev == d && sn.info.ID == id {
			return sn
		}
	}
	return nil
}

// acquire runs one ReadFD and publishes every enabled sensor it reports.
func (s *Service) acquire(d core.Device) {
	for _, id := range d.ReadFD() {
		sn := s.lookup(d, id)
		if sn == nil || !sn.enabled {
			continue
		}
		data, err := d.GetData(id)
		if err != nil {
			s.opts.Log.Warn().Err(err).Str("sensor", sn.name).Msg("get data failed")
			continue
		}
		s.conn.Publish(s.conn.NewMessage(
			SensorTopic(sn.name, consts.TokValue),
			types.SensorSample{Sensor: sn.name, ID: id, Type: sn.info.Type, Data: *data},
			false,
		))
	}
}

func (s *Service) degrade(d core.Device, code string) {
	for _, sn := range s.order {
		if sn.dev == d && sn.enabled {
			s.pubStatus(sn, types.LinkDegraded, code)
		}
	}
}

func (s *Service) handleControl(msg *bus.Message) {
	if msg == nil || len(msg.Topic) != 5 {
		return
	}
	name, _ := msg.Topic[2].(string)
	verb, _ := msg.Topic[4].(string)
	sn, ok := s.sensors[name]
	if !ok {
		s.replyErr(msg, errcode.UnknownSensor)
		return
	}
	log := s.opts.Log.With().Str("sensor", name).Str("verb", verb).Logger()

	switch verb {
	case consts.CtrlEnable:
		if sn.enabled {
			s.conn.Reply(msg, types.Reply{OK: true}, false)
			return
		}
		if !sn.dev.Enable(sn.info.ID) {
			s.replyErr(msg, errcode.Error)
			return
		}
		sn.enabled = true
		s.pubStatus(sn, types.LinkUp, "")
		s.conn.Reply(msg, types.Reply{OK: true}, false)

	case consts.CtrlDisable:
		if !sn.enabled {
			s.conn.Reply(msg, types.Reply{OK: true}, false)
			return
		}
		sn.dev.Disable(sn.info.ID)
		sn.enabled = false
		s.pubStatus(sn, types.LinkDown, "")
		s.conn.Reply(msg, types.Reply{OK: true}, false)

	case consts.CtrlInterval:
		var p types.Interval
		if err := util.DecodeJSON(msg.Payload, &p); err != nil || p.Ms == 0 {
			s.replyErr(msg, errcode.InvalidParams)
			return
		}
		if !sn.dev.SetInterval(sn.info.ID, p.Ms) {
			s.replyErr(msg, errcode.Error)
			return
		}
		s.conn.Reply(msg, types.Reply{OK: true}, false)

	case consts.CtrlRead:
		data, err := sn.dev.GetData(sn.info.ID)
		if err != nil {
			s.replyErr(msg, errcode.Of(err))
			return
		}
		s.conn.Reply(msg, types.Reply{OK: true, Data: data}, false)

	default:
		s.replyErr(msg, errcode.Unsupported)
		return
	}
	log.Info().Msg("control")
}

func (s *Service) shutdown() {
	for _, sn := range s.order {
		if sn.enabled {
			sn.dev.Disable(sn.info.ID)
			sn.enabled = false
		}
		s.pubStatus(sn, types.LinkDown, "")
	}
	s.publishState(consts.LevelStopped, "context_cancelled")
}

// ---- bus helpers ----

// SensorTopic is hal/sensor/<name>/<rest...>.
func SensorTopic(name string, rest ...bus.Token) bus.Topic {
	return append(bus.Topic{consts.TokHAL, consts.TokSensor, name}, rest...)
}

func (s *Service) pubRet(name, suffix string, p any) {
	s.conn.Publish(s.conn.NewMessage(SensorTopic(name, suffix), p, true))
}

func (s *Service) pubStatus(sn *sensor, link types.Link, code string) {
	s.pubRet(sn.name, consts.TokState, types.SensorStatus{Link: link, TS: time.Now().UnixNano(), Error: code})
}

func (s *Service) publishState(level, status string) {
	s.conn.Publish(s.conn.NewMessage(bus.Topic{consts.TokHAL, consts.TokState}, types.HALState{
		Level:   level,
		Status:  status,
		Devices: len(s.devs),
		TS:      time.Now().UnixNano(),
	}, true))
}

func (s *Service) replyErr(req *bus.Message, code errcode.Code) {
	s.conn.Reply(req, types.Reply{OK: false, Error: string(code)}, false)
}
