// Package heartbeat publishes a retained liveness beat for the sensor daemon.
package heartbeat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"sensorhal-go/bus"
	"sensorhal-go/types"
)

var (
	TopicBeat   = bus.Topic{"hal", "heartbeat"}
	TopicConfig = bus.Topic{"config", "heartbeat"}
)

const DefaultInterval = time.Second

type Service struct {
	Interval time.Duration
	Log      zerolog.Logger

	seq   uint64
	start time.Time
}

func New(interval time.Duration, log zerolog.Logger) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{Interval: interval, Log: log}
}

// Run beats until ctx is cancelled, then clears the retained beat.
// A types.Interval on config/heartbeat changes the period.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(TopicConfig)
	defer conn.Unsubscribe(cfgSub)

	s.start = time.Now()
	tick := time.NewTicker(s.Interval)
	defer tick.Stop()

	s.beat(conn)
	for {
		select {
		case <-ctx.Done():
			conn.Publish(conn.NewMessage(TopicBeat, nil, true))
			s.Log.Debug().Uint64("seq", s.seq).Msg("heartbeat stopping")
			return
		case <-tick.C:
			s.beat(conn)
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			iv, ok := intervalOf(msg.Payload)
			if !ok {
				s.Log.Warn().Interface("payload", msg.Payload).Msg("heartbeat: bad interval")
				continue
			}
			s.Interval = iv
			tick.Reset(iv)
			s.Log.Info().Dur("interval", iv).Msg("heartbeat interval set")
		}
	}
}

func (s *Service) beat(conn *bus.Connection) {
	s.seq++
	now := time.Now()
	conn.Publish(conn.NewMessage(TopicBeat, types.Heartbeat{
		Seq:    s.seq,
		Uptime: now.Sub(s.start).Milliseconds(),
		TS:     now.UnixNano(),
	}, true))
}

func intervalOf(p any) (time.Duration, bool) {
	var ms uint32
	switch v := p.(type) {
	case types.Interval:
		ms = v.Ms
	case *types.Interval:
		if v == nil {
			return 0, false
		}
		ms = v.Ms
	case map[string]any:
		f, ok := v["ms"].(float64)
		if !ok || f < 1 {
			return 0, false
		}
		ms = uint32(f)
	default:
		return 0, false
	}
	if ms == 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}
