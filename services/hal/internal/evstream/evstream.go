// Package evstream reassembles evdev events into frames terminated by
// EV_SYN.
//
// A frame is accumulated one event per read. Mapped events land in their
// slot; EV_SYN completes the frame; anything else, a short read or running
// out of budget before EV_SYN fails it. Only a completed frame is handed
// back, and only the slots it actually received are meant to be applied.
package evstream

import (
	"errors"
	"io"

	"sensorhal-go/drivers/input"
	"sensorhal-go/services/hal/internal/halerr"
)

// Event budgets per frame.
const (
	DefaultBudget = 10
	RawBudget     = 20
)

// MaxSlots bounds a layout.
const MaxSlots = 16

type State int

const (
	Accumulating State = iota
	Synchronized
	Failed
)

func (s State) String() string {
	switch s {
	case Accumulating:
		return "accumulating"
	case Synchronized:
		return "synchronized"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Key selects an event.
type Key struct {
	Type, Code uint16
}

// Rel and Abs are shorthands for layout keys.
func Rel(code uint16) Key { return Key{Type: input.EvRel, Code: code} }
func Abs(code uint16) Key { return Key{Type: input.EvAbs, Code: code} }

// Layout maps events to slots in [0, MaxSlots).
type Layout map[Key]int

// Frame is one reassembled frame.
type Frame struct {
	Values   [MaxSlots]int32
	Received uint32 // bit i set when slot i was seen
	Time     uint64 // µs, from the EV_SYN event
}

func (f *Frame) Has(slot int) bool { return f.Received&(1<<uint(slot)) != 0 }

// Apply copies the received slots into dst, leaving the others alone.
func (f *Frame) Apply(dst []int32) {
	for i := range dst {
		if i < MaxSlots && f.Has(i) {
			dst[i] = f.Values[i]
		}
	}
}

// Reassembler holds one frame in progress.
type Reassembler struct {
	layout Layout
	budget int
	state  State
	count  int
	frame  Frame
	err    error
	buf    [input.Size]byte
}

// New returns a reassembler; budget <= 0 means DefaultBudget.
func New(layout Layout, budget int) *Reassembler {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Reassembler{layout: layout, budget: budget}
}

// Reset starts a new frame.
func (r *Reassembler) Reset() {
	r.state = Accumulating
	r.count = 0
	r.frame = Frame{}
	r.err = nil
}

func (r *Reassembler) State() State { return r.state }
func (r *Reassembler) Err() error   { return r.err }
func (r *Reassembler) Frame() Frame { return r.frame }
func (r *Reassembler) Count() int   { return r.count }

// Feed advances the state machine by one event. Feeding a finished frame
// has no effect.
func (r *Reassembler) Feed(ev input.Event) State {
	if r.state != Accumulating {
		return r.state
	}
	r.count++
	if ev.IsSync() {
		r.frame.Time = ev.Micros()
		r.state = Synchronized
		return r.state
	}
	slot, ok := r.layout[Key{Type: ev.Type, Code: ev.Code}]
	if !ok || slot < 0 || slot >= MaxSlots {
		return r.fail(halerr.ErrUnknownEvent)
	}
	r.frame.Values[slot] = ev.Value
	r.frame.Received |= 1 << uint(slot)
	if r.count >= r.budget {
		return r.fail(halerr.ErrNoSync)
	}
	return r.state
}

func (r *Reassembler) fail(err error) State {
	r.state = Failed
	r.err = err
	return r.state
}

// Read reassembles one frame from src.
func (r *Reassembler) Read(src io.Reader) (Frame, error) {
	r.Reset()
	for r.state == Accumulating {
		ev, err := input.Read(src, r.buf[:])
		if err != nil {
			r.fail(shortRead(err))
			break
		}
		r.Feed(ev)
	}
	if r.state != Synchronized {
		return Frame{}, r.err
	}
	return r.frame, nil
}

// Scan is the read loop for readers that keep their own state. fn sees
// every non-sync event and fails the frame by returning an error. The
// terminating EV_SYN event is returned on success.
func Scan(src io.Reader, budget int, fn func(input.Event) error) (input.Event, error) {
	if budget <= 0 {
		budget = DefaultBudget
	}
	var buf [input.Size]byte
	for count := 1; ; count++ {
		ev, err := input.Read(src, buf[:])
		if err != nil {
			return input.Event{}, shortRead(err)
		}
		if ev.IsSync() {
			return ev, nil
		}
		if err := fn(ev); err != nil {
			return input.Event{}, err
		}
		if count >= budget {
			return input.Event{}, halerr.ErrNoSync
		}
	}
}

func shortRead(err error) error {
	if errors.Is(err, input.ErrShortEvent) {
		return halerr.ErrShortRead
	}
	return errors.Join(halerr.ErrShortRead, err)
}
