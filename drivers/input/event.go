// Package input decodes the Linux evdev wire format (struct input_event) and
// exposes the few ioctls a sensor reader needs.
//
// The kernel writes events as
//
//	struct timeval time; __u16 type; __u16 code; __s32 value;
//
// where the timeval fields are native longs. Every supported target is
// little-endian.
package input

import (
	"encoding/binary"
	"errors"
	"io"
)

// wordSize is the size of a native long in bytes.
const wordSize = (32 << (^uint(0) >> 63)) / 8

// Size is the byte length of one input_event on this platform.
const Size = 2*wordSize + 8

// ErrShortEvent is returned when fewer than Size bytes were read.
var ErrShortEvent = errors.New("input: short event")

// Event is one decoded input_event.
type Event struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// Micros returns the event time in microseconds.
func (e Event) Micros() uint64 {
	return uint64(e.Sec)*1_000_000 + uint64(e.Usec)
}

// IsSync reports an EV_SYN event.
func (e Event) IsSync() bool { return e.Type == EvSyn }

// Decode parses one event from b, which must hold at least Size bytes.
func Decode(b []byte) (Event, error) {
	if len(b) < Size {
		return Event{}, ErrShortEvent
	}
	var ev Event
	if wordSize == 8 {
		ev.Sec = int64(binary.LittleEndian.Uint64(b[0:8]))
		ev.Usec = int64(binary.LittleEndian.Uint64(b[8:16]))
	} else {
		ev.Sec = int64(int32(binary.LittleEndian.Uint32(b[0:4])))
		ev.Usec = int64(int32(binary.LittleEndian.Uint32(b[4:8])))
	}
	o := 2 * wordSize
	ev.Type = binary.LittleEndian.Uint16(b[o : o+2])
	ev.Code = binary.LittleEndian.Uint16(b[o+2 : o+4])
	ev.Value = int32(binary.LittleEndian.Uint32(b[o+4 : o+8]))
	return ev, nil
}

// Append encodes ev in kernel layout and appends it to b.
func Append(b []byte, ev Event) []byte {
	if wordSize == 8 {
		b = binary.LittleEndian.AppendUint64(b, uint64(ev.Sec))
		b = binary.LittleEndian.AppendUint64(b, uint64(ev.Usec))
	} else {
		b = binary.LittleEndian.AppendUint32(b, uint32(ev.Sec))
		b = binary.LittleEndian.AppendUint32(b, uint32(ev.Usec))
	}
	b = binary.LittleEndian.AppendUint16(b, ev.Type)
	b = binary.LittleEndian.AppendUint16(b, ev.Code)
	return binary.LittleEndian.AppendUint32(b, uint32(ev.Value))
}

// Read performs exactly one read of Size bytes from r. A read returning fewer
// bytes yields ErrShortEvent; the kernel never splits an event across reads.
func Read(r io.Reader, buf []byte) (Event, error) {
	if len(buf) < Size {
		buf = make([]byte, Size)
	}
	n, err := r.Read(buf[:Size])
	if n == Size {
		return Decode(buf[:n])
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return Event{}, err
	}
	return Event{}, ErrShortEvent
}
