package hrmraw

import (
	"io"

	"sensorhal-go/drivers/input"
	"sensorhal-go/services/hal/internal/evstream"
	"sensorhal-go/services/hal/internal/halerr"
)

// ADI sub-modes, reported on REL_Z.
const (
	SubModeSlotARed  = 0
	SubModeSlotAB    = 1
	SubModeSlotBIR   = 2
	adiValueCount    = 11
	adiSubModeSlot   = 10
	adiMaxPPGChannel = 8
)

func init() {
	RegisterReader("adi", func() Reader { return &adiReader{} })
}

// adiState is carried from one cycle to the next.
type adiState struct {
	redSum  int32
	irSum   int32
	subMode int32
	ppg     [adiMaxPPGChannel]int32
}

// adiReader decodes the ADPD frame: red and IR sums on REL_X/REL_Y, the
// sub-mode on REL_Z and up to eight PPG channels as MSC_RAW, all biased by
// one. Slot layout depends on the sub-mode.
type adiReader struct {
	st adiState
}

func (r *adiReader) Read(src io.Reader, out *Sample) error {
	st := r.st
	n := 0
	syn, err := evstream.Scan(src, evstream.RawBudget, func(ev input.Event) error {
		v := ev.Value - eventBias
		switch {
		case ev.Type == input.EvRel && ev.Code == input.RelX:
			st.redSum = v
		case ev.Type == input.EvRel && ev.Code == input.RelY:
			st.irSum = v
		case ev.Type == input.EvRel && ev.Code == input.RelZ:
			st.subMode = v
		case ev.Type == input.EvMsc && ev.Code == input.MscRaw:
			if n >= adiMaxPPGChannel {
				return halerr.ErrRejected
			}
			st.ppg[n] = v
			n++
		default:
			return halerr.ErrUnknownEvent
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.st = st

	var s Sample
	switch st.subMode {
	case SubModeSlotARed:
		copyPPG(s.Values[6:10], st.ppg[0:4])
	case SubModeSlotAB:
		s.Values[0] = float64(st.irSum)
		s.Values[1] = float64(st.redSum)
		copyPPG(s.Values[2:6], st.ppg[4:8])
		copyPPG(s.Values[6:10], st.ppg[0:4])
	case SubModeSlotBIR:
		copyPPG(s.Values[2:6], st.ppg[0:4])
	}
	s.Values[adiSubModeSlot] = float64(st.subMode)
	s.Count = adiValueCount
	s.Time = syn.Micros()
	*out = s
	return nil
}

func copyPPG(dst []float64, src []int32) {
	for i := range dst {
		dst[i] = float64(src[i])
	}
}
