package hrmraw

import (
	"io"

	"sensorhal-go/drivers/input"
	"sensorhal-go/services/hal/internal/evstream"
	"sensorhal-go/services/hal/internal/halerr"
)

const (
	standardValueCount = 10
	eventBias          = 1
)

func init() {
	RegisterReader("standard", func() Reader { return standardReader{} })
}

// standardReader maps REL_X..REL_MISC onto slots 0..9. Each value is the
// unsigned event value less one.
type standardReader struct{}

func (standardReader) Read(src io.Reader, out *Sample) error {
	stage := *out
	syn, err := evstream.Scan(src, evstream.RawBudget, func(ev input.Event) error {
		if ev.Type != input.EvRel {
			return halerr.ErrUnknownEvent
		}
		idx := int(ev.Code) - int(input.RelX)
		if idx < 0 || idx >= standardValueCount {
			return halerr.ErrUnknownEvent
		}
		stage.Values[idx] = float64(uint32(ev.Value) - eventBias)
		return nil
	})
	if err != nil {
		return err
	}
	stage.Count = standardValueCount
	stage.Time = syn.Micros()
	*out = stage
	return nil
}
