package light

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"sensorhal-go/drivers/input"
	"sensorhal-go/services/hal/internal/evstream"
)

var errUnknownDecoder = errors.New("unknown light decoder")

// Decoder turns a committed frame into lux.
type Decoder interface {
	Layout() evstream.Layout
	Slots() int
	// Lux reports the lux carried by f, given the committed raw slots.
	// It returns false when f carried no light data.
	Lux(f *evstream.Frame, raw []int32) (float64, bool)
}

var (
	decMu    sync.RWMutex
	decoders = map[string]Decoder{}
)

func init() {
	RegisterDecoder("lux", luxDecoder{})
	RegisterDecoder("adc", adcDecoder{})
}

func RegisterDecoder(name string, d Decoder) {
	decMu.Lock()
	defer decMu.Unlock()
	if _, exists := decoders[name]; exists {
		panic(fmt.Sprintf("duplicate light decoder: %s", name))
	}
	decoders[name] = d
}

func LookupDecoder(name string) (Decoder, bool) {
	decMu.RLock()
	defer decMu.RUnlock()
	d, ok := decoders[name]
	return d, ok
}

// Decoders lists registered decoder names.
func Decoders() []string {
	decMu.RLock()
	defer decMu.RUnlock()
	out := make([]string, 0, len(decoders))
	for k := range decoders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ---- direct lux ----

const (
	slotAbsLux = iota
	slotRelLux
)

// relative lux is sent biased by one so zero is never dropped
const luxBias = 1

type luxDecoder struct{}

func (luxDecoder) Layout() evstream.Layout {
	return evstream.Layout{
		evstream.Abs(input.AbsMisc): slotAbsLux,
		evstream.Rel(input.RelRX):   slotRelLux,
	}
}

func (luxDecoder) Slots() int { return 2 }

func (luxDecoder) Lux(f *evstream.Frame, raw []int32) (float64, bool) {
	switch {
	case f.Has(slotRelLux):
		return float64(raw[slotRelLux] - luxBias), true
	case f.Has(slotAbsLux):
		return float64(raw[slotAbsLux]), true
	}
	return 0, false
}

// ---- ADC + white channel ----

const (
	slotADC = iota
	slotWhite
)

const ratioThreshold = 0.33

type adcDecoder struct{}

func (adcDecoder) Layout() evstream.Layout {
	return evstream.Layout{
		evstream.Rel(input.RelHWheel): slotADC,
		evstream.Rel(input.RelDial):   slotWhite,
	}
}

func (adcDecoder) Slots() int { return 2 }

func (adcDecoder) Lux(f *evstream.Frame, raw []int32) (float64, bool) {
	if !f.Has(slotADC) && !f.Has(slotWhite) {
		return 0, false
	}
	return ADCToLux(raw[slotADC], raw[slotWhite]), true
}

// ADCToLux applies the two-segment power law chosen by the clear/white
// ratio. A zero white channel takes the high-ratio segment.
func ADCToLux(adc, white int32) float64 {
	a := float64(adc)
	if white == 0 || a/float64(white) >= ratioThreshold {
		return 0.6985 * math.Pow(a, 0.9943)
	}
	return 0.25 * math.Pow(a, 1.0552)
}
