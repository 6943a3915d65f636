package hrmraw

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"sensorhal-go/types"
)

// Sample is the shared output of a reader.
type Sample struct {
	Values [types.MaxValues]float64
	Count  int
	Time   uint64 // µs
}

// Reader decodes one acquisition cycle from the data node into out. On
// failure out is left untouched.
type Reader interface {
	Read(src io.Reader, out *Sample) error
}

// ReaderFactory makes a fresh reader; readers may keep state across cycles.
type ReaderFactory func() Reader

var (
	rdMu    sync.RWMutex
	readers = map[string]ReaderFactory{}
)

func RegisterReader(name string, f ReaderFactory) {
	rdMu.Lock()
	defer rdMu.Unlock()
	if _, exists := readers[name]; exists {
		panic(fmt.Sprintf("duplicate hrm_raw reader: %s", name))
	}
	readers[name] = f
}

// NewReader returns a fresh reader registered under name.
func NewReader(name string) (Reader, bool) {
	rdMu.RLock()
	defer rdMu.RUnlock()
	f, ok := readers[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

func Readers() []string {
	rdMu.RLock()
	defer rdMu.RUnlock()
	out := make([]string, 0, len(readers))
	for k := range readers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
