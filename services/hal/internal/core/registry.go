package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	regMu    sync.RWMutex
	builders = map[string]Builder{}
)

// createOrder is the order hal.Create instantiates kinds in.
var createOrder = []string{
	"accel", "gyro", "gyro_uncal", "geomag", "pressure",
	"light", "proxi", "hrm_raw", "hrm",
}

func RegisterBuilder(kind string, b Builder) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := builders[kind]; exists {
		panic(fmt.Sprintf("duplicate device builder: %s", kind))
	}
	builders[kind] = b
}

func LookupBuilder(kind string) (Builder, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	b, ok := builders[kind]
	return b, ok
}

// Builders lists registered kinds: known kinds in creation order, then any
// others sorted by name.
func Builders() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(builders))
	seen := make(map[string]bool, len(createOrder))
	for _, k := range createOrder {
		if _, ok := builders[k]; ok {
			out = append(out, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range builders {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
