package util

import (
	"testing"
	"time"
)

func TestDecodeJSON(t *testing.T) {
	type P struct {
		Ms uint32 `json:"ms"`
	}

	for name, in := range map[string]any{
		"bytes":  []byte(`{"ms":20}`),
		"string": `{"ms":20}`,
		"map":    map[string]any{"ms": 20},
		"typed":  P{Ms: 20},
		"ptr":    &P{Ms: 20},
	} {
		var p P
		if err := DecodeJSON(in, &p); err != nil {
			t.Fatalf("%s: decode failed: %v", name, err)
		}
		if p.Ms != 20 {
			t.Fatalf("%s: unexpected result: %+v", name, p)
		}
	}

	p := struct{ Ms int }{Ms: 7}
	if err := DecodeJSON(nil, &p); err != nil || p.Ms != 7 {
		t.Fatalf("nil payload changed dst: %+v %v", p, err)
	}
}

func TestResetAndDrainTimer(t *testing.T) {
	tm := time.NewTimer(time.Hour)
	if !tm.Stop() {
		DrainTimer(tm)
	}
	ResetTimer(tm, 1*time.Millisecond)
	select {
	case <-tm.C:
	case <-time.After(50 * time.Millisecond):
		t.Fatal("timer did not fire after ResetTimer")
	}
	// negative clamps to zero
	ResetTimer(tm, -1)
	select {
	case <-tm.C:
	case <-time.After(50 * time.Millisecond):
		t.Fatal("timer did not fire after negative ResetTimer")
	}
}
