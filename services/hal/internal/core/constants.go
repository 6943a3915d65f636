package core

import (
	"sensorhal-go/errcode"
	"sensorhal-go/services/hal/config"
	"sensorhal-go/services/hal/internal/halerr"
)

// Constants reads one model's elements from the store, remembering the first
// missing required element. Check Err once after all reads.
type Constants struct {
	store config.Store
	typ   string
	model string
	err   error
}

// Constants starts a read of sensorType/model. An empty model makes every
// required read fail and every optional read return its default.
func (env Env) Constants(sensorType, model string) *Constants {
	return &Constants{store: env.Config, typ: sensorType, model: model}
}

func (c *Constants) missing(el string) {
	if c.err == nil {
		c.err = errcode.Wrap(errcode.NoDevice, "core.Constants", halerr.ErrMissingValue, c.typ+"/"+c.model+"/"+el)
	}
}

func (c *Constants) String(el string) string {
	v, ok := c.lookupString(el)
	if !ok {
		c.missing(el)
	}
	return v
}

func (c *Constants) Float(el string) float64 {
	v, ok := c.lookupFloat(el)
	if !ok {
		c.missing(el)
	}
	return v
}

func (c *Constants) Int(el string) int64 {
	if c.model == "" {
		c.missing(el)
		return 0
	}
	v, ok := c.store.Int(c.typ, c.model, el)
	if !ok {
		c.missing(el)
	}
	return v
}

// OptString returns def when the element is absent.
func (c *Constants) OptString(el, def string) string {
	if v, ok := c.lookupString(el); ok {
		return v
	}
	return def
}

// OptFloat returns def when the element is absent.
func (c *Constants) OptFloat(el string, def float64) float64 {
	if v, ok := c.lookupFloat(el); ok {
		return v
	}
	return def
}

func (c *Constants) lookupString(el string) (string, bool) {
	if c.model == "" {
		return "", false
	}
	return c.store.String(c.typ, c.model, el)
}

func (c *Constants) lookupFloat(el string) (float64, bool) {
	if c.model == "" {
		return 0, false
	}
	return c.store.Float(c.typ, c.model, el)
}

// Err is the first missing required element, as errcode.NoDevice.
func (c *Constants) Err() error { return c.err }
