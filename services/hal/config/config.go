// Package config holds the per-model sensor constants read from the
// platform sensor description (/usr/etc/sensor.xml or a YAML equivalent).
//
// The tree is SENSOR type -> model id -> element -> attribute -> value.
// Lookups try the attribute named after the device id first and fall back
// to "value", so one file can carry per-product overrides.
package config

import (
	"strconv"
	"strings"
)

// Default locations on target.
const (
	DefaultPath     = "/usr/etc/sensor.xml"
	DefaultInfoPath = "/etc/info.ini"
)

// Element names shared by the device packages.
const (
	ElementName        = "NAME"
	ElementVendor      = "VENDOR"
	ElementRawDataUnit = "RAW_DATA_UNIT"
	ElementResolution  = "RESOLUTION"
	ElementMinRange    = "MIN_RANGE"
	ElementMaxRange    = "MAX_RANGE"
	ElementReader      = "READER"

	AttrValue = "value"
)

// Store is the read-only view devices use at construction.
type Store interface {
	String(sensorType, modelID, element string) (string, bool)
	Float(sensorType, modelID, element string) (float64, bool)
	Int(sensorType, modelID, element string) (int64, bool)
	Supported(sensorType, modelID string) bool
}

type (
	attrs    map[string]string
	elements map[string]attrs
	models   map[string]elements
)

// Config is the in-memory tree. It is not safe for concurrent mutation;
// after loading it is only read.
type Config struct {
	DeviceID string
	tree     map[string]models
}

var _ Store = (*Config)(nil)

// New returns an empty store for the given device id.
func New(deviceID string) *Config {
	return &Config{DeviceID: deviceID, tree: map[string]models{}}
}

// Set records one attribute, creating intermediate levels.
func (c *Config) Set(sensorType, modelID, element, attr, value string) {
	c.touch(sensorType, modelID, element)[attr] = value
}

func (c *Config) touch(sensorType, modelID, element string) attrs {
	m, ok := c.tree[sensorType]
	if !ok {
		m = models{}
		c.tree[sensorType] = m
	}
	e, ok := m[modelID]
	if !ok {
		e = elements{}
		m[modelID] = e
	}
	if element == "" {
		return nil
	}
	a, ok := e[element]
	if !ok {
		a = attrs{}
		e[element] = a
	}
	return a
}

// Lookup returns one attribute without the device-id fallback.
func (c *Config) Lookup(sensorType, modelID, element, attr string) (string, bool) {
	e, ok := c.tree[sensorType][modelID]
	if !ok {
		return "", false
	}
	a, ok := e[element]
	if !ok {
		return "", false
	}
	v, ok := a[attr]
	return v, ok
}

// Supported reports whether the model is described for the sensor type.
func (c *Config) Supported(sensorType, modelID string) bool {
	_, ok := c.tree[sensorType][modelID]
	return ok
}

func (c *Config) String(sensorType, modelID, element string) (string, bool) {
	if c.DeviceID != "" {
		if v, ok := c.Lookup(sensorType, modelID, element, c.DeviceID); ok {
			return v, true
		}
	}
	return c.Lookup(sensorType, modelID, element, AttrValue)
}

// Float parses the looked-up value. A present but unparsable value reads as 0.
func (c *Config) Float(sensorType, modelID, element string) (float64, bool) {
	s, ok := c.String(sensorType, modelID, element)
	if !ok {
		return 0, false
	}
	return parseFloat(s), true
}

// Int parses the looked-up value, truncating a decimal. A present but
// unparsable value reads as 0.
func (c *Config) Int(sensorType, modelID, element string) (int64, bool) {
	s, ok := c.String(sensorType, modelID, element)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	return int64(parseFloat(s)), true
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
