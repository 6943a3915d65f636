// Package nodes locates the kernel nodes behind a sensor and writes its
// sysfs controls.
//
// A sensor is either a plain input device (/sys/class/input/inputN) or an
// IIO device (/sys/bus/iio/devices/iio:deviceN), optionally driven by the
// sensor hub whose controls live under /sys/class/sensors/ssp_sensor. All
// paths are joined under Resolver.Root so a fake tree can stand in for /.
package nodes

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Method is the acquisition transport.
type Method int

const (
	MethodIIO        Method = 0
	MethodInputEvent Method = 1
)

func (m Method) String() string {
	switch m {
	case MethodIIO:
		return "iio"
	case MethodInputEvent:
		return "input_event"
	}
	return "unknown"
}

// Query describes what to resolve.
type Query struct {
	SensorType      string
	Key             string // value of the device's sysfs "name" node
	IIOEnableNode   string // enable node under the IIO device dir (direct mode)
	HubIntervalNode string // interval node under ssp_sensor (hub mode)
	Hub             bool
}

// Info is a resolved acquisition channel. Buffer and trigger nodes are IIO
// only and empty otherwise.
type Info struct {
	Method           Method
	DataNode         string
	EnableNode       string
	IntervalNode     string
	BufferEnableNode string
	BufferLengthNode string
	TriggerNode      string
}

// ErrNotFound is returned when no device matches.
var ErrNotFound = errors.New("nodes: not found")

const (
	sensorsDir = "sys/class/sensors"
	hubDir     = "sys/class/sensors/ssp_sensor"
	inputDir   = "sys/class/input"
	iioDir     = "sys/bus/iio/devices"

	inputPrefix = "input"
	iioPrefix   = "iio:device"
	eventPrefix = "event"
)

// Resolver resolves node paths below Root.
type Resolver struct {
	Root string
}

// New returns a resolver rooted at root; empty means "/".
func New(root string) *Resolver {
	if root == "" {
		root = "/"
	}
	return &Resolver{Root: root}
}

func (r *Resolver) path(elem ...string) string {
	return filepath.Join(append([]string{r.Root}, elem...)...)
}

// IsHubControlled reports whether the hub exposes the named interval node.
func (r *Resolver) IsHubControlled(intervalNode string) bool {
	return Exists(r.path(hubDir, intervalNode))
}

// Supporter answers whether a chip name is a known model for a sensor type.
type Supporter interface {
	Supported(sensorType, modelID string) bool
}

// FindModelID returns the first chip name under sys/class/sensors/*/name
// that s knows for sensorType.
func (r *Resolver) FindModelID(s Supporter, sensorType string) (string, error) {
	ents, err := os.ReadDir(r.path(sensorsDir))
	if err != nil {
		return "", errors.Wrap(err, "scan sensors class")
	}
	for _, e := range ents {
		name, ok := readName(r.path(sensorsDir, e.Name(), "name"))
		if !ok {
			continue
		}
		if s.Supported(sensorType, name) {
			return name, nil
		}
	}
	return "", errors.Wrapf(ErrNotFound, "model for %s", sensorType)
}

// Resolve finds the device named q.Key, trying input devices before IIO.
func (r *Resolver) Resolve(q Query) (Info, error) {
	if num, ok := r.scan(inputDir, inputPrefix, q.Key); ok {
		return r.inputInfo(q, num)
	}
	if num, ok := r.scan(iioDir, iioPrefix, q.Key); ok {
		return r.iioInfo(q, num), nil
	}
	return Info{}, errors.Wrapf(ErrNotFound, "device %q", q.Key)
}

func (r *Resolver) scan(dir, prefix, key string) (string, bool) {
	ents, err := os.ReadDir(r.path(dir))
	if err != nil {
		return "", false
	}
	for _, e := range ents {
		n := e.Name()
		if !strings.HasPrefix(n, prefix) {
			continue
		}
		if name, ok := readName(r.path(dir, n, "name")); ok && name == key {
			return strings.TrimPrefix(n, prefix), true
		}
	}
	return "", false
}

func (r *Resolver) inputInfo(q Query, num string) (Info, error) {
	base := r.path(inputDir, inputPrefix+num)
	ev, ok := eventNumber(base)
	if !ok {
		return Info{}, errors.Wrapf(ErrNotFound, "event node for %s", base)
	}
	info := Info{
		Method:   MethodInputEvent,
		DataNode: r.path("dev", "input", eventPrefix+ev),
	}
	if q.Hub {
		info.EnableNode = r.path(hubDir, "enable")
		info.IntervalNode = r.path(hubDir, q.HubIntervalNode)
	} else {
		info.EnableNode = filepath.Join(base, "enable")
		info.IntervalNode = filepath.Join(base, "poll_delay")
	}
	return info, nil
}

func (r *Resolver) iioInfo(q Query, num string) Info {
	base := r.path(iioDir, iioPrefix+num)
	info := Info{
		Method:           MethodIIO,
		DataNode:         r.path("dev", iioPrefix+num),
		BufferEnableNode: filepath.Join(base, "buffer", "enable"),
		BufferLengthNode: filepath.Join(base, "buffer", "length"),
	}
	if q.Hub {
		info.EnableNode = r.path(hubDir, "enable")
		info.IntervalNode = r.path(hubDir, q.HubIntervalNode)
	} else {
		info.EnableNode = filepath.Join(base, q.IIOEnableNode)
		info.IntervalNode = filepath.Join(base, "sampling_frequency")
		info.TriggerNode = filepath.Join(base, "trigger", "current_trigger")
	}
	return info
}

func eventNumber(inputBase string) (string, bool) {
	ents, err := os.ReadDir(inputBase)
	if err != nil {
		return "", false
	}
	for _, e := range ents {
		if n := e.Name(); strings.HasPrefix(n, eventPrefix) {
			return strings.TrimPrefix(n, eventPrefix), true
		}
	}
	return "", false
}

// readName returns the first whitespace-separated token of a name node.
func readName(p string) (string, bool) {
	b, err := os.ReadFile(p)
	if err != nil {
		return "", false
	}
	f := strings.Fields(string(b))
	if len(f) == 0 {
		return "", false
	}
	return f[0], true
}

// Exists reports whether p exists.
func Exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// ReadInt reads a decimal integer node.
func ReadInt(p string) (int64, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return 0, errors.Wrap(err, "read node")
	}
	f := strings.Fields(string(b))
	if len(f) == 0 {
		return 0, errors.Errorf("read node %s: empty", p)
	}
	v, err := strconv.ParseInt(f[0], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "read node %s", p)
	}
	return v, nil
}

// SetValue writes v in decimal to an existing node.
func SetValue(p string, v int64) error {
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return errors.Wrap(err, "open node")
	}
	_, werr := f.WriteString(strconv.FormatInt(v, 10))
	cerr := f.Close()
	if werr != nil {
		return errors.Wrapf(werr, "write node %s", p)
	}
	return errors.Wrapf(cerr, "close node %s", p)
}

// SetEnable flips one bit of an enable mask with read-modify-write. Direct
// nodes always use bit 0; hub nodes use the sensor's bit.
func SetEnable(p string, hub, on bool, bit uint) error {
	prev, err := ReadInt(p)
	if err != nil {
		return err
	}
	if !hub {
		bit = 0
	}
	v := prev &^ (1 << bit)
	if on {
		v = prev | 1<<bit
	}
	return SetValue(p, v)
}

// SetIntervalMs writes an interval in milliseconds as nanoseconds.
func SetIntervalMs(p string, ms uint32) error {
	return SetValue(p, int64(ms)*1_000_000)
}
