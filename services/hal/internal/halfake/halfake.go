// Package halfake provides test doubles for device packages: an in-memory
// data node and a fake sysfs tree.
package halfake

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"sensorhal-go/drivers/iio"
	"sensorhal-go/drivers/input"
	"sensorhal-go/services/hal/config"
	"sensorhal-go/services/hal/internal/core"
	"sensorhal-go/services/hal/internal/nodes"
)

// ---- Data node ----

// Node replays queued chunks, one per Read, the way a character device
// returns one record per read.
type Node struct {
	Path     string
	Writable bool

	ClockErr error
	WaitErr  error

	Closed    int
	Waits     int
	ClockSets int

	chunks [][]byte
}

var _ core.Node = (*Node)(nil)

func (n *Node) Read(p []byte) (int, error) {
	if len(n.chunks) == 0 {
		return 0, io.EOF
	}
	c := n.chunks[0]
	n.chunks = n.chunks[1:]
	return copy(p, c), nil
}

func (n *Node) Close() error { n.Closed++; return nil }
func (n *Node) Fd() int      { return 42 }

func (n *Node) UseMonotonicClock() error {
	n.ClockSets++
	return n.ClockErr
}

func (n *Node) WaitReadable() error {
	n.Waits++
	return n.WaitErr
}

// Pending is the number of unread chunks.
func (n *Node) Pending() int { return len(n.chunks) }

// Push queues raw chunks.
func (n *Node) Push(chunks ...[]byte) {
	n.chunks = append(n.chunks, chunks...)
}

// Events queues one chunk per event.
func (n *Node) Events(evs ...input.Event) {
	for _, ev := range evs {
		n.chunks = append(n.chunks, input.Append(nil, ev))
	}
}

// Vec3 queues one IIO record.
func (n *Node) Vec3(v iio.Vec3) { n.Push(iio.AppendVec3(nil, v)) }

// Vec4 queues one IIO record.
func (n *Node) Vec4(v iio.Vec4) { n.Push(iio.AppendVec4(nil, v)) }

// Event constructors.
func Rel(code uint16, v int32) input.Event {
	return input.Event{Type: input.EvRel, Code: code, Value: v}
}

func Abs(code uint16, v int32) input.Event {
	return input.Event{Type: input.EvAbs, Code: code, Value: v}
}

func Msc(code uint16, v int32) input.Event {
	return input.Event{Type: input.EvMsc, Code: code, Value: v}
}

// Syn returns an EV_SYN stamped us microseconds.
func Syn(us uint64) input.Event {
	return input.Event{
		Sec:  int64(us / 1_000_000),
		Usec: int64(us % 1_000_000),
		Type: input.EvSyn,
		Code: input.SynReport,
	}
}

// ---- Sysfs tree ----

// Tree is a fake root filesystem under t.TempDir().
type Tree struct {
	Root string
	t    testing.TB
}

func NewTree(t testing.TB) *Tree {
	t.Helper()
	return &Tree{Root: t.TempDir(), t: t}
}

// Path joins rel under the root.
func (tr *Tree) Path(rel ...string) string {
	return filepath.Join(append([]string{tr.Root}, rel...)...)
}

// Write creates a file with content, making parent directories.
func (tr *Tree) Write(rel, content string) {
	tr.t.Helper()
	p := tr.Path(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		tr.t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		tr.t.Fatal(err)
	}
}

// Mkdir creates a directory.
func (tr *Tree) Mkdir(rel string) {
	tr.t.Helper()
	if err := os.MkdirAll(tr.Path(rel), 0o755); err != nil {
		tr.t.Fatal(err)
	}
}

// Read returns a file's trimmed content.
func (tr *Tree) Read(rel string) string {
	tr.t.Helper()
	b, err := os.ReadFile(tr.Path(rel))
	if err != nil {
		tr.t.Fatal(err)
	}
	return strings.TrimSpace(string(b))
}

// ReadInt parses a file's content.
func (tr *Tree) ReadInt(rel string) int64 {
	tr.t.Helper()
	v, err := strconv.ParseInt(tr.Read(rel), 10, 64)
	if err != nil {
		tr.t.Fatal(err)
	}
	return v
}

// Chip publishes a chip name under sys/class/sensors/<dir>/name.
func (tr *Tree) Chip(dir, name string) {
	tr.Write(filepath.Join("sys/class/sensors", dir, "name"), name+"\n")
}

// Hub creates the sensor hub control dir with an enable mask and the given
// interval nodes.
func (tr *Tree) Hub(intervalNodes ...string) {
	tr.Write("sys/class/sensors/ssp_sensor/enable", "0")
	for _, n := range intervalNodes {
		tr.Write(filepath.Join("sys/class/sensors/ssp_sensor", n), "0")
	}
}

// InputDevice creates sys/class/input/input<n> named name with an event<ev>
// child, direct enable and poll_delay nodes, and dev/input/event<ev>.
func (tr *Tree) InputDevice(n int, name string, ev int) {
	base := filepath.Join("sys/class/input", "input"+strconv.Itoa(n))
	tr.Write(filepath.Join(base, "name"), name+"\n")
	tr.Mkdir(filepath.Join(base, "event"+strconv.Itoa(ev)))
	tr.Write(filepath.Join(base, "enable"), "0")
	tr.Write(filepath.Join(base, "poll_delay"), "0")
	tr.Write(filepath.Join("dev/input", "event"+strconv.Itoa(ev)), "")
}

// IIODevice creates sys/bus/iio/devices/iio:device<n> named name with its
// enable, sampling_frequency, buffer and trigger nodes.
func (tr *Tree) IIODevice(n int, name, enableNode string) {
	base := filepath.Join("sys/bus/iio/devices", "iio:device"+strconv.Itoa(n))
	tr.Write(filepath.Join(base, "name"), name+"\n")
	if enableNode != "" {
		tr.Write(filepath.Join(base, enableNode), "0")
	}
	tr.Write(filepath.Join(base, "sampling_frequency"), "0")
	tr.Write(filepath.Join(base, "buffer/enable"), "0")
	tr.Write(filepath.Join(base, "buffer/length"), "0")
	tr.Write(filepath.Join(base, "trigger/current_trigger"), "")
	tr.Write(filepath.Join("dev", "iio:device"+strconv.Itoa(n)), "")
}

// ---- Environment ----

// Env wires a tree, a config store and one data node into a core.Env. Every
// Open returns Node.
type Env struct {
	core.Env
	Tree *Tree
	Node *Node
}

// NewEnv builds an Env with an empty config store for deviceID.
func NewEnv(t testing.TB, deviceID string) *Env {
	t.Helper()
	tr := NewTree(t)
	e := &Env{Tree: tr, Node: &Node{}}
	e.Env = core.Env{
		Config: config.New(deviceID),
		Sysfs:  nodes.New(tr.Root),
		Log:    zerolog.Nop(),
	}
	e.Env.Open = func(path string, writable bool) (core.Node, error) {
		e.Node.Path = path
		e.Node.Writable = writable
		return e.Node, nil
	}
	return e
}

// Store is the writable config behind the env.
func (e *Env) Store() *config.Config { return e.Config.(*config.Config) }

// Model records model constants for sensorType as "value" attributes.
func (e *Env) Model(sensorType, model string, kv map[string]string) {
	s := e.Store()
	s.Set(sensorType, model, config.ElementName, config.AttrValue, model)
	for k, v := range kv {
		s.Set(sensorType, model, k, config.AttrValue, v)
	}
}

// FailOpen makes every Open return err.
func (e *Env) FailOpen(err error) {
	if err == nil {
		err = errors.New("open failed")
	}
	e.Env.Open = func(string, bool) (core.Node, error) { return nil, err }
}
