// Package hal is the Linux sensor HAL. It finds the sensors a board
// carries through sysfs, builds one device per kind and hosts them on the
// bus.
package hal

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"sensorhal-go/bus"
	"sensorhal-go/errcode"
	"sensorhal-go/services/hal/config"
	_ "sensorhal-go/services/hal/devices/all"
	"sensorhal-go/services/hal/internal/consts"
	"sensorhal-go/services/hal/internal/core"
	"sensorhal-go/services/hal/internal/nodes"
	"sensorhal-go/services/hal/internal/service"
)

// Device is the contract the host drives.
type Device = core.Device

// Env is what every device is built from.
type Env = core.Env

type (
	Options = service.Options
	Service = service.Service
)

// Control verbs, the last token of hal/sensor/<name>/control/<verb>.
const (
	CtrlEnable   = consts.CtrlEnable
	CtrlDisable  = consts.CtrlDisable
	CtrlInterval = consts.CtrlInterval
	CtrlRead     = consts.CtrlRead
)

// ValueTopic carries types.SensorSample for name; name may be bus.SingleWild.
func ValueTopic(name string) bus.Topic { return service.SensorTopic(name, consts.TokValue) }

// ControlTopic addresses a control verb of name.
func ControlTopic(name, verb string) bus.Topic {
	return service.SensorTopic(name, consts.TokControl, verb)
}

// StateTopic carries the retained types.HALState.
func StateTopic() bus.Topic { return bus.Topic{consts.TokHAL, consts.TokState} }

// NewEnv returns an Env over the live filesystem under root ("/" on a
// device).
func NewEnv(cfg config.Store, root string, log zerolog.Logger) Env {
	return Env{
		Config: cfg,
		Sysfs:  nodes.New(root),
		Open:   core.OpenFile,
		Log:    log,
	}
}

// Kinds lists registered device kinds in creation order.
func Kinds() []string { return core.Builders() }

// Build constructs one device kind.
func Build(env Env, kind string) (Device, error) {
	b, ok := core.LookupBuilder(kind)
	if !ok {
		return nil, errcode.Wrap(errcode.NoDevice, "hal.Build", errors.New("unknown kind"), kind)
	}
	return b.Build(env)
}

// Create builds every registered kind. Kinds that fail are logged and
// left out.
func Create(env Env) []Device {
	var devs []Device
	for _, kind := range Kinds() {
		kenv := env
		kenv.Log = env.Log.With().Str("kind", kind).Logger()
		d, err := Build(kenv, kind)
		if err != nil {
			kenv.Log.Error().Err(err).Str("code", string(errcode.Of(err))).Msg("device not created")
			continue
		}
		kenv.Log.Info().Int("sensors", len(d.Sensors())).Msg("device created")
		devs = append(devs, d)
	}
	env.Log.Info().Int("devices", len(devs)).Msg("hal created")
	return devs
}

// CloseAll closes every device and joins the errors.
func CloseAll(devs []Device) error {
	var errs []error
	for _, d := range devs {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewService returns the host loop for devs.
func NewService(conn *bus.Connection, devs []Device, opts Options) *Service {
	return service.New(conn, devs, opts)
}

// Run hosts devs on conn until ctx is done.
func Run(ctx context.Context, conn *bus.Connection, devs []Device, opts Options) {
	NewService(conn, devs, opts).Run(ctx)
}
