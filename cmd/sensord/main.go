// sensord hosts the Linux sensor HAL: it discovers the board's sensors
// through sysfs, reads their event and IIO nodes and reports samples.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sensorhal-go/bus"
	"sensorhal-go/services/hal"
	"sensorhal-go/services/hal/config"
	"sensorhal-go/services/heartbeat"
	"sensorhal-go/types"
)

var version = "dev"

type flags struct {
	config    string
	info      string
	root      string
	logLevel  string
	interval  uint32
	timeout   time.Duration
	heartbeat time.Duration
}

func main() {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "sensord",
		Short: "Linux sensor HAL daemon",
		Long: `sensord discovers accelerometer, gyroscope, magnetometer, barometer,
light, proximity and heart-rate sensors through sysfs and publishes their
samples. Without a subcommand it runs until interrupted and logs every sample
at debug level.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd.Context(), args, nil)
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.config, "config", config.DefaultPath, "sensor configuration (XML, or YAML by extension)")
	pf.StringVar(&f.info, "info", config.DefaultInfoPath, "device info file holding Model=")
	pf.StringVar(&f.root, "root", "/", "filesystem root for sysfs and device nodes")
	pf.StringVar(&f.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.Uint32Var(&f.interval, "interval", 0, "sampling interval in ms (0 keeps the default)")
	pf.DurationVar(&f.heartbeat, "heartbeat", heartbeat.DefaultInterval, "heartbeat period on hal/heartbeat (0 disables)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the sensors found on this board",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return f.list(cmd)
			},
		},
		f.readCommand(),
		&cobra.Command{
			Use:   "stream [sensor...]",
			Short: "Print samples as JSON lines until interrupted",
			RunE: func(cmd *cobra.Command, args []string) error {
				return f.run(cmd.Context(), args, json.NewEncoder(cmd.OutOrStdout()))
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := fang.Execute(ctx, cmd); err != nil {
		os.Exit(1)
	}
}

func (f *flags) readCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "read <sensor>",
		Short: "Print one sample of a sensor as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.read(cmd, args[0])
		},
	}
	c.Flags().DurationVar(&f.timeout, "timeout", 5*time.Second, "how long to wait for a sample")
	return c
}

func (f *flags) logger() (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(f.logLevel)
	if err != nil {
		return zerolog.Nop(), errors.Wrap(err, "log level")
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger(), nil
}

func (f *flags) devices() ([]hal.Device, zerolog.Logger, error) {
	log, err := f.logger()
	if err != nil {
		return nil, log, err
	}
	cfg, err := config.Load(f.config, f.info)
	if err != nil {
		return nil, log, err
	}
	log.Info().Str("config", f.config).Str("device_id", cfg.DeviceID).Msg("configuration loaded")
	devs := hal.Create(hal.NewEnv(cfg, f.root, log))
	if len(devs) == 0 {
		return nil, log, errors.New("no sensors found")
	}
	return devs, log, nil
}

func (f *flags) list(cmd *cobra.Command) error {
	devs, _, err := f.devices()
	if err != nil {
		return err
	}
	defer hal.CloseAll(devs)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SENSOR\tID\tNAME\tMODEL\tVENDOR\tRANGE")
	for _, d := range devs {
		for _, s := range d.Sensors() {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%g..%g\n",
				s.Type, s.ID, s.Name, s.ModelName, s.Vendor, s.MinRange, s.MaxRange)
		}
	}
	return w.Flush()
}

// host starts the service, and the heartbeat when hb > 0, on a fresh bus.
// done closes once both have stopped.
func host(ctx context.Context, devs []hal.Device, hb time.Duration, log zerolog.Logger) (*bus.Connection, *hal.Service, <-chan struct{}) {
	b := bus.NewBus(64)
	svc := hal.NewService(b.NewConnection("hal"), devs, hal.Options{Log: log})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.Run(ctx)
	}()
	if hb > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			heartbeat.New(hb, log).Run(ctx, b.NewConnection("heartbeat"))
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return b.NewConnection("sensord"), svc, done
}

// enable turns on names, applying the interval flag.
func (f *flags) enable(ctx context.Context, conn *bus.Connection, names []string) error {
	for _, name := range names {
		if err := control(ctx, conn, name, hal.CtrlEnable, nil); err != nil {
			return err
		}
		if f.interval > 0 {
			if err := control(ctx, conn, name, hal.CtrlInterval, types.Interval{Ms: f.interval}); err != nil {
				return err
			}
		}
	}
	return nil
}

func control(ctx context.Context, conn *bus.Connection, name, verb string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg := conn.NewMessage(hal.ControlTopic(name, verb), payload, false)
	reply, err := conn.RequestWait(ctx, msg)
	if err != nil {
		return errors.Wrapf(err, "%s %s", verb, name)
	}
	if r, ok := reply.Payload.(types.Reply); ok && !r.OK {
		return errors.Errorf("%s %s: %s", verb, name, r.Error)
	}
	return nil
}

func (f *flags) read(cmd *cobra.Command, name string) error {
	devs, log, err := f.devices()
	if err != nil {
		return err
	}
	defer hal.CloseAll(devs)

	ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
	defer cancel()

	conn, _, done := host(ctx, devs, 0, log)
	defer func() {
		cancel()
		<-done
	}()
	sub := conn.Subscribe(hal.ValueTopic(name))
	defer conn.Unsubscribe(sub)

	if err := f.enable(ctx, conn, []string{name}); err != nil {
		return err
	}
	select {
	case m := <-sub.Channel():
		return json.NewEncoder(cmd.OutOrStdout()).Encode(m.Payload)
	case <-ctx.Done():
		return errors.Errorf("no sample from %s within %s", name, f.timeout)
	}
}

// run hosts the sensors until ctx ends. Samples go to enc when set and to
// the debug log otherwise.
func (f *flags) run(ctx context.Context, names []string, enc *json.Encoder) error {
	devs, log, err := f.devices()
	if err != nil {
		return err
	}
	defer hal.CloseAll(devs)

	ctx, cancel := context.WithCancel(ctx)
	conn, svc, done := host(ctx, devs, f.heartbeat, log)
	defer func() {
		cancel()
		<-done
	}()
	mon := conn.Subscribe(hal.ValueTopic(bus.SingleWild))
	defer conn.Unsubscribe(mon)

	if len(names) == 0 {
		names = svc.Sensors()
	}
	if err := f.enable(ctx, conn, names); err != nil {
		return err
	}

	log.Info().Msg("running")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping")
			return nil
		case m := <-mon.Channel():
			smp, ok := m.Payload.(types.SensorSample)
			if !ok {
				continue
			}
			if enc != nil {
				if err := enc.Encode(smp); err != nil {
					return err
				}
				continue
			}
			log.Debug().
				Str("sensor", smp.Sensor).
				Uint64("ts", smp.Data.Timestamp).
				Floats64("values", smp.Data.Values).
				Msg("sample")
		}
	}
}
