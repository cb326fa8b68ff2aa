// Package teleop runs the operator-controlled period of a robot: device listeners turn button
// and switch activity into drive mode changes, and a fixed-period control loop turns stick
// deflection into drivetrain power under a safety interlock.
package teleop

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/teleop/components/camera"
	"go.viam.com/teleop/components/drive"
	"go.viam.com/teleop/components/heading"
	"go.viam.com/teleop/components/input"
	"go.viam.com/teleop/components/valve"
	"go.viam.com/teleop/drivetrain"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/shaping"
	"go.viam.com/teleop/telemetry"
)

// DefaultPollPeriod is how often a listener polls its device unless configured otherwise.
const DefaultPollPeriod = 20 * time.Millisecond

// Config configures a teleop run.
type Config struct {
	Period time.Duration
	Curve  shaping.Curve
	// PTOAxis is the utility stick axis that drives both sides while the PTO is enabled.
	PTOAxis     input.Axis
	PollPeriods map[input.DeviceID]time.Duration
	// Bindings override the default bindings for the same device, control and event.
	Bindings []Binding
}

// Hardware is everything a teleop run owns. Run releases all of it before returning. Heading and
// Camera are optional.
type Hardware struct {
	Devices *input.DeviceSet
	Shifter valve.DoubleActing
	PTO     valve.DoubleActing
	Drive   drive.Tank
	Heading heading.Reference
	Camera  camera.Selector
}

func (hw Hardware) validate() error {
	var err error
	if hw.Devices == nil {
		err = multierr.Append(err, errors.New("no input devices"))
	}
	if hw.Shifter == nil {
		err = multierr.Append(err, errors.New("no transmission valve"))
	}
	if hw.PTO == nil {
		err = multierr.Append(err, errors.New("no pto valve"))
	}
	if hw.Drive == nil {
		err = multierr.Append(err, errors.New("no drive"))
	}
	return err
}

// Option configures a Teleop.
type Option func(*Teleop)

// WithClock sets the clock the loop and listeners schedule on.
func WithClock(clk clock.Clock) Option {
	return func(t *Teleop) {
		t.clk = clk
	}
}

// WithPublisher sets where dashboard values go.
func WithPublisher(dash telemetry.Publisher) Option {
	return func(t *Teleop) {
		t.dash = dash
	}
}

// HeartbeatSink receives one heartbeat source per started device and a beat from a device each
// time its listener reads all of its controls. *session.Session is a HeartbeatSink.
type HeartbeatSink interface {
	Expect(sources ...string)
	HeartbeatFrom(source string)
}

// WithHeartbeat sends device heartbeats to `sink`. Wired to a session, the session ends as soon as
// any one device stops responding.
func WithHeartbeat(sink HeartbeatSink) Option {
	return func(t *Teleop) {
		t.heartbeat = sink
	}
}

// Teleop owns one operator-controlled run.
type Teleop struct {
	cfg       Config
	hw        Hardware
	clk       clock.Clock
	dash      telemetry.Publisher
	heartbeat HeartbeatSink
	logger    logging.Logger

	controller *drivetrain.Controller
	router     *Router
	loop       *ControlLoop
	listeners  []*Listener
	auto       *atomic.Bool
	ran        atomic.Bool
}

// New wires a teleop run. Nothing is commanded until Run.
func New(cfg Config, hw Hardware, activity Activity, logger logging.Logger, opts ...Option) (*Teleop, error) {
	if err := hw.validate(); err != nil {
		return nil, err
	}
	shape, err := shaping.FromCurve(cfg.Curve)
	if err != nil {
		return nil, err
	}
	t := &Teleop{
		cfg:    cfg,
		hw:     hw,
		logger: logger,
		auto:   atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.clk == nil {
		t.clk = clock.New()
	}
	if t.dash == nil {
		t.dash = telemetry.Discard
	}

	t.controller = drivetrain.NewController(hw.Shifter, hw.PTO, hw.Drive, t.dash, logger.Sublogger("drivetrain"))
	t.router, err = NewRouter(
		MergeBindings(DefaultBindings(), cfg.Bindings),
		Targets{Mode: t.controller, Camera: hw.Camera, Heading: hw.Heading},
		logger.Sublogger("router"),
	)
	if err != nil {
		return nil, err
	}
	t.loop = NewControlLoop(
		LoopConfig{Period: cfg.Period, Shape: shape, PTOAxis: cfg.PTOAxis},
		hw.Devices, t.controller, hw.Drive, activity, t.auto, t.dash, t.clk, logger.Sublogger("loop"),
	)
	return t, nil
}

// CurrentMode returns the drive mode.
func (t *Teleop) CurrentMode() drivetrain.Mode {
	return t.controller.CurrentMode()
}

// State returns the control loop state.
func (t *Teleop) State() State {
	return t.loop.State()
}

// SetAutoControl hands the drivetrain to an automatic routine, or takes it back. While set, the
// control loop commands no power.
func (t *Teleop) SetAutoControl(enabled bool) {
	if t.auto.Swap(enabled) != enabled {
		t.logger.Infow("automatic control", "enabled", enabled)
	}
}

// AutoControl reports whether automatic control is set.
func (t *Teleop) AutoControl() bool {
	return t.auto.Load()
}

// Run arms, runs until the session ends or ctx is done, and then releases all hardware. A Teleop
// runs once.
func (t *Teleop) Run(ctx context.Context) (err error) {
	if !t.ran.CompareAndSwap(false, true) {
		return errors.New("teleop has already run")
	}
	defer func() {
		if r := recover(); r != nil {
			t.logger.Errorw("teleop panicked", "panic", r)
			err = multierr.Append(err, errors.Errorf("teleop panicked: %v", r))
		}
		err = multierr.Append(err, t.release())
	}()

	if err := t.loop.Arm(); err != nil {
		return err
	}
	t.logger.Info("arming")
	if err := t.controller.ApplyDefaults(ctx); err != nil {
		t.logger.Warnw("cannot apply default drive mode", "error", err)
	}
	if err := t.startListeners(ctx); err != nil {
		t.loop.Disarm()
		return errors.Wrap(err, "cannot start listeners")
	}
	t.applyRockerBrakeMode(ctx)
	if t.hw.Heading != nil {
		if err := t.hw.Heading.ResetHeading(ctx); err != nil {
			t.logger.Warnw("cannot reset heading", "error", err)
		}
	}

	t.logger.Infow("running", "mode", t.controller.CurrentMode().String())
	if err := t.loop.Run(ctx); err != nil {
		return err
	}
	t.logger.Info("stopped")
	return nil
}

// startListeners reads every device's starting state concurrently and only then starts polling,
// so a device that cannot be read leaves nothing running.
func (t *Teleop) startListeners(ctx context.Context) error {
	var (
		listeners []*Listener
		sources   []string
	)
	for _, id := range t.hw.Devices.IDs() {
		dev, err := t.hw.Devices.Device(id)
		if err != nil {
			return err
		}
		controls, err := dev.Controls(ctx)
		if err != nil {
			return errors.Wrapf(err, "listing controls of %s", id)
		}
		period := t.cfg.PollPeriods[id]
		if period == 0 {
			period = DefaultPollPeriod
		}
		l := NewListener(
			id, t.hw.Devices, controls, period, t.clk, t.router.Dispatch,
			t.logger.Sublogger("listener").Sublogger(string(id)),
		)
		// A listener without controls reads nothing, so its polls say nothing about the device.
		if t.heartbeat != nil && len(controls) > 0 {
			source := string(id)
			l.OnHealthyPoll(func() { t.heartbeat.HeartbeatFrom(source) })
			sources = append(sources, source)
		}
		listeners = append(listeners, l)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range listeners {
		l := l
		g.Go(func() error {
			return l.Prime(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if t.heartbeat != nil {
		t.heartbeat.Expect(sources...)
	}
	for _, l := range listeners {
		if err := l.Start(ctx); err != nil {
			return err
		}
		t.listeners = append(t.listeners, l)
	}
	return nil
}

// applyRockerBrakeMode commands the brake mode the launch panel rocker selects, or BRAKE when
// there is no rocker.
func (t *Teleop) applyRockerBrakeMode(ctx context.Context) {
	mode, found := drive.Brake, false
	for _, l := range t.listeners {
		if l.Device() != input.LaunchPanel {
			continue
		}
		if latched, ok := l.Latched(input.RockerLeftBack); ok {
			mode, found = BrakeModeFor(latched), true
		}
		break
	}
	if !found {
		t.logger.Warnw("no launch panel rocker, applying default brake mode",
			"control", input.RockerLeftBack, "brake_mode", mode.String())
	}
	if err := t.controller.SetBrakeMode(ctx, mode); err != nil {
		t.logger.Warnw("cannot apply brake mode", "error", err)
	}
}

// release stops the listeners and closes every piece of hardware.
func (t *Teleop) release() error {
	for _, l := range t.listeners {
		l.Stop()
	}
	t.listeners = nil

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := multierr.Combine(
		t.hw.Devices.Close(ctx),
		t.hw.Drive.Close(ctx),
		t.hw.Shifter.Close(ctx),
		t.hw.PTO.Close(ctx),
	)
	if t.hw.Heading != nil {
		err = multierr.Append(err, t.hw.Heading.Close(ctx))
	}
	if t.hw.Camera != nil {
		err = multierr.Append(err, t.hw.Camera.Close(ctx))
	}
	t.logger.Debugw("hardware released", "error", err)
	return err
}
