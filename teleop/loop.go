package teleop

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"go.viam.com/teleop/components/drive"
	"go.viam.com/teleop/components/input"
	"go.viam.com/teleop/drivetrain"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/shaping"
	"go.viam.com/teleop/telemetry"
	"go.viam.com/teleop/utils"
)

// DefaultPeriod is the control loop period.
const DefaultPeriod = 20 * time.Millisecond

// Dashboard keys published by the loop.
const (
	KeyLeftPower  = "LeftPower"
	KeyRightPower = "RightPower"
	KeyState      = "State"
)

// State is the lifecycle state of the control loop.
type State int32

// States.
const (
	Stopped State = iota
	Arming
	Running
)

func (s State) String() string {
	switch s {
	case Arming:
		return "ARMING"
	case Running:
		return "RUNNING"
	case Stopped:
	}
	return "STOPPED"
}

// Activity reports whether the operating session is still going.
type Activity interface {
	Active() bool
}

// Command is a drivetrain power command.
type Command struct {
	Left, Right float64
}

// LoopConfig configures a control loop.
type LoopConfig struct {
	Period time.Duration
	// Shape is applied to stick axes outside PTO mode.
	Shape shaping.Func
	// DriveAxis is read from the left and right sticks.
	DriveAxis input.Axis
	// PTOAxis is read from the utility stick, unshaped, while the PTO is enabled.
	PTOAxis input.Axis
}

func (cfg LoopConfig) withDefaults() LoopConfig {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Shape == nil {
		cfg.Shape = shaping.Logarithmic
	}
	if cfg.DriveAxis == "" {
		cfg.DriveAxis = input.AxisY
	}
	if cfg.PTOAxis == "" {
		cfg.PTOAxis = input.AxisX
	}
	return cfg
}

// ControlLoop turns stick deflections into drivetrain power once per period while the session is
// active. Power is only commanded while the safety interlock is enabled, which happens on entering
// RUNNING.
type ControlLoop struct {
	cfg      LoopConfig
	axes     input.AxisSource
	mode     drivetrain.ModeReader
	tank     drive.Tank
	activity Activity
	auto     *atomic.Bool
	dash     telemetry.Publisher
	clk      clock.Clock
	logger   logging.Logger

	state     atomic.Int32
	interlock atomic.Bool
	status    rate.Sometimes
	faults    rate.Sometimes
}

// NewControlLoop returns a stopped loop. `auto` is read every cycle; while it is set the loop
// commands nothing.
func NewControlLoop(
	cfg LoopConfig,
	axes input.AxisSource,
	mode drivetrain.ModeReader,
	tank drive.Tank,
	activity Activity,
	auto *atomic.Bool,
	dash telemetry.Publisher,
	clk clock.Clock,
	logger logging.Logger,
) *ControlLoop {
	if auto == nil {
		auto = atomic.NewBool(false)
	}
	if dash == nil {
		dash = telemetry.Discard
	}
	if clk == nil {
		clk = clock.New()
	}
	return &ControlLoop{
		cfg:      cfg.withDefaults(),
		axes:     axes,
		mode:     mode,
		tank:     tank,
		activity: activity,
		auto:     auto,
		dash:     dash,
		clk:      clk,
		logger:   logger,
		status:   rate.Sometimes{Interval: time.Second},
		faults:   rate.Sometimes{Interval: time.Second},
	}
}

// State returns the lifecycle state.
func (l *ControlLoop) State() State {
	return State(l.state.Load())
}

func (l *ControlLoop) setState(s State) {
	l.state.Store(int32(s))
	l.dash.PutString(KeyState, s.String())
	l.logger.Debugw("loop state", "state", s.String())
}

// InterlockEnabled reports whether the loop may command power.
func (l *ControlLoop) InterlockEnabled() bool {
	return l.interlock.Load()
}

// Arm moves a stopped loop to ARMING. The interlock stays disabled.
func (l *ControlLoop) Arm() error {
	if !l.state.CompareAndSwap(int32(Stopped), int32(Arming)) {
		return errors.Errorf("cannot arm control loop in state %s", l.State())
	}
	l.interlock.Store(false)
	l.dash.PutString(KeyState, Arming.String())
	return nil
}

// Disarm returns an arming loop to STOPPED without running it.
func (l *ControlLoop) Disarm() {
	if l.state.CompareAndSwap(int32(Arming), int32(Stopped)) {
		l.dash.PutString(KeyState, Stopped.String())
	}
}

// Run enables the interlock, enters RUNNING and cycles until the session ends or ctx is done.
// On return the interlock is disabled, the drive is stopped and the loop is STOPPED.
func (l *ControlLoop) Run(ctx context.Context) (err error) {
	if l.State() != Arming {
		return errors.Errorf("cannot run control loop in state %s", l.State())
	}
	defer func() {
		err = l.shutdown(err)
	}()

	if err := l.tank.SetSafety(ctx, true); err != nil {
		return errors.Wrap(err, "cannot enable drive safety")
	}
	l.interlock.Store(true)
	l.setState(Running)

	utils.Periodic(l.clk, l.cfg.Period, func(ctx context.Context) bool {
		if l.activity != nil && !l.activity.Active() {
			l.logger.Info("session no longer active")
			return false
		}
		l.cycle(ctx)
		return true
	})(ctx)
	return nil
}

func (l *ControlLoop) shutdown(err error) error {
	l.interlock.Store(false)
	// The caller's context may be done; stopping must still reach the drive.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if stopErr := l.tank.Stop(ctx); stopErr != nil {
		l.logger.Warnw("cannot stop drive", "error", stopErr)
	}
	if safetyErr := l.tank.SetSafety(ctx, false); safetyErr != nil {
		l.logger.Warnw("cannot disable drive safety", "error", safetyErr)
	}
	l.setState(Stopped)
	return err
}

// cycle runs one period of the loop and returns the command it issued, if any.
func (l *ControlLoop) cycle(ctx context.Context) (Command, bool) {
	if !l.interlock.Load() {
		return Command{}, false
	}
	cmd, err := l.compute(ctx)
	if err != nil {
		l.faults.Do(func() {
			l.logger.Warnw("cannot read sticks, commanding zero power", "error", err)
		})
		cmd = Command{}
	}
	if l.auto.Load() {
		return Command{}, false
	}
	cmd.Left = utils.ClampUnit(cmd.Left)
	cmd.Right = utils.ClampUnit(cmd.Right)
	if err := l.tank.SetPower(ctx, cmd.Left, cmd.Right); err != nil {
		l.faults.Do(func() {
			l.logger.Warnw("cannot set drive power", "error", err)
		})
	}
	l.dash.PutNumber(KeyLeftPower, cmd.Left)
	l.dash.PutNumber(KeyRightPower, cmd.Right)
	return cmd, true
}

// compute reads the sticks for the current mode.
func (l *ControlLoop) compute(ctx context.Context) (Command, error) {
	if l.mode.CurrentMode().PTO == drivetrain.Enabled {
		util, err := l.axes.ReadAxis(ctx, input.UtilityStick, l.cfg.PTOAxis)
		if err != nil {
			return Command{}, err
		}
		l.logStatus(util, util, util)
		return Command{Left: util, Right: util}, nil
	}
	left, err := l.axes.ReadAxis(ctx, input.LeftStick, l.cfg.DriveAxis)
	if err != nil {
		return Command{}, err
	}
	right, err := l.axes.ReadAxis(ctx, input.RightStick, l.cfg.DriveAxis)
	if err != nil {
		return Command{}, err
	}
	cmd := Command{Left: l.cfg.Shape(left), Right: l.cfg.Shape(right)}
	l.status.Do(func() {
		// Status only; the utility stick is optional outside PTO mode.
		util, _ := l.axes.ReadAxis(ctx, input.UtilityStick, l.cfg.PTOAxis)
		l.logger.Debugf("leftY=%.4f rightY=%.4f util=%.4f", cmd.Left, cmd.Right, util)
	})
	return cmd, nil
}

func (l *ControlLoop) logStatus(leftY, rightY, utilX float64) {
	l.status.Do(func() {
		l.logger.Debugf("leftY=%.4f rightY=%.4f util=%.4f", leftY, rightY, utilX)
	})
}
