// Package drivetrain owns the drive mode of the robot: transmission gear, power-take-off routing
// and brake behavior. Every change goes through a Controller, which serializes mutation and
// commands the matching actuator in the same operation.
package drivetrain

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/teleop/components/drive"
	"go.viam.com/teleop/components/valve"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/telemetry"
)

var (
	// ErrActuatorFault matches every error caused by an actuator rejecting a command.
	ErrActuatorFault = errors.New("actuator fault")
	// ErrShiftBlocked is returned when HIGH gear is requested while the PTO is engaged. The
	// transmission is held in LOW.
	ErrShiftBlocked = errors.New("cannot shift to HIGH while the PTO is enabled")
)

// ActuatorError reports which actuator failed. It matches ErrActuatorFault with errors.Is.
type ActuatorError struct {
	Actuator string
	Err      error
}

func (e *ActuatorError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrActuatorFault, e.Actuator, e.Err)
}

// Unwrap returns the underlying error.
func (e *ActuatorError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrActuatorFault.
func (e *ActuatorError) Is(target error) bool {
	return target == ErrActuatorFault
}

func newActuatorError(actuator string, err error) error {
	if err == nil {
		return nil
	}
	return &ActuatorError{Actuator: actuator, Err: err}
}

// Gear is the transmission gear.
type Gear int

// Gears.
const (
	Low Gear = iota
	High
)

func (g Gear) String() string {
	if g == High {
		return "HIGH"
	}
	return "LOW"
}

// PTO is the power-take-off routing.
type PTO int

// PTO states.
const (
	Disabled PTO = iota
	Enabled
)

func (p PTO) String() string {
	if p == Enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// Mode is the full drive mode. The zero value is LOW, DISABLED, BRAKE.
type Mode struct {
	Gear  Gear
	PTO   PTO
	Brake drive.BrakeMode
}

func (m Mode) String() string {
	return fmt.Sprintf("{%s, %s, %s}", m.Gear, m.PTO, m.Brake)
}

// BrakeSetter is the part of the drive the controller commands.
type BrakeSetter interface {
	SetBrakeMode(ctx context.Context, mode drive.BrakeMode) error
}

// ModeReader is the read side of the controller, as consumed by the control loop.
type ModeReader interface {
	CurrentMode() Mode
}

// Controller owns the drive mode and its actuators. The transmission valve's A side is LOW and
// its B side HIGH; the PTO valve's A side is DISABLED and its B side ENABLED.
//
// When an actuator fails the requested mode is still recorded, so that the mode reflects operator
// intent, and the fault is returned. Each recorded change is published before its actuator is
// commanded; CurrentMode reads the published mode and never waits for an actuator.
type Controller struct {
	mu        sync.Mutex
	mode      Mode
	published atomic.Pointer[Mode]
	shifter   valve.DoubleActing
	pto       valve.DoubleActing
	brakes    BrakeSetter
	dash      telemetry.Publisher
	logger    logging.Logger
}

// NewController returns a controller in the zero mode. No actuator is commanded until
// ApplyDefaults or a Set call. A nil publisher discards dashboard updates.
func NewController(
	shifter, pto valve.DoubleActing,
	brakes BrakeSetter,
	dash telemetry.Publisher,
	logger logging.Logger,
) *Controller {
	if dash == nil {
		dash = telemetry.Discard
	}
	c := &Controller{
		shifter: shifter,
		pto:     pto,
		brakes:  brakes,
		dash:    dash,
		logger:  logger,
	}
	c.publishLocked()
	return c
}

// publishLocked makes the recorded mode visible to CurrentMode.
func (c *Controller) publishLocked() {
	mode := c.mode
	c.published.Store(&mode)
}

// ApplyDefaults commands LOW gear and PTO DISABLED, the session start mode.
func (c *Controller) ApplyDefaults(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	gearErr := c.setGearLocked(ctx, Low)
	ptoErr := c.setPTOLocked(ctx, Disabled)
	if gearErr != nil {
		return gearErr
	}
	return ptoErr
}

// SetGear commands the transmission. Setting the current gear re-asserts it. HIGH is refused with
// ErrShiftBlocked while the PTO is enabled; LOW is re-asserted instead.
func (c *Controller) SetGear(ctx context.Context, gear Gear) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gear == High && c.mode.PTO == Enabled {
		if err := c.setGearLocked(ctx, Low); err != nil {
			return err
		}
		return ErrShiftBlocked
	}
	return c.setGearLocked(ctx, gear)
}

func (c *Controller) setGearLocked(ctx context.Context, gear Gear) error {
	c.mode.Gear = gear
	c.publishLocked()
	var err error
	if gear == High {
		err = c.shifter.SetB(ctx)
	} else {
		err = c.shifter.SetA(ctx)
	}
	c.dash.PutBoolean(telemetry.FlagLow, gear == Low)
	c.dash.PutBoolean(telemetry.FlagHigh, gear == High)
	c.logger.Debugw("gear set", "gear", gear.String(), "error", err)
	return newActuatorError("transmission", err)
}

// SetPTO commands the PTO. Enabling first forces LOW gear, since the PTO must never engage in HIGH;
// disabling leaves the gear alone.
func (c *Controller) SetPTO(ctx context.Context, pto PTO) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setPTOLocked(ctx, pto)
}

func (c *Controller) setPTOLocked(ctx context.Context, pto PTO) error {
	var gearErr error
	if pto == Enabled {
		gearErr = c.setGearLocked(ctx, Low)
	}
	c.mode.PTO = pto
	c.publishLocked()
	var err error
	if pto == Enabled {
		err = c.pto.SetB(ctx)
	} else {
		err = c.pto.SetA(ctx)
	}
	c.dash.PutBoolean(telemetry.FlagPTO, pto == Enabled)
	c.logger.Debugw("pto set", "pto", pto.String(), "error", err)
	if gearErr != nil {
		return gearErr
	}
	return newActuatorError("pto", err)
}

// SetBrakeMode commands the drive's zero-power behavior.
func (c *Controller) SetBrakeMode(ctx context.Context, mode drive.BrakeMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode.Brake = mode
	c.publishLocked()
	err := c.brakes.SetBrakeMode(ctx, mode)
	c.dash.PutBoolean(telemetry.FlagBrake, mode == drive.Brake)
	c.logger.Debugw("brake mode set", "brake_mode", mode.String(), "error", err)
	return newActuatorError("drive", err)
}

// CurrentMode returns a consistent snapshot of the mode. It does not block behind a mode change in
// progress.
func (c *Controller) CurrentMode() Mode {
	return *c.published.Load()
}
