// Package fake implements a drive that records the commands it receives.
package fake

import (
	"context"
	"sync"

	"go.viam.com/teleop/components/drive"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/resource"
)

// Model is the model name of the fake drive.
const Model = resource.Model("fake")

func init() {
	resource.Register(drive.API, Model, resource.Registration[drive.Tank, resource.NoNativeConfig]{
		Constructor: func(ctx context.Context, conf resource.Config, logger logging.Logger) (drive.Tank, error) {
			return NewTank(conf.Name, logger), nil
		},
	})
}

// Command is one recorded SetPower call.
type Command struct {
	Left, Right float64
}

// Tank is a fake tank drive.
type Tank struct {
	resource.Named

	mu        sync.Mutex
	logger    logging.Logger
	commands  []Command
	brakeMode drive.BrakeMode
	brakeSets []drive.BrakeMode
	safety    bool
	powerErr  error
	brakeErr  error
	closed    bool
}

// NewTank returns a fake tank drive in BRAKE mode.
func NewTank(name string, logger logging.Logger) *Tank {
	return &Tank{Named: resource.Named(name), logger: logger}
}

// SetPower records the command.
func (t *Tank) SetPower(ctx context.Context, left, right float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.powerErr != nil {
		return t.powerErr
	}
	t.commands = append(t.commands, Command{Left: left, Right: right})
	return nil
}

// SetBrakeMode records the mode.
func (t *Tank) SetBrakeMode(ctx context.Context, mode drive.BrakeMode) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.brakeErr != nil {
		return t.brakeErr
	}
	t.brakeMode = mode
	t.brakeSets = append(t.brakeSets, mode)
	return nil
}

// SetSafety records the watchdog state.
func (t *Tank) SetSafety(ctx context.Context, enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.safety = enabled
	return nil
}

// Stop records a zero command.
func (t *Tank) Stop(ctx context.Context) error {
	return t.SetPower(ctx, 0, 0)
}

// Commands returns every recorded SetPower call in order.
func (t *Tank) Commands() []Command {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Command{}, t.commands...)
}

// LastCommand returns the most recent command and whether there was one.
func (t *Tank) LastCommand() (Command, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.commands) == 0 {
		return Command{}, false
	}
	return t.commands[len(t.commands)-1], true
}

// BrakeMode returns the last brake mode set.
func (t *Tank) BrakeMode() drive.BrakeMode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.brakeMode
}

// BrakeModeSets returns every brake mode set in order.
func (t *Tank) BrakeModeSets() []drive.BrakeMode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]drive.BrakeMode{}, t.brakeSets...)
}

// Safety reports whether the watchdog is armed.
func (t *Tank) Safety() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.safety
}

// SetPowerError makes SetPower fail with `err` until cleared with nil.
func (t *Tank) SetPowerError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.powerErr = err
}

// SetBrakeModeError makes SetBrakeMode fail with `err` until cleared with nil.
func (t *Tank) SetBrakeModeError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.brakeErr = err
}

// Closed reports whether Close was called.
func (t *Tank) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close marks the drive closed.
func (t *Tank) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
