// Package gpio implements a double-acting valve whose two solenoids are driven by GPIO lines.
package gpio

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/teleop/components/valve"
	"go.viam.com/teleop/internal/gpioline"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/resource"
)

// Model is the model name of GPIO valves.
const Model = resource.Model("gpio")

// MaxPulseMs bounds pulse_ms. Detented valves latch in tens of milliseconds.
const MaxPulseMs = 1000

// Config is the config for a GPIO valve. With a non-zero PulseMs the energized solenoid is
// switched off again after the pulse, which suits detented valves; otherwise it stays energized.
type Config struct {
	PinA    string `json:"pin_a"`
	PinB    string `json:"pin_b"`
	PulseMs int    `json:"pulse_ms,omitempty"`
}

// Validate ensures both pins are set and distinct.
func (cfg *Config) Validate(path string) error {
	if cfg.PinA == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "pin_a")
	}
	if cfg.PinB == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "pin_b")
	}
	if cfg.PinA == cfg.PinB {
		return errors.Errorf("%s: pin_a and pin_b must differ, both are %q", path, cfg.PinA)
	}
	if cfg.PulseMs < 0 || cfg.PulseMs > MaxPulseMs {
		return errors.Errorf("%s: pulse_ms must be between 0 and %d, got %d", path, MaxPulseMs, cfg.PulseMs)
	}
	return nil
}

func init() {
	resource.Register(valve.API, Model, resource.Registration[valve.DoubleActing, *Config]{
		Constructor: func(ctx context.Context, conf resource.Config, logger logging.Logger) (valve.DoubleActing, error) {
			cfg, err := resource.NativeConfig[*Config](conf)
			if err != nil {
				return nil, err
			}
			lineA, err := gpioline.Open(cfg.PinA)
			if err != nil {
				return nil, err
			}
			lineB, err := gpioline.Open(cfg.PinB)
			if err != nil {
				return nil, err
			}
			return NewValve(conf.Name, lineA, lineB, time.Duration(cfg.PulseMs)*time.Millisecond, logger)
		},
	})
}

// Valve drives solenoid A and B of a double-acting valve. With a pulse, SetA and SetB return as
// soon as the solenoid is energized and a timer switches it off again.
type Valve struct {
	resource.Named

	mu       sync.Mutex
	logger   logging.Logger
	clk      clock.Clock
	a, b     gpioline.Output
	pulse    time.Duration
	position valve.Position

	pulseEnd *clock.Timer
	// pulseID identifies the current pulse; a timer firing for an older pulse does nothing.
	pulseID uint64
}

// NewValve returns a valve on the given lines with both solenoids de-energized.
func NewValve(name string, a, b gpioline.Output, pulse time.Duration, logger logging.Logger) (*Valve, error) {
	return newValve(name, a, b, pulse, clock.New(), logger)
}

func newValve(name string, a, b gpioline.Output, pulse time.Duration, clk clock.Clock, logger logging.Logger) (*Valve, error) {
	v := &Valve{Named: resource.Named(name), logger: logger, clk: clk, a: a, b: b, pulse: pulse}
	if err := multierr.Combine(a.Set(false), b.Set(false)); err != nil {
		return nil, errors.Wrapf(err, "initializing valve %s", name)
	}
	return v, nil
}

// SetA energizes solenoid A.
func (v *Valve) SetA(ctx context.Context) error {
	return v.set(valve.PositionA, v.a, v.b)
}

// SetB energizes solenoid B.
func (v *Valve) SetB(ctx context.Context) error {
	return v.set(valve.PositionB, v.b, v.a)
}

func (v *Valve) set(pos valve.Position, on, off gpioline.Output) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.cancelPulseLocked()
	if err := off.Set(false); err != nil {
		return err
	}
	if err := on.Set(true); err != nil {
		return err
	}
	v.position = pos
	if v.pulse > 0 {
		id := v.pulseID
		v.pulseEnd = v.clk.AfterFunc(v.pulse, func() {
			v.endPulse(id, on)
		})
	}
	return nil
}

// endPulse de-energizes `on` unless a later command or Close replaced the pulse.
func (v *Valve) endPulse(id uint64, on gpioline.Output) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if id != v.pulseID {
		return
	}
	v.pulseEnd = nil
	if err := on.Set(false); err != nil {
		v.logger.Warnw("cannot end valve pulse", "valve", v.Name(), "error", err)
	}
}

func (v *Valve) cancelPulseLocked() {
	if v.pulseEnd != nil {
		v.pulseEnd.Stop()
		v.pulseEnd = nil
	}
	v.pulseID++
}

// Position returns the last commanded position.
func (v *Valve) Position(ctx context.Context) (valve.Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position, nil
}

// Close cancels any pulse and de-energizes both solenoids.
func (v *Valve) Close(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancelPulseLocked()
	return multierr.Combine(v.a.Set(false), v.b.Set(false))
}
