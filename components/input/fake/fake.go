// Package fake implements a simulated input device whose axes and controls are set from code.
package fake

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/teleop/components/input"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/resource"
)

// Model is the model name of the fake input device.
const Model = resource.Model("fake")

// Config is the config for a fake input device.
type Config struct {
	Axes     []input.Axis    `json:"axes,omitempty"`
	Buttons  []input.Control `json:"buttons,omitempty"`
	Switches []input.Control `json:"switches,omitempty"`
	Initial  map[string]bool `json:"initial,omitempty"`
}

// Validate ensures no control is both a button and a switch.
func (cfg *Config) Validate(path string) error {
	if both := lo.Intersect(cfg.Buttons, cfg.Switches); len(both) > 0 {
		return errors.Errorf("%s: controls %v are listed as both buttons and switches", path, both)
	}
	if dup := lo.FindDuplicates(append(append([]input.Control{}, cfg.Buttons...), cfg.Switches...)); len(dup) > 0 {
		return errors.Errorf("%s: controls %v are listed more than once", path, dup)
	}
	return nil
}

func init() {
	resource.Register(input.API, Model, resource.Registration[input.Device, *Config]{
		Constructor: func(ctx context.Context, conf resource.Config, logger logging.Logger) (input.Device, error) {
			cfg, err := resource.NativeConfig[*Config](conf)
			if err != nil {
				return nil, err
			}
			return NewDevice(conf.Name, cfg, logger), nil
		},
	})
}

// Device is a simulated input device. Unset axes read 0 and unlisted controls are errors.
type Device struct {
	resource.Named

	mu       sync.Mutex
	logger   logging.Logger
	controls []input.ControlSpec
	axes     map[input.Axis]float64
	states   map[input.Control]bool
	readErr  error
	closed   bool
}

// NewDevice returns a fake device. A nil config yields x and y axes and no controls.
func NewDevice(name string, cfg *Config, logger logging.Logger) *Device {
	if cfg == nil {
		cfg = &Config{}
	}
	axes := cfg.Axes
	if len(axes) == 0 {
		axes = []input.Axis{input.AxisX, input.AxisY}
	}
	dev := &Device{
		Named:  resource.Named(name),
		logger: logger,
		axes:   make(map[input.Axis]float64, len(axes)),
		states: map[input.Control]bool{},
	}
	for _, axis := range axes {
		dev.axes[axis] = 0
	}
	for _, c := range cfg.Buttons {
		dev.controls = append(dev.controls, input.ControlSpec{Control: c, Kind: input.KindButton})
		dev.states[c] = cfg.Initial[string(c)]
	}
	for _, c := range cfg.Switches {
		dev.controls = append(dev.controls, input.ControlSpec{Control: c, Kind: input.KindSwitch})
		dev.states[c] = cfg.Initial[string(c)]
	}
	return dev
}

// Controls returns the configured controls.
func (d *Device) Controls(ctx context.Context) ([]input.ControlSpec, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLocked(); err != nil {
		return nil, err
	}
	return append([]input.ControlSpec{}, d.controls...), nil
}

// ReadAxis returns the last value set for `axis`.
func (d *Device) ReadAxis(ctx context.Context, axis input.Axis) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLocked(); err != nil {
		return 0, err
	}
	value, ok := d.axes[axis]
	if !ok {
		return 0, errors.Errorf("%s has no axis %q", d.Name(), axis)
	}
	return value, nil
}

// PollControl returns the last state set for `control`.
func (d *Device) PollControl(ctx context.Context, control input.Control) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLocked(); err != nil {
		return false, err
	}
	state, ok := d.states[control]
	if !ok {
		return false, errors.Errorf("%s has no control %q", d.Name(), control)
	}
	return state, nil
}

// SetAxis sets the value the next ReadAxis returns. Values are not clamped.
func (d *Device) SetAxis(axis input.Axis, value float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.axes[axis] = value
}

// SetControl sets the physical state of a control: pressed for buttons, on for switches.
func (d *Device) SetControl(control input.Control, state bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states[control] = state
}

// Press holds a button down.
func (d *Device) Press(control input.Control) {
	d.SetControl(control, true)
}

// Release lets a button up.
func (d *Device) Release(control input.Control) {
	d.SetControl(control, false)
}

// SetReadError makes every read fail with `err` until cleared with nil.
func (d *Device) SetReadError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readErr = err
}

// Closed reports whether Close was called.
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Close marks the device closed; later reads fail.
func (d *Device) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Device) checkLocked() error {
	if d.closed {
		return errors.Wrapf(input.ErrDeviceUnavailable, "%s is closed", d.Name())
	}
	return d.readErr
}
