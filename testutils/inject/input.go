package inject

import (
	"context"

	"go.viam.com/teleop/components/input"
)

// InputDevice is an injected input device.
type InputDevice struct {
	input.Device
	name            string
	ControlsFunc    func(ctx context.Context) ([]input.ControlSpec, error)
	ReadAxisFunc    func(ctx context.Context, axis input.Axis) (float64, error)
	PollControlFunc func(ctx context.Context, control input.Control) (bool, error)
	CloseFunc       func(ctx context.Context) error
}

// NewInputDevice returns a new injected input device.
func NewInputDevice(name string) *InputDevice {
	return &InputDevice{name: name}
}

// Name returns the name of the resource.
func (d *InputDevice) Name() string {
	return d.name
}

// Controls calls the injected Controls or the real version.
func (d *InputDevice) Controls(ctx context.Context) ([]input.ControlSpec, error) {
	if d.ControlsFunc == nil {
		return d.Device.Controls(ctx)
	}
	return d.ControlsFunc(ctx)
}

// ReadAxis calls the injected ReadAxis or the real version.
func (d *InputDevice) ReadAxis(ctx context.Context, axis input.Axis) (float64, error) {
	if d.ReadAxisFunc == nil {
		return d.Device.ReadAxis(ctx, axis)
	}
	return d.ReadAxisFunc(ctx, axis)
}

// PollControl calls the injected PollControl or the real version.
func (d *InputDevice) PollControl(ctx context.Context, control input.Control) (bool, error) {
	if d.PollControlFunc == nil {
		return d.Device.PollControl(ctx, control)
	}
	return d.PollControlFunc(ctx, control)
}

// Close calls the injected Close or the real version.
func (d *InputDevice) Close(ctx context.Context) error {
	if d.CloseFunc == nil {
		if d.Device == nil {
			return nil
		}
		return d.Device.Close(ctx)
	}
	return d.CloseFunc(ctx)
}
