package inject

import (
	"context"

	"go.viam.com/teleop/components/drive"
)

// Tank is an injected tank drive.
type Tank struct {
	drive.Tank
	name             string
	SetPowerFunc     func(ctx context.Context, left, right float64) error
	SetBrakeModeFunc func(ctx context.Context, mode drive.BrakeMode) error
	SetSafetyFunc    func(ctx context.Context, enabled bool) error
	StopFunc         func(ctx context.Context) error
	CloseFunc        func(ctx context.Context) error
}

// NewTank returns a new injected tank drive.
func NewTank(name string) *Tank {
	return &Tank{name: name}
}

// Name returns the name of the resource.
func (t *Tank) Name() string {
	return t.name
}

// SetPower calls the injected SetPower or the real version.
func (t *Tank) SetPower(ctx context.Context, left, right float64) error {
	if t.SetPowerFunc == nil {
		return t.Tank.SetPower(ctx, left, right)
	}
	return t.SetPowerFunc(ctx, left, right)
}

// SetBrakeMode calls the injected SetBrakeMode or the real version.
func (t *Tank) SetBrakeMode(ctx context.Context, mode drive.BrakeMode) error {
	if t.SetBrakeModeFunc == nil {
		return t.Tank.SetBrakeMode(ctx, mode)
	}
	return t.SetBrakeModeFunc(ctx, mode)
}

// SetSafety calls the injected SetSafety or the real version.
func (t *Tank) SetSafety(ctx context.Context, enabled bool) error {
	if t.SetSafetyFunc == nil {
		return t.Tank.SetSafety(ctx, enabled)
	}
	return t.SetSafetyFunc(ctx, enabled)
}

// Stop calls the injected Stop or the real version.
func (t *Tank) Stop(ctx context.Context) error {
	if t.StopFunc == nil {
		return t.Tank.Stop(ctx)
	}
	return t.StopFunc(ctx)
}

// Close calls the injected Close or the real version.
func (t *Tank) Close(ctx context.Context) error {
	if t.CloseFunc == nil {
		if t.Tank == nil {
			return nil
		}
		return t.Tank.Close(ctx)
	}
	return t.CloseFunc(ctx)
}
