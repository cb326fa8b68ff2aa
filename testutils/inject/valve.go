package inject

import (
	"context"

	"go.viam.com/teleop/components/valve"
)

// Valve is an injected double-acting valve.
type Valve struct {
	valve.DoubleActing
	name         string
	SetAFunc     func(ctx context.Context) error
	SetBFunc     func(ctx context.Context) error
	PositionFunc func(ctx context.Context) (valve.Position, error)
	CloseFunc    func(ctx context.Context) error
}

// NewValve returns a new injected valve.
func NewValve(name string) *Valve {
	return &Valve{name: name}
}

// Name returns the name of the resource.
func (v *Valve) Name() string {
	return v.name
}

// SetA calls the injected SetA or the real version.
func (v *Valve) SetA(ctx context.Context) error {
	if v.SetAFunc == nil {
		return v.DoubleActing.SetA(ctx)
	}
	return v.SetAFunc(ctx)
}

// SetB calls the injected SetB or the real version.
func (v *Valve) SetB(ctx context.Context) error {
	if v.SetBFunc == nil {
		return v.DoubleActing.SetB(ctx)
	}
	return v.SetBFunc(ctx)
}

// Position calls the injected Position or the real version.
func (v *Valve) Position(ctx context.Context) (valve.Position, error) {
	if v.PositionFunc == nil {
		return v.DoubleActing.Position(ctx)
	}
	return v.PositionFunc(ctx)
}

// Close calls the injected Close or the real version.
func (v *Valve) Close(ctx context.Context) error {
	if v.CloseFunc == nil {
		if v.DoubleActing == nil {
			return nil
		}
		return v.DoubleActing.Close(ctx)
	}
	return v.CloseFunc(ctx)
}
