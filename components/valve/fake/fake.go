// Package fake implements a valve that records the positions it is commanded to.
package fake

import (
	"context"
	"sync"

	"go.viam.com/teleop/components/valve"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/resource"
)

// Model is the model name of the fake valve.
const Model = resource.Model("fake")

func init() {
	resource.Register(valve.API, Model, resource.Registration[valve.DoubleActing, resource.NoNativeConfig]{
		Constructor: func(ctx context.Context, conf resource.Config, logger logging.Logger) (valve.DoubleActing, error) {
			return NewValve(conf.Name, logger), nil
		},
	})
}

// Valve is a fake double-acting valve.
type Valve struct {
	resource.Named

	mu       sync.Mutex
	logger   logging.Logger
	position valve.Position
	history  []valve.Position
	failNext []error
	closed   bool
}

// NewValve returns a fake valve in the unknown position.
func NewValve(name string, logger logging.Logger) *Valve {
	return &Valve{Named: resource.Named(name), logger: logger}
}

// SetA commands position A.
func (v *Valve) SetA(ctx context.Context) error {
	return v.set(valve.PositionA)
}

// SetB commands position B.
func (v *Valve) SetB(ctx context.Context) error {
	return v.set(valve.PositionB)
}

func (v *Valve) set(pos valve.Position) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.failNext) > 0 {
		err := v.failNext[0]
		v.failNext = v.failNext[1:]
		if err != nil {
			return err
		}
	}
	v.position = pos
	v.history = append(v.history, pos)
	v.logger.Debugw("valve set", "position", pos.String())
	return nil
}

// Position returns the last successfully commanded position.
func (v *Valve) Position(ctx context.Context) (valve.Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position, nil
}

// History returns every successfully commanded position in order.
func (v *Valve) History() []valve.Position {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]valve.Position{}, v.history...)
}

// FailNext makes the next len(errs) commands return the given errors in order. A nil entry lets
// that command succeed.
func (v *Valve) FailNext(errs ...error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failNext = append(v.failNext, errs...)
}

// Closed reports whether Close was called.
func (v *Valve) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// Close marks the valve closed.
func (v *Valve) Close(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}
