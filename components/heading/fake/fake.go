// Package fake implements a heading reference whose heading is set from code.
package fake

import (
	"context"
	"sync"

	"go.viam.com/teleop/components/heading"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/resource"
)

// Model is the model name of the fake heading reference.
const Model = resource.Model("fake")

func init() {
	resource.Register(heading.API, Model, resource.Registration[heading.Reference, resource.NoNativeConfig]{
		Constructor: func(ctx context.Context, conf resource.Config, logger logging.Logger) (heading.Reference, error) {
			return NewReference(conf.Name, logger), nil
		},
	})
}

// Reference is a fake heading reference.
type Reference struct {
	resource.Named
	resource.TriviallyCloseable

	mu       sync.Mutex
	logger   logging.Logger
	absolute float64
	offset   float64
	resets   int
	resetErr error
}

// NewReference returns a fake heading reference at heading 0.
func NewReference(name string, logger logging.Logger) *Reference {
	return &Reference{Named: resource.Named(name), logger: logger}
}

// ResetHeading zeroes the heading at the current absolute angle.
func (r *Reference) ResetHeading(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resetErr != nil {
		return r.resetErr
	}
	r.offset = r.absolute
	r.resets++
	return nil
}

// Heading returns the absolute angle minus the angle at the last reset, in [0, 360).
func (r *Reference) Heading(ctx context.Context) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.absolute - r.offset
	for h < 0 {
		h += 360
	}
	for h >= 360 {
		h -= 360
	}
	return h, nil
}

// Turn rotates the simulated robot by `degrees`.
func (r *Reference) Turn(degrees float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.absolute += degrees
}

// Resets returns the number of successful resets.
func (r *Reference) Resets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resets
}

// SetResetError makes ResetHeading fail with `err` until cleared with nil.
func (r *Reference) SetResetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetErr = err
}
