package inject

import (
	"context"

	"go.viam.com/teleop/components/heading"
)

// HeadingReference is an injected heading reference.
type HeadingReference struct {
	heading.Reference
	name             string
	ResetHeadingFunc func(ctx context.Context) error
	HeadingFunc      func(ctx context.Context) (float64, error)
	CloseFunc        func(ctx context.Context) error
}

// NewHeadingReference returns a new injected heading reference.
func NewHeadingReference(name string) *HeadingReference {
	return &HeadingReference{name: name}
}

// Name returns the name of the resource.
func (h *HeadingReference) Name() string {
	return h.name
}

// ResetHeading calls the injected ResetHeading or the real version.
func (h *HeadingReference) ResetHeading(ctx context.Context) error {
	if h.ResetHeadingFunc == nil {
		return h.Reference.ResetHeading(ctx)
	}
	return h.ResetHeadingFunc(ctx)
}

// Heading calls the injected Heading or the real version.
func (h *HeadingReference) Heading(ctx context.Context) (float64, error) {
	if h.HeadingFunc == nil {
		return h.Reference.Heading(ctx)
	}
	return h.HeadingFunc(ctx)
}

// Close calls the injected Close or the real version.
func (h *HeadingReference) Close(ctx context.Context) error {
	if h.CloseFunc == nil {
		if h.Reference == nil {
			return nil
		}
		return h.Reference.Close(ctx)
	}
	return h.CloseFunc(ctx)
}
