// Package resource holds the pieces shared by every hardware collaborator built from config:
// the Resource interface, per-model configuration and the model registry.
package resource

import (
	"context"
)

// An API names the kind of collaborator a model implements, e.g. "valve" or "drive".
type API string

// A Model names one implementation of an API, e.g. "fake" or "sabertooth".
type Model string

// Resource is the common surface of everything built from config. Close releases any hardware
// the resource owns and must be safe to call once the resource is no longer in use.
type Resource interface {
	Name() string
	Close(ctx context.Context) error
}

// Named is embedded by resources to implement Name.
type Named string

// Name returns the configured name.
func (n Named) Name() string {
	return string(n)
}

// TriviallyCloseable is embedded by resources that own nothing to release.
type TriviallyCloseable struct{}

// Close does nothing.
func (TriviallyCloseable) Close(ctx context.Context) error {
	return nil
}
