package inject

import (
	"context"

	"go.viam.com/teleop/components/camera"
)

// CameraSelector is an injected camera selector.
type CameraSelector struct {
	camera.Selector
	name           string
	SelectNextFunc func(ctx context.Context) (string, error)
	CurrentFunc    func(ctx context.Context) (string, error)
	CloseFunc      func(ctx context.Context) error
}

// NewCameraSelector returns a new injected camera selector.
func NewCameraSelector(name string) *CameraSelector {
	return &CameraSelector{name: name}
}

// Name returns the name of the resource.
func (c *CameraSelector) Name() string {
	return c.name
}

// SelectNext calls the injected SelectNext or the real version.
func (c *CameraSelector) SelectNext(ctx context.Context) (string, error) {
	if c.SelectNextFunc == nil {
		return c.Selector.SelectNext(ctx)
	}
	return c.SelectNextFunc(ctx)
}

// Current calls the injected Current or the real version.
func (c *CameraSelector) Current(ctx context.Context) (string, error) {
	if c.CurrentFunc == nil {
		return c.Selector.Current(ctx)
	}
	return c.CurrentFunc(ctx)
}

// Close calls the injected Close or the real version.
func (c *CameraSelector) Close(ctx context.Context) error {
	if c.CloseFunc == nil {
		if c.Selector == nil {
			return nil
		}
		return c.Selector.Close(ctx)
	}
	return c.CloseFunc(ctx)
}
