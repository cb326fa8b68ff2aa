// Package camera switches the operator's video feed between the robot's cameras.
package camera

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/resource"
)

// API is the resource API implemented by camera selectors.
const API = resource.API("camera")

// Model is the model name of the cycling selector.
const Model = resource.Model("cycle")

// Selector chooses which camera feeds the operator display.
type Selector interface {
	resource.Resource

	// SelectNext advances to the next camera and returns its name.
	SelectNext(ctx context.Context) (string, error)
	// Current returns the selected camera.
	Current(ctx context.Context) (string, error)
}

// Config lists the cameras in cycling order.
type Config struct {
	Cameras []string `json:"cameras"`
}

// Validate ensures there is at least one camera and no name repeats.
func (cfg *Config) Validate(path string) error {
	if len(cfg.Cameras) == 0 {
		return errors.Errorf("%s: at least one camera is required", path)
	}
	if dup := lo.FindDuplicates(cfg.Cameras); len(dup) > 0 {
		return errors.Errorf("%s: cameras %v are listed more than once", path, dup)
	}
	return nil
}

func init() {
	resource.Register(API, Model, resource.Registration[Selector, *Config]{
		Constructor: func(ctx context.Context, conf resource.Config, logger logging.Logger) (Selector, error) {
			cfg, err := resource.NativeConfig[*Config](conf)
			if err != nil {
				return nil, err
			}
			return NewCycler(conf.Name, cfg.Cameras, logger), nil
		},
	})
}

// Cycler selects cameras round-robin, starting with the first.
type Cycler struct {
	resource.Named
	resource.TriviallyCloseable

	mu      sync.Mutex
	logger  logging.Logger
	cameras []string
	current int
}

// NewCycler returns a selector over `cameras`.
func NewCycler(name string, cameras []string, logger logging.Logger) *Cycler {
	return &Cycler{Named: resource.Named(name), logger: logger, cameras: append([]string{}, cameras...)}
}

// SelectNext advances to the next camera, wrapping around.
func (c *Cycler) SelectNext(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cameras) == 0 {
		return "", errors.New("no cameras configured")
	}
	c.current = (c.current + 1) % len(c.cameras)
	selected := c.cameras[c.current]
	c.logger.Infow("camera selected", "camera", selected)
	return selected, nil
}

// Current returns the selected camera.
func (c *Cycler) Current(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cameras) == 0 {
		return "", errors.New("no cameras configured")
	}
	return c.cameras[c.current], nil
}
