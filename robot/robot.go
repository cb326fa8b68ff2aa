// Package robot builds the hardware a teleop run drives from a config.
package robot

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/teleop/components/camera"
	"go.viam.com/teleop/components/drive"
	"go.viam.com/teleop/components/heading"
	"go.viam.com/teleop/components/input"
	"go.viam.com/teleop/components/valve"
	"go.viam.com/teleop/config"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/resource"
	"go.viam.com/teleop/teleop"
)

// Robot is the built hardware. Heading and Camera are nil when not configured.
type Robot struct {
	Devices *input.DeviceSet
	Shifter valve.DoubleActing
	PTO     valve.DoubleActing
	Drive   drive.Tank
	Heading heading.Reference
	Camera  camera.Selector
}

// New builds every input and actuator in `cfg`. Models must already be registered. If anything
// fails to build, what was built is closed again.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (r *Robot, err error) {
	r = &Robot{Devices: input.NewDeviceSet()}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, r.Close(ctx))
			r = nil
		}
	}()

	for _, ic := range cfg.Inputs {
		dev, err := resource.Build[input.Device](ctx, input.API, ic.Config, logger.Sublogger("input"))
		if err != nil {
			return r, err
		}
		r.Devices.Add(input.DeviceID(ic.Name), dev, ic.Deadzone)
	}

	actuatorLogger := logger.Sublogger("actuator")
	for _, ac := range cfg.Actuators {
		switch ac.Name {
		case config.ActuatorShifter:
			r.Shifter, err = resource.Build[valve.DoubleActing](ctx, valve.API, ac, actuatorLogger)
		case config.ActuatorPTO:
			r.PTO, err = resource.Build[valve.DoubleActing](ctx, valve.API, ac, actuatorLogger)
		case config.ActuatorDrive:
			r.Drive, err = resource.Build[drive.Tank](ctx, drive.API, ac, actuatorLogger)
		case config.ActuatorHeading:
			r.Heading, err = resource.Build[heading.Reference](ctx, heading.API, ac, actuatorLogger)
		case config.ActuatorCamera:
			r.Camera, err = resource.Build[camera.Selector](ctx, camera.API, ac, actuatorLogger)
		default:
			err = errors.Errorf("unknown actuator %q", ac.Name)
		}
		if err != nil {
			return r, err
		}
	}
	logger.Infow("robot built", "inputs", r.Devices.IDs(), "actuators", len(cfg.Actuators))
	return r, nil
}

// Hardware hands the robot to a teleop run, which then owns and releases it.
func (r *Robot) Hardware() teleop.Hardware {
	return teleop.Hardware{
		Devices: r.Devices,
		Shifter: r.Shifter,
		PTO:     r.PTO,
		Drive:   r.Drive,
		Heading: r.Heading,
		Camera:  r.Camera,
	}
}

// Close closes everything that was built.
func (r *Robot) Close(ctx context.Context) error {
	err := r.Devices.Close(ctx)
	for _, res := range []resource.Resource{r.Drive, r.Shifter, r.PTO, r.Heading, r.Camera} {
		if res == nil {
			continue
		}
		err = multierr.Append(err, res.Close(ctx))
	}
	return err
}
