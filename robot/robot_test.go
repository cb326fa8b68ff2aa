package robot

import (
	"context"
	"testing"

	"go.viam.com/test"

	"go.viam.com/teleop/components/input"
	_ "go.viam.com/teleop/components/register"
	fakevalve "go.viam.com/teleop/components/valve/fake"
	"go.viam.com/teleop/config"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/resource"
)

func fakeConfig() *config.Config {
	return &config.Config{
		Inputs: []config.InputConfig{
			{Config: resource.Config{Name: "left_stick", Model: "fake"}},
			{Config: resource.Config{Name: "right_stick", Model: "fake"}, Deadzone: 0.1},
		},
		Actuators: []resource.Config{
			{Name: config.ActuatorShifter, Model: "fake"},
			{Name: config.ActuatorPTO, Model: "fake"},
			{Name: config.ActuatorDrive, Model: "fake"},
			{Name: config.ActuatorCamera, Model: "cycle", Attributes: resource.AttributeMap{"cameras": []interface{}{"front"}}},
		},
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	cfg := fakeConfig()
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	r, err := New(ctx, cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Devices.IDs(), test.ShouldResemble, []input.DeviceID{input.LeftStick, input.RightStick})
	test.That(t, r.Shifter.Name(), test.ShouldEqual, config.ActuatorShifter)
	test.That(t, r.PTO, test.ShouldNotBeNil)
	test.That(t, r.Drive, test.ShouldNotBeNil)
	test.That(t, r.Heading, test.ShouldBeNil)
	current, err := r.Camera.Current(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, current, test.ShouldEqual, "front")

	hw := r.Hardware()
	test.That(t, hw.Devices, test.ShouldEqual, r.Devices)
	test.That(t, hw.Heading, test.ShouldBeNil)

	test.That(t, r.Close(ctx), test.ShouldBeNil)
	test.That(t, r.Shifter.(*fakevalve.Valve).Closed(), test.ShouldBeTrue)
	test.That(t, r.Devices.IDs(), test.ShouldBeEmpty)
}

func TestNewClosesOnFailure(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	cfg := fakeConfig()
	cfg.Actuators = append(cfg.Actuators, resource.Config{Name: "winch", Model: "fake"})

	r, err := New(ctx, cfg, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown actuator "winch"`)
	test.That(t, r, test.ShouldBeNil)

	cfg = fakeConfig()
	cfg.Actuators[2].Model = "hoverboard"
	_, err = New(ctx, cfg, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "hoverboard")
}
