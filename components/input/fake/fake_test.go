package fake

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/teleop/components/input"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/resource"
)

func TestFakeDevice(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)

	dev, err := resource.Build[input.Device](ctx, input.API, resource.Config{
		Name:  "launch_panel",
		Model: Model,
		Attributes: resource.AttributeMap{
			"buttons":  []interface{}{"BUTTON_BLUE", "BUTTON_YELLOW"},
			"switches": []interface{}{"ROCKER_LEFT_BACK"},
			"initial":  map[string]interface{}{"ROCKER_LEFT_BACK": true},
		},
	}, logger)
	test.That(t, err, test.ShouldBeNil)

	controls, err := dev.Controls(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, controls, test.ShouldResemble, []input.ControlSpec{
		{Control: input.ButtonBlue, Kind: input.KindButton},
		{Control: input.ButtonYellow, Kind: input.KindButton},
		{Control: input.RockerLeftBack, Kind: input.KindSwitch},
	})

	on, err := dev.PollControl(ctx, input.RockerLeftBack)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, on, test.ShouldBeTrue)

	_, err = dev.PollControl(ctx, input.Trigger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = dev.ReadAxis(ctx, input.AxisZ)
	test.That(t, err, test.ShouldNotBeNil)

	fakeDev := dev.(*Device)
	fakeDev.SetAxis(input.AxisY, 0.5)
	value, err := dev.ReadAxis(ctx, input.AxisY)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, value, test.ShouldEqual, 0.5)

	readErr := errors.New("unplugged")
	fakeDev.SetReadError(readErr)
	_, err = dev.ReadAxis(ctx, input.AxisY)
	test.That(t, err, test.ShouldEqual, readErr)
	fakeDev.SetReadError(nil)

	test.That(t, dev.Close(ctx), test.ShouldBeNil)
	_, err = dev.PollControl(ctx, input.ButtonBlue)
	test.That(t, errors.Is(err, input.ErrDeviceUnavailable), test.ShouldBeTrue)
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{Buttons: []input.Control{input.Trigger}, Switches: []input.Control{input.Trigger}}
	err := cfg.Validate("inputs.0")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "both buttons and switches")

	cfg = &Config{Buttons: []input.Control{input.Trigger, input.Trigger}}
	err = cfg.Validate("inputs.0")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "more than once")

	test.That(t, (&Config{}).Validate("inputs.0"), test.ShouldBeNil)
}
