package teleop

import (
	"context"
	"testing"

	"go.uber.org/atomic"

	"go.viam.com/teleop/components/camera"
	fakedrive "go.viam.com/teleop/components/drive/fake"
	fakeheading "go.viam.com/teleop/components/heading/fake"
	"go.viam.com/teleop/components/input"
	fakeinput "go.viam.com/teleop/components/input/fake"
	fakevalve "go.viam.com/teleop/components/valve/fake"
	"go.viam.com/teleop/drivetrain"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/telemetry"
)

// rig is a full set of fake hardware laid out like the robot.
type rig struct {
	left, right, utility, panel *fakeinput.Device

	devices *input.DeviceSet
	shifter *fakevalve.Valve
	pto     *fakevalve.Valve
	tank    *fakedrive.Tank
	heading *fakeheading.Reference
	camera  *camera.Cycler
	dash    *telemetry.Dashboard
}

func newRig(t *testing.T, logger logging.Logger) *rig {
	t.Helper()
	stick := func(name string, buttons ...input.Control) *fakeinput.Device {
		return fakeinput.NewDevice(name, &fakeinput.Config{
			Axes:    []input.Axis{input.AxisX, input.AxisY},
			Buttons: buttons,
		}, logger)
	}
	r := &rig{
		left:    stick("left", input.Trigger),
		right:   stick("right", input.TopLeft),
		utility: stick("utility", input.Trigger),
		panel: fakeinput.NewDevice("panel", &fakeinput.Config{
			Buttons:  []input.Control{input.ButtonBlue, input.ButtonYellow, input.ButtonRedRight},
			Switches: []input.Control{input.RockerLeftBack},
		}, logger),
		devices: input.NewDeviceSet(),
		shifter: fakevalve.NewValve("shifter", logger),
		pto:     fakevalve.NewValve("pto", logger),
		tank:    fakedrive.NewTank("drive", logger),
		heading: fakeheading.NewReference("gyro", logger),
		camera:  camera.NewCycler("cameras", []string{"front", "rear"}, logger),
		dash:    telemetry.NewDashboard(),
	}
	r.devices.Add(input.LeftStick, r.left, 0)
	r.devices.Add(input.RightStick, r.right, 0)
	r.devices.Add(input.UtilityStick, r.utility, 0.05)
	r.devices.Add(input.LaunchPanel, r.panel, 0)
	return r
}

func (r *rig) hardware() Hardware {
	return Hardware{
		Devices: r.devices,
		Shifter: r.shifter,
		PTO:     r.pto,
		Drive:   r.tank,
		Heading: r.heading,
		Camera:  r.camera,
	}
}

func (r *rig) controller(logger logging.Logger) *drivetrain.Controller {
	return drivetrain.NewController(r.shifter, r.pto, r.tank, r.dash, logger)
}

// activity is a settable session.
type activity struct {
	active atomic.Bool
}

func newActivity() *activity {
	a := &activity{}
	a.active.Store(true)
	return a
}

func (a *activity) Active() bool {
	return a.active.Load()
}

// axisFunc adapts a function to an AxisSource.
type axisFunc func(ctx context.Context, device input.DeviceID, axis input.Axis) (float64, error)

func (f axisFunc) ReadAxis(ctx context.Context, device input.DeviceID, axis input.Axis) (float64, error) {
	return f(ctx, device, axis)
}
