// Package input describes the operator's input devices: the axes and controls they expose, the
// events derived from them, and the narrow read contracts the control loop and listeners use.
package input

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/teleop/resource"
)

// API is the resource API implemented by input device models.
const API = resource.API("input")

// ErrDeviceUnavailable is returned when a read targets a device that is not present.
var ErrDeviceUnavailable = errors.New("input device unavailable")

// DeviceID identifies one physical input device.
type DeviceID string

// The devices a teleop session reads.
const (
	LeftStick    DeviceID = "left_stick"
	RightStick   DeviceID = "right_stick"
	UtilityStick DeviceID = "utility_stick"
	LaunchPanel  DeviceID = "launch_panel"
)

// Axis identifies a continuous axis of a device.
type Axis string

// Axes.
const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// Control identifies a discrete button or switch of a device.
type Control string

// Controls used by the default bindings.
const (
	Trigger        Control = "TRIGGER"
	TopLeft        Control = "TOP_LEFT"
	ButtonBlue     Control = "BUTTON_BLUE"
	ButtonYellow   Control = "BUTTON_YELLOW"
	ButtonRedRight Control = "BUTTON_RED_RIGHT"
	RockerLeftBack Control = "ROCKER_LEFT_BACK"
)

// ControlKind says how a control's physical state is interpreted.
type ControlKind string

const (
	// KindButton is a momentary button. Each press toggles its latched state.
	KindButton ControlKind = "button"
	// KindSwitch is a maintained switch. Its latched state is its position.
	KindSwitch ControlKind = "switch"
)

// ControlSpec declares a control and its kind.
type ControlSpec struct {
	Control Control     `json:"control" yaml:"control"`
	Kind    ControlKind `json:"kind" yaml:"kind"`
}

// EventType is the closed set of discrete events a listener emits.
type EventType string

// Event types.
const (
	ButtonDown    EventType = "ButtonDown"
	ButtonUp      EventType = "ButtonUp"
	SwitchChanged EventType = "SwitchChanged"
)

// ControlEvent is a discrete input event. Latched is the toggled state of a button after a
// ButtonDown, the unchanged toggled state on ButtonUp, and the new position of a switch.
type ControlEvent struct {
	Time    time.Time
	Device  DeviceID
	Control Control
	Type    EventType
	Latched bool
}

// AxisSample is a single clamped axis reading.
type AxisSample struct {
	Device DeviceID
	Axis   Axis
	Value  float64
}

// Device is one physical input device.
type Device interface {
	resource.Resource

	// Controls lists the discrete controls of the device.
	Controls(ctx context.Context) ([]ControlSpec, error)
	// ReadAxis returns the current deflection of `axis`, nominally in [-1, 1].
	ReadAxis(ctx context.Context, axis Axis) (float64, error)
	// PollControl returns the physical state of `control`: pressed for a button, on for a switch.
	PollControl(ctx context.Context, control Control) (bool, error)
}

// AxisSource reads axes by device.
type AxisSource interface {
	ReadAxis(ctx context.Context, device DeviceID, axis Axis) (float64, error)
}

// ControlSource reads the physical state of controls by device.
type ControlSource interface {
	PollControl(ctx context.Context, device DeviceID, control Control) (bool, error)
}

// FromDevices returns the named device or ErrDeviceUnavailable.
func FromDevices(devices map[DeviceID]Device, id DeviceID) (Device, error) {
	dev, ok := devices[id]
	if !ok || dev == nil {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "%s", id)
	}
	return dev, nil
}
