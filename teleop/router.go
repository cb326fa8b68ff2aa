package teleop

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/teleop/components/camera"
	"go.viam.com/teleop/components/drive"
	"go.viam.com/teleop/components/heading"
	"go.viam.com/teleop/components/input"
	"go.viam.com/teleop/drivetrain"
	"go.viam.com/teleop/logging"
)

// Action is something an event can do.
type Action string

// Actions. Each one that takes a state reads it from the event's latched value.
const (
	// ActionSetPTO enables the PTO when latched and disables it otherwise.
	ActionSetPTO Action = "set_pto"
	// ActionSetGear selects HIGH when latched and LOW otherwise.
	ActionSetGear Action = "set_gear"
	// ActionSetBrakeMode selects COAST when latched and BRAKE otherwise.
	ActionSetBrakeMode Action = "set_brake_mode"
	ActionCameraNext   Action = "camera_next"
	ActionResetHeading Action = "reset_heading"
	// ActionNone is a reserved binding. It is logged and otherwise ignored.
	ActionNone Action = "none"
)

// Actions lists every action.
var Actions = []Action{ActionSetPTO, ActionSetGear, ActionSetBrakeMode, ActionCameraNext, ActionResetHeading, ActionNone}

// Binding maps one kind of event on one control of one device to an action.
type Binding struct {
	Device  input.DeviceID  `json:"device" yaml:"device"`
	Control input.Control   `json:"control" yaml:"control"`
	Event   input.EventType `json:"event" yaml:"event"`
	Action  Action          `json:"action" yaml:"action"`
}

type bindingKey struct {
	device  input.DeviceID
	control input.Control
	event   input.EventType
}

func (b Binding) key() bindingKey {
	return bindingKey{b.Device, b.Control, b.Event}
}

func (b Binding) String() string {
	return fmt.Sprintf("%s/%s/%s", b.Device, b.Control, b.Event)
}

// Validate checks that the binding names a known event type and action.
func (b Binding) Validate(path string) error {
	if b.Device == "" || b.Control == "" {
		return errors.Errorf("%s: binding needs a device and a control", path)
	}
	if !lo.Contains([]input.EventType{input.ButtonDown, input.ButtonUp, input.SwitchChanged}, b.Event) {
		return errors.Errorf("%s: unknown event type %q", path, b.Event)
	}
	if !lo.Contains(Actions, b.Action) {
		return errors.Errorf("%s: unknown action %q (known: %v)", path, b.Action, Actions)
	}
	return nil
}

// DefaultBindings returns the standard control layout.
func DefaultBindings() []Binding {
	return []Binding{
		{input.LaunchPanel, input.ButtonBlue, input.ButtonDown, ActionSetPTO},
		{input.LaunchPanel, input.ButtonYellow, input.ButtonDown, ActionCameraNext},
		{input.LaunchPanel, input.ButtonRedRight, input.ButtonDown, ActionResetHeading},
		{input.LaunchPanel, input.RockerLeftBack, input.SwitchChanged, ActionSetBrakeMode},
		{input.LeftStick, input.Trigger, input.ButtonDown, ActionSetGear},
		{input.RightStick, input.TopLeft, input.ButtonDown, ActionCameraNext},
		{input.UtilityStick, input.Trigger, input.ButtonDown, ActionNone},
	}
}

// MergeBindings returns `base` with every binding in `overrides` replacing the one for the same
// device, control and event, or added if there is none.
func MergeBindings(base, overrides []Binding) []Binding {
	merged := append([]Binding{}, base...)
	for _, o := range overrides {
		_, idx, found := lo.FindIndexOf(merged, func(b Binding) bool { return b.key() == o.key() })
		if found {
			merged[idx] = o
			continue
		}
		merged = append(merged, o)
	}
	return merged
}

// ModeController is the drive mode surface the router commands.
type ModeController interface {
	drivetrain.ModeReader
	SetGear(ctx context.Context, gear drivetrain.Gear) error
	SetPTO(ctx context.Context, pto drivetrain.PTO) error
	SetBrakeMode(ctx context.Context, mode drive.BrakeMode) error
}

// Targets are what the router's actions act on. Camera and Heading may be nil, in which case
// their actions are logged and skipped.
type Targets struct {
	Mode    ModeController
	Camera  camera.Selector
	Heading heading.Reference
}

// Router dispatches each event to at most one action.
type Router struct {
	table   map[bindingKey]Action
	targets Targets
	logger  logging.Logger
}

// NewRouter builds a router. Two bindings for the same event are an error.
func NewRouter(bindings []Binding, targets Targets, logger logging.Logger) (*Router, error) {
	if targets.Mode == nil {
		return nil, errors.New("router needs a mode controller")
	}
	table := make(map[bindingKey]Action, len(bindings))
	for i, b := range bindings {
		if err := b.Validate(fmt.Sprintf("bindings.%d", i)); err != nil {
			return nil, err
		}
		if _, ok := table[b.key()]; ok {
			return nil, errors.Errorf("bindings.%d: %s is bound more than once", i, b)
		}
		table[b.key()] = b.Action
	}
	return &Router{table: table, targets: targets, logger: logger}, nil
}

// Lookup returns the action bound to an event.
func (r *Router) Lookup(event input.ControlEvent) (Action, bool) {
	action, ok := r.table[bindingKey{event.Device, event.Control, event.Type}]
	return action, ok
}

// Dispatch performs the action bound to `event`. Unbound events do nothing. Action failures are
// logged; the caller carries on.
func (r *Router) Dispatch(ctx context.Context, event input.ControlEvent) {
	action, ok := r.Lookup(event)
	if !ok {
		return
	}
	if err := r.perform(ctx, action, event.Latched); err != nil {
		r.logger.Warnw("action failed",
			"action", action, "device", event.Device, "control", event.Control, "error", err)
		return
	}
	r.logger.Debugw("action performed", "action", action, "latched", event.Latched)
}

func (r *Router) perform(ctx context.Context, action Action, latched bool) error {
	switch action {
	case ActionSetPTO:
		if latched {
			return r.targets.Mode.SetPTO(ctx, drivetrain.Enabled)
		}
		return r.targets.Mode.SetPTO(ctx, drivetrain.Disabled)
	case ActionSetGear:
		if latched {
			return r.targets.Mode.SetGear(ctx, drivetrain.High)
		}
		return r.targets.Mode.SetGear(ctx, drivetrain.Low)
	case ActionSetBrakeMode:
		return r.targets.Mode.SetBrakeMode(ctx, BrakeModeFor(latched))
	case ActionCameraNext:
		if r.targets.Camera == nil {
			return errors.New("no camera selector")
		}
		name, err := r.targets.Camera.SelectNext(ctx)
		if err == nil {
			r.logger.Infow("camera changed", "camera", name)
		}
		return err
	case ActionResetHeading:
		if r.targets.Heading == nil {
			return errors.New("no heading reference")
		}
		return r.targets.Heading.ResetHeading(ctx)
	case ActionNone:
		r.logger.Debug("reserved control pressed")
		return nil
	default:
		return errors.Errorf("unknown action %q", action)
	}
}

// BrakeModeFor maps the rocker's latched state to a brake mode.
func BrakeModeFor(latched bool) drive.BrakeMode {
	if latched {
		return drive.Coast
	}
	return drive.Brake
}
