// Package config defines the teleop configuration file and how it is read and validated.
package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/teleop/components/camera"
	"go.viam.com/teleop/components/drive"
	"go.viam.com/teleop/components/heading"
	"go.viam.com/teleop/components/input"
	"go.viam.com/teleop/components/valve"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/resource"
	"go.viam.com/teleop/shaping"
	"go.viam.com/teleop/teleop"
)

// Defaults applied when a field is left unset.
const (
	DefaultPeriodMs = 20
	DefaultPollHz   = 50
)

// Actuator names. Each name has a fixed API.
const (
	ActuatorShifter = "shifter"
	ActuatorPTO     = "pto"
	ActuatorDrive   = "drive"
	ActuatorHeading = "heading"
	ActuatorCamera  = "camera"
)

// ActuatorAPIs maps each actuator name to the API its model implements.
var ActuatorAPIs = map[string]resource.API{
	ActuatorShifter: valve.API,
	ActuatorPTO:     valve.API,
	ActuatorDrive:   drive.API,
	ActuatorHeading: heading.API,
	ActuatorCamera:  camera.API,
}

var (
	requiredActuators = []string{ActuatorShifter, ActuatorPTO, ActuatorDrive}
	requiredInputs    = []input.DeviceID{input.LeftStick, input.RightStick}
	knownInputs       = []input.DeviceID{input.LeftStick, input.RightStick, input.UtilityStick, input.LaunchPanel}
)

// Config is a teleop configuration file.
type Config struct {
	Session   SessionConfig                 `json:"session" yaml:"session"`
	Shaping   ShapingConfig                 `json:"shaping" yaml:"shaping"`
	Drive     DriveConfig                   `json:"drive" yaml:"drive"`
	Debug     bool                          `json:"debug,omitempty" yaml:"debug,omitempty"`
	LogFile   string                        `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	LogConfig []logging.LoggerPatternConfig `json:"log,omitempty" yaml:"log,omitempty"`
	Inputs    []InputConfig                 `json:"inputs" yaml:"inputs"`
	Actuators []resource.Config             `json:"actuators" yaml:"actuators"`
	Bindings  []teleop.Binding              `json:"bindings,omitempty" yaml:"bindings,omitempty"`

	ConfigFilePath string `json:"-" yaml:"-"`
}

// SessionConfig bounds the operating session. Zero duration or heartbeat window disables that
// limit.
type SessionConfig struct {
	PeriodMs          int     `json:"period_ms,omitempty" yaml:"period_ms,omitempty"`
	DurationSec       float64 `json:"duration_sec,omitempty" yaml:"duration_sec,omitempty"`
	HeartbeatWindowMs int     `json:"heartbeat_window_ms,omitempty" yaml:"heartbeat_window_ms,omitempty"`
}

// Period returns the control period.
func (sc SessionConfig) Period() time.Duration {
	if sc.PeriodMs <= 0 {
		return DefaultPeriodMs * time.Millisecond
	}
	return time.Duration(sc.PeriodMs) * time.Millisecond
}

// Duration returns the session length, or 0 for unbounded.
func (sc SessionConfig) Duration() time.Duration {
	return time.Duration(sc.DurationSec * float64(time.Second))
}

// HeartbeatWindow returns the heartbeat window, or 0 when heartbeats are not required.
func (sc SessionConfig) HeartbeatWindow() time.Duration {
	return time.Duration(sc.HeartbeatWindowMs) * time.Millisecond
}

// ShapingConfig selects the stick response curve.
type ShapingConfig struct {
	Curve shaping.Curve `json:"curve,omitempty" yaml:"curve,omitempty"`
}

// DriveConfig configures drive behavior.
type DriveConfig struct {
	// PTOAxis is the utility stick axis used while the PTO is enabled.
	PTOAxis input.Axis `json:"pto_axis,omitempty" yaml:"pto_axis,omitempty"`
}

// InputConfig configures one input device.
type InputConfig struct {
	resource.Config `yaml:",inline"`

	PollHz   float64 `json:"poll_hz,omitempty" yaml:"poll_hz,omitempty"`
	Deadzone float64 `json:"deadzone,omitempty" yaml:"deadzone,omitempty"`
}

// PollPeriod returns how often the device's controls are polled.
func (ic InputConfig) PollPeriod() time.Duration {
	hz := ic.PollHz
	if hz <= 0 {
		hz = DefaultPollHz
	}
	return time.Duration(float64(time.Second) / hz)
}

// Validate checks the whole config and converts every model's attributes. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs error
	if c.Session.PeriodMs < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError("session.period_ms", errors.New("must not be negative")))
	}
	if c.Session.DurationSec < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError("session.duration_sec", errors.New("must not be negative")))
	}
	if c.Session.HeartbeatWindowMs < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError("session.heartbeat_window_ms", errors.New("must not be negative")))
	}
	if _, err := shaping.FromCurve(c.Shaping.Curve); err != nil {
		errs = multierr.Append(errs, goutils.NewConfigValidationError("shaping.curve", err))
	}
	if c.Drive.PTOAxis != "" && !lo.Contains([]input.Axis{input.AxisX, input.AxisY, input.AxisZ}, c.Drive.PTOAxis) {
		errs = multierr.Append(errs, goutils.NewConfigValidationError("drive.pto_axis", errors.Errorf("unknown axis %q", c.Drive.PTOAxis)))
	}
	for i, lpc := range c.LogConfig {
		path := fmt.Sprintf("log.%d", i)
		if !logging.ValidatePattern(lpc.Pattern) {
			errs = multierr.Append(errs, goutils.NewConfigValidationError(path, errors.Errorf("invalid pattern %q", lpc.Pattern)))
		}
		if _, err := logging.LevelFromString(lpc.Level); err != nil {
			errs = multierr.Append(errs, goutils.NewConfigValidationError(path, err))
		}
	}

	errs = multierr.Append(errs, c.validateInputs())
	errs = multierr.Append(errs, c.validateActuators())

	for i, b := range c.Bindings {
		errs = multierr.Append(errs, b.Validate(fmt.Sprintf("bindings.%d", i)))
	}
	return errs
}

func (c *Config) validateInputs() error {
	var errs error
	names := lo.Map(c.Inputs, func(ic InputConfig, _ int) input.DeviceID { return input.DeviceID(ic.Name) })
	for _, dup := range lo.FindDuplicates(names) {
		errs = multierr.Append(errs, goutils.NewConfigValidationError("inputs", errors.Errorf("input %q is configured more than once", dup)))
	}
	for _, missing := range lo.Without(requiredInputs, names...) {
		errs = multierr.Append(errs, goutils.NewConfigValidationFieldRequiredError("inputs", string(missing)))
	}
	for i := range c.Inputs {
		ic := &c.Inputs[i]
		path := fmt.Sprintf("inputs.%d", i)
		if err := ic.Config.Validate(path); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if !lo.Contains(knownInputs, input.DeviceID(ic.Name)) {
			errs = multierr.Append(errs, goutils.NewConfigValidationError(path, errors.Errorf("unknown input %q (known: %v)", ic.Name, knownInputs)))
		}
		if ic.PollHz < 0 {
			errs = multierr.Append(errs, goutils.NewConfigValidationError(path+".poll_hz", errors.New("must not be negative")))
		}
		if ic.Deadzone < 0 || ic.Deadzone >= 1 {
			errs = multierr.Append(errs, goutils.NewConfigValidationError(path+".deadzone", errors.New("must be in [0, 1)")))
		}
		errs = multierr.Append(errs, resource.ConvertAttributes(input.API, &ic.Config, path))
	}
	return errs
}

func (c *Config) validateActuators() error {
	var errs error
	names := lo.Map(c.Actuators, func(rc resource.Config, _ int) string { return rc.Name })
	for _, dup := range lo.FindDuplicates(names) {
		errs = multierr.Append(errs, goutils.NewConfigValidationError("actuators", errors.Errorf("actuator %q is configured more than once", dup)))
	}
	for _, missing := range lo.Without(requiredActuators, names...) {
		errs = multierr.Append(errs, goutils.NewConfigValidationFieldRequiredError("actuators", missing))
	}
	for i := range c.Actuators {
		rc := &c.Actuators[i]
		path := fmt.Sprintf("actuators.%d", i)
		if err := rc.Validate(path); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		api, ok := ActuatorAPIs[rc.Name]
		if !ok {
			errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
				errors.Errorf("unknown actuator %q (known: %v)", rc.Name, lo.Keys(ActuatorAPIs))))
			continue
		}
		errs = multierr.Append(errs, resource.ConvertAttributes(api, rc, path))
	}
	return errs
}

// Actuator returns the actuator config with the given name.
func (c *Config) Actuator(name string) (resource.Config, bool) {
	return lo.Find(c.Actuators, func(rc resource.Config) bool { return rc.Name == name })
}

// TeleopConfig returns the teleop run configuration.
func (c *Config) TeleopConfig() teleop.Config {
	periods := make(map[input.DeviceID]time.Duration, len(c.Inputs))
	for _, ic := range c.Inputs {
		periods[input.DeviceID(ic.Name)] = ic.PollPeriod()
	}
	return teleop.Config{
		Period:      c.Session.Period(),
		Curve:       c.Shaping.Curve,
		PTOAxis:     c.Drive.PTOAxis,
		PollPeriods: periods,
		Bindings:    c.Bindings,
	}
}
