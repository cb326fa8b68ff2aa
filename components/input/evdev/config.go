// Package evdev reads joysticks and button panels through the Linux evdev interface.
package evdev

import (
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/teleop/components/input"
	"go.viam.com/teleop/resource"
)

// Model is the model name of evdev input devices.
const Model = resource.Model("evdev")

// AxisConfig maps an absolute axis event code to a normalized axis.
type AxisConfig struct {
	Code   uint16 `json:"code"`
	Min    int32  `json:"min"`
	Max    int32  `json:"max"`
	Invert bool   `json:"invert,omitempty"`
}

// Config is the config for an evdev input device. Buttons and switches map control names to key
// event codes.
type Config struct {
	Path     string                 `json:"path"`
	Grab     bool                   `json:"grab,omitempty"`
	Axes     map[string]*AxisConfig `json:"axes,omitempty"`
	Buttons  map[string]uint16      `json:"buttons,omitempty"`
	Switches map[string]uint16      `json:"switches,omitempty"`
}

// Validate ensures the device path is set, axis ranges are sane and no key code is reused.
func (cfg *Config) Validate(path string) error {
	if cfg.Path == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "path")
	}
	for name, axis := range cfg.Axes {
		if axis == nil {
			return goutils.NewConfigValidationFieldRequiredError(path, "axes."+name)
		}
		if axis.Max <= axis.Min {
			return errors.Errorf("%s: axis %q max %d must be greater than min %d", path, name, axis.Max, axis.Min)
		}
	}
	seen := map[uint16]string{}
	for _, codes := range []map[string]uint16{cfg.Buttons, cfg.Switches} {
		for name, code := range codes {
			if other, ok := seen[code]; ok {
				return errors.Errorf("%s: key code %d used by both %q and %q", path, code, other, name)
			}
			seen[code] = name
		}
	}
	return nil
}

// controlSpecs lists the configured controls.
func (cfg *Config) controlSpecs() []input.ControlSpec {
	specs := make([]input.ControlSpec, 0, len(cfg.Buttons)+len(cfg.Switches))
	for name := range cfg.Buttons {
		specs = append(specs, input.ControlSpec{Control: input.Control(name), Kind: input.KindButton})
	}
	for name := range cfg.Switches {
		specs = append(specs, input.ControlSpec{Control: input.Control(name), Kind: input.KindSwitch})
	}
	return specs
}

// normalize maps a raw axis value into [-1, 1].
func (axis *AxisConfig) normalize(raw int32) float64 {
	low := float64(axis.Min)
	value := 2*(float64(raw)-low)/(float64(axis.Max)-low) - 1
	if axis.Invert {
		value = -value
	}
	return value
}
