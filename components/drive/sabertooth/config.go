package sabertooth

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	goutils "go.viam.com/utils"

	"go.viam.com/teleop/internal/gpioline"
)

var validBaudRates = []int{115200, 38400, 19200, 9600, 2400}

// Config is the config for a Sabertooth tank drive.
type Config struct {
	// path to /dev/ttyXXXX file
	SerialPath string `json:"serial_path"`

	BaudRate int `json:"serial_baud_rate,omitempty"`

	// Valid values are 128-135.
	SerialAddress int `json:"serial_address,omitempty"`

	// Channel (1 or 2) wired to the left side; the right side uses the other one.
	LeftChannel int `json:"left_channel,omitempty"`

	// Due to wiring/motor orientation, "forward" on the controller may not be "forward" on the robot.
	FlipLeft  bool `json:"flip_left,omitempty"`
	FlipRight bool `json:"flip_right,omitempty"`

	// How quickly the controller ramps to a new setpoint, 1-80.
	RampValue int `json:"controller_ramp_value,omitempty"`

	// Magnitudes below this are sent as stop.
	MinPowerPct float64 `json:"min_power_pct,omitempty"`

	// Watchdog period used while safety is armed. Rounded up to 100ms units.
	SerialTimeoutMs int `json:"serial_timeout_ms,omitempty"`

	// Optional GPIO line wired to the brake/coast input of the motor drivers.
	BrakePin        string `json:"brake_pin,omitempty"`
	BrakeActiveHigh bool   `json:"brake_active_high,omitempty"`

	// TestChan is a fake "serial" path for test use only.
	TestChan chan []byte `json:"-"`
	// TestBrake replaces the brake line for test use only.
	TestBrake gpioline.Output `json:"-"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.SerialPath == "" && cfg.TestChan == nil {
		return goutils.NewConfigValidationFieldRequiredError(path, "serial_path")
	}
	withDefaults := *cfg
	withDefaults.populateDefaults()
	return withDefaults.validateValues()
}

func (cfg *Config) populateDefaults() {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600
	}
	if cfg.SerialAddress == 0 {
		cfg.SerialAddress = 128
	}
	if cfg.LeftChannel == 0 {
		cfg.LeftChannel = 1
	}
	if cfg.SerialTimeoutMs == 0 {
		cfg.SerialTimeoutMs = 100
	}
}

func (cfg *Config) validateValues() error {
	errs := make([]string, 0)
	if cfg.LeftChannel != 1 && cfg.LeftChannel != 2 {
		errs = append(errs, fmt.Sprintf("invalid left_channel %v, acceptable values are 1 and 2", cfg.LeftChannel))
	}
	if cfg.SerialAddress < 128 || cfg.SerialAddress > 135 {
		errs = append(errs, "invalid serial_address, acceptable values are 128 thru 135")
	}
	if !lo.Contains(validBaudRates, cfg.BaudRate) {
		errs = append(errs, fmt.Sprintf("invalid serial_baud_rate, acceptable values are %v", validBaudRates))
	}
	if cfg.RampValue < 0 || cfg.RampValue > 80 {
		errs = append(errs, "invalid controller_ramp_value, acceptable values are 0 thru 80")
	}
	if cfg.MinPowerPct < 0 || cfg.MinPowerPct >= 1 {
		errs = append(errs, "invalid min_power_pct, acceptable values are 0 up to 1")
	}
	if cfg.SerialTimeoutMs < 0 || cfg.timeoutUnits() > 127 {
		errs = append(errs, "invalid serial_timeout_ms, acceptable values are 0 thru 12700")
	}
	if len(errs) > 0 {
		return fmt.Errorf("error validating sabertooth controller config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (cfg *Config) rightChannel() int {
	if cfg.LeftChannel == 2 {
		return 1
	}
	return 2
}

// timeoutUnits converts the watchdog period to the controller's 100ms units, rounding up.
func (cfg *Config) timeoutUnits() byte {
	units := (cfg.SerialTimeoutMs + 99) / 100
	if units > 255 {
		units = 255
	}
	return byte(units)
}
