// Package sabertooth drives a Dimension Engineering Sabertooth 2x dual motor controller in
// packetized serial mode as a tank drive, one channel per side.
package sabertooth

import (
	"context"
	"io"
	"math"
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.uber.org/multierr"

	"go.viam.com/teleop/components/drive"
	"go.viam.com/teleop/internal/gpioline"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/resource"
	"go.viam.com/teleop/utils"
)

// Model is the model name of Sabertooth drives.
const Model = resource.Model("sabertooth")

func init() {
	resource.Register(drive.API, Model, resource.Registration[drive.Tank, *Config]{
		Constructor: func(ctx context.Context, conf resource.Config, logger logging.Logger) (drive.Tank, error) {
			cfg, err := resource.NativeConfig[*Config](conf)
			if err != nil {
				return nil, err
			}
			return NewTank(ctx, conf.Name, cfg, logger)
		},
	})
}

// Tank is a Sabertooth driven tank drive.
type Tank struct {
	resource.Named

	mu       sync.Mutex
	logger   logging.Logger
	cfg      *Config
	port     io.WriteCloser
	testChan chan []byte
	brake    gpioline.Output

	left, right float64
}

// NewTank opens the serial port, applies the ramp setting and stops both channels.
func NewTank(ctx context.Context, name string, cfg *Config, logger logging.Logger) (*Tank, error) {
	cfg.populateDefaults()
	if err := cfg.Validate("sabertooth"); err != nil {
		return nil, err
	}

	t := &Tank{
		Named:    resource.Named(name),
		logger:   logger,
		cfg:      cfg,
		testChan: cfg.TestChan,
		brake:    cfg.TestBrake,
	}
	if t.testChan == nil {
		port, err := serial.Open(cfg.SerialPath, &serial.Mode{
			BaudRate: cfg.BaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", cfg.SerialPath)
		}
		t.port = port
	}
	if t.brake == nil && cfg.BrakePin != "" {
		line, err := gpioline.Open(cfg.BrakePin)
		if err != nil {
			return nil, multierr.Combine(err, t.closePort())
		}
		t.brake = line
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if cfg.RampValue > 0 {
		if err := t.sendLocked(newCommand(cfg.SerialAddress, opRamping, byte(cfg.RampValue))); err != nil {
			return nil, multierr.Combine(err, t.closePort())
		}
	}
	if err := t.setPowerLocked(0, 0); err != nil {
		return nil, multierr.Combine(err, t.closePort())
	}
	return t, nil
}

// SetPower commands both channels. Values are clamped to [-1, 1]; magnitudes below
// min_power_pct are sent as stop.
func (t *Tank) SetPower(ctx context.Context, left, right float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setPowerLocked(left, right)
}

func (t *Tank) setPowerLocked(left, right float64) error {
	left = utils.ClampUnit(left)
	right = utils.ClampUnit(right)
	leftCmd := t.channelCommand(t.cfg.LeftChannel, left, t.cfg.FlipLeft)
	rightCmd := t.channelCommand(t.cfg.rightChannel(), right, t.cfg.FlipRight)
	if err := t.sendLocked(leftCmd); err != nil {
		return err
	}
	t.left = left
	if err := t.sendLocked(rightCmd); err != nil {
		return err
	}
	t.right = right
	return nil
}

// channelCommand builds the forward or backwards command for one channel.
func (t *Tank) channelCommand(channel int, power float64, flip bool) *command {
	if math.Abs(power) < t.cfg.MinPowerPct {
		power = 0
	}
	if flip {
		power = -power
	}
	speed := byte(math.Round(math.Abs(power) * maxSpeed))
	backwards := power < 0
	switch {
	case channel == 1 && !backwards:
		return newCommand(t.cfg.SerialAddress, opMotor1Forward, speed)
	case channel == 1:
		return newCommand(t.cfg.SerialAddress, opMotor1Backwards, speed)
	case !backwards:
		return newCommand(t.cfg.SerialAddress, opMotor2Forward, speed)
	default:
		return newCommand(t.cfg.SerialAddress, opMotor2Backwards, speed)
	}
}

// SetBrakeMode drives the brake/coast line. Without a configured brake pin the controller's
// fixed behavior cannot be changed and ErrBrakeModeUnsupported is returned.
func (t *Tank) SetBrakeMode(ctx context.Context, mode drive.BrakeMode) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.brake == nil {
		return errors.Wrapf(drive.ErrBrakeModeUnsupported, "%s has no brake_pin", t.Name())
	}
	high := mode == drive.Brake
	if !t.cfg.BrakeActiveHigh {
		high = !high
	}
	return t.brake.Set(high)
}

// SetSafety arms the controller's serial timeout: with it armed the controller stops both motors
// when no packet arrives within serial_timeout_ms.
func (t *Tank) SetSafety(ctx context.Context, enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var data byte
	if enabled {
		data = t.cfg.timeoutUnits()
	}
	return t.sendLocked(newCommand(t.cfg.SerialAddress, opSerialTimeout, data))
}

// Stop sets both channels to zero power.
func (t *Tank) Stop(ctx context.Context) error {
	return t.SetPower(ctx, 0, 0)
}

// Close stops the motors, disarms the timeout and closes the port.
func (t *Tank) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	err := multierr.Combine(
		t.setPowerLocked(0, 0),
		t.sendLocked(newCommand(t.cfg.SerialAddress, opSerialTimeout, 0)),
	)
	return multierr.Combine(err, t.closePort())
}

func (t *Tank) closePort() error {
	if t.port == nil {
		return nil
	}
	port := t.port
	t.port = nil
	if err := port.Close(); err != nil {
		return errors.Wrap(err, "closing serial connection")
	}
	return nil
}

// Must be run inside a lock.
func (t *Tank) sendLocked(cmd *command) error {
	packet := cmd.toPacket()
	if t.testChan != nil {
		t.testChan <- packet
		return nil
	}
	if t.port == nil {
		return errors.Errorf("%s: serial port closed", t.Name())
	}
	if _, err := t.port.Write(packet); err != nil {
		return errors.Wrapf(err, "writing to %s", t.cfg.SerialPath)
	}
	return nil
}
