//go:build linux

package evdev

import (
	"context"
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/viamrobotics/evdev"
	"go.uber.org/multierr"

	"go.viam.com/teleop/components/input"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/resource"
	"go.viam.com/teleop/utils"
)

func init() {
	resource.Register(input.API, Model, resource.Registration[input.Device, *Config]{
		Constructor: func(ctx context.Context, conf resource.Config, logger logging.Logger) (input.Device, error) {
			cfg, err := resource.NativeConfig[*Config](conf)
			if err != nil {
				return nil, err
			}
			return NewDevice(conf.Name, cfg, logger)
		},
	})
}

// eventSource is the part of *evdev.Evdev a Device reads from.
type eventSource interface {
	Name() string
	Lock() error
	Unlock() error
	Close() error
	AbsoluteTypes() map[evdev.AbsoluteType]evdev.Axis
	Poll(ctx context.Context) <-chan *evdev.EventEnvelope
}

// Device is an evdev input device. A background worker drains events and keeps the latest axis
// values and key states; reads never block on the device.
type Device struct {
	resource.Named

	logger   logging.Logger
	cfg      *Config
	src      eventSource
	keyState func() (keyBits, error)

	codeToAxis    map[uint16]input.Axis
	codeToControl map[uint16]input.Control

	mu      sync.Mutex
	axes    map[input.Axis]float64
	keys    map[input.Control]bool
	readErr error

	workers utils.StoppableWorkers
}

// NewDevice opens the device at cfg.Path, reads its current axis and key state and starts
// reading events from it.
func NewDevice(name string, cfg *Config, logger logging.Logger) (*Device, error) {
	f, err := os.OpenFile(cfg.Path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", cfg.Path)
	}
	src := evdev.Open(f)
	d, err := newDevice(name, cfg, src, func() (keyBits, error) { return readKeyState(f) }, logger)
	if err != nil {
		return nil, multierr.Combine(err, src.Close())
	}
	return d, nil
}

func newDevice(
	name string,
	cfg *Config,
	src eventSource,
	keyState func() (keyBits, error),
	logger logging.Logger,
) (*Device, error) {
	if cfg.Grab {
		if err := src.Lock(); err != nil {
			return nil, errors.Wrapf(err, "grabbing %s", cfg.Path)
		}
	}
	d := &Device{
		Named:         resource.Named(name),
		logger:        logger,
		cfg:           cfg,
		src:           src,
		keyState:      keyState,
		codeToAxis:    map[uint16]input.Axis{},
		codeToControl: map[uint16]input.Control{},
		axes:          map[input.Axis]float64{},
		keys:          map[input.Control]bool{},
	}
	for axisName, axis := range cfg.Axes {
		d.codeToAxis[axis.Code] = input.Axis(axisName)
	}
	for _, codes := range []map[string]uint16{cfg.Buttons, cfg.Switches} {
		for controlName, code := range codes {
			d.codeToControl[code] = input.Control(controlName)
		}
	}
	if err := d.resync(); err != nil {
		if cfg.Grab {
			err = multierr.Combine(err, src.Unlock())
		}
		return nil, err
	}
	logger.Infow("opened input device", "path", cfg.Path, "name", src.Name())

	d.workers = utils.NewStoppableWorkers(d.readEvents)
	return d, nil
}

// resync replaces every axis and key state with what the device reports now. Axes the device
// does not report read as centered.
func (d *Device) resync() error {
	absolutes := d.src.AbsoluteTypes()
	axes := make(map[input.Axis]float64, len(d.codeToAxis))
	for code, axisName := range d.codeToAxis {
		axis, ok := absolutes[evdev.AbsoluteType(code)]
		if !ok {
			d.logger.Warnw("device does not report axis", "path", d.cfg.Path, "axis", axisName, "code", code)
		}
		axes[axisName] = d.cfg.Axes[string(axisName)].normalize(axis.Val)
	}

	keys := make(map[input.Control]bool, len(d.codeToControl))
	if len(d.codeToControl) > 0 {
		bits, err := d.keyState()
		if err != nil {
			return errors.Wrapf(err, "reading key state of %s", d.cfg.Path)
		}
		for code, control := range d.codeToControl {
			keys[control] = bits.pressed(code)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.axes = axes
	d.keys = keys
	return nil
}

// readEvents applies events until the poll channel closes. After a dropped-events marker the
// rest of that packet is ignored and the state is read back from the device.
func (d *Device) readEvents(ctx context.Context) {
	dropping := false
	for ev := range d.src.Poll(ctx) {
		if ctx.Err() != nil || d.failed() {
			continue
		}
		switch code := ev.Type.(type) {
		case evdev.SyncType:
			switch code {
			case evdev.SyncDropped:
				dropping = true
			case evdev.SyncReport:
				if dropping {
					dropping = false
					if err := d.resync(); err != nil {
						d.fail(err)
					}
				}
			case evdev.SyncDisconnect:
				d.fail(errors.New("device disconnected"))
			default:
			}
		case evdev.AbsoluteType:
			if !dropping {
				d.setAxis(uint16(code), ev.Value)
			}
		case evdev.KeyType:
			if !dropping {
				d.setKey(uint16(code), ev.Value)
			}
		}
	}
	if ctx.Err() == nil && !d.failed() {
		d.fail(errors.New("event stream closed"))
	}
}

func (d *Device) setAxis(code uint16, raw int32) {
	axisName, ok := d.codeToAxis[code]
	if !ok {
		return
	}
	normalized := d.cfg.Axes[string(axisName)].normalize(raw)
	d.mu.Lock()
	d.axes[axisName] = normalized
	d.mu.Unlock()
}

func (d *Device) setKey(code uint16, value int32) {
	control, ok := d.codeToControl[code]
	if !ok {
		return
	}
	// 0 up, 1 down, 2 autorepeat.
	d.mu.Lock()
	d.keys[control] = value != 0
	d.mu.Unlock()
}

func (d *Device) fail(err error) {
	d.logger.Errorw("input device read failed", "path", d.cfg.Path, "error", err)
	d.mu.Lock()
	d.readErr = errors.Wrapf(input.ErrDeviceUnavailable, "%s: %v", d.cfg.Path, err)
	d.mu.Unlock()
}

func (d *Device) failed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readErr != nil
}

// Controls returns the configured controls, sorted by name.
func (d *Device) Controls(ctx context.Context) ([]input.ControlSpec, error) {
	specs := d.cfg.controlSpecs()
	sort.Slice(specs, func(i, j int) bool { return specs[i].Control < specs[j].Control })
	return specs, nil
}

// ReadAxis returns the latest normalized value of `axis`.
func (d *Device) ReadAxis(ctx context.Context, axis input.Axis) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readErr != nil {
		return 0, d.readErr
	}
	value, ok := d.axes[axis]
	if !ok {
		return 0, errors.Errorf("%s has no axis %q", d.Name(), axis)
	}
	return value, nil
}

// PollControl returns whether the key mapped to `control` is down.
func (d *Device) PollControl(ctx context.Context, control input.Control) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readErr != nil {
		return false, d.readErr
	}
	state, ok := d.keys[control]
	if !ok {
		return false, errors.Errorf("%s has no control %q", d.Name(), control)
	}
	return state, nil
}

// Close stops the reader, releases the grab and closes the device. Stopping waits for the poll
// to notice the cancellation, which takes up to its one second read deadline.
func (d *Device) Close(ctx context.Context) error {
	d.workers.Stop()
	var errs error
	if d.cfg.Grab {
		errs = multierr.Combine(errs, d.src.Unlock())
	}
	return multierr.Combine(errs, d.src.Close())
}
