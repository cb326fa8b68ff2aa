package input

import (
	"context"
	"math"
	"sort"
	"sync"

	"go.uber.org/multierr"

	"go.viam.com/teleop/utils"
)

// ApplyDeadzone returns 0 when |x| is below `deadzone`. Values outside [-1, 1] are clamped first.
func ApplyDeadzone(x, deadzone float64) float64 {
	x = utils.ClampUnit(x)
	if math.Abs(x) < deadzone {
		return 0
	}
	return x
}

// DeviceSet groups the session's devices and implements AxisSource and ControlSource over them.
// Axis readings are clamped to [-1, 1] and passed through the device's dead zone.
type DeviceSet struct {
	mu        sync.RWMutex
	devices   map[DeviceID]Device
	deadzones map[DeviceID]float64
}

// NewDeviceSet returns an empty set.
func NewDeviceSet() *DeviceSet {
	return &DeviceSet{
		devices:   map[DeviceID]Device{},
		deadzones: map[DeviceID]float64{},
	}
}

// Add places `dev` in the set under `id`, replacing any previous device.
func (ds *DeviceSet) Add(id DeviceID, dev Device, deadzone float64) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.devices[id] = dev
	ds.deadzones[id] = deadzone
}

// Device returns the device with the given id.
func (ds *DeviceSet) Device(id DeviceID) (Device, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return FromDevices(ds.devices, id)
}

// IDs lists the ids in the set, sorted.
func (ds *DeviceSet) IDs() []DeviceID {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return sortedIDs(ds.devices)
}

// ReadAxis reads `axis` of `device`, clamped and dead-zoned.
func (ds *DeviceSet) ReadAxis(ctx context.Context, device DeviceID, axis Axis) (float64, error) {
	dev, err := ds.Device(device)
	if err != nil {
		return 0, err
	}
	ds.mu.RLock()
	deadzone := ds.deadzones[device]
	ds.mu.RUnlock()

	value, err := dev.ReadAxis(ctx, axis)
	if err != nil {
		return 0, err
	}
	return ApplyDeadzone(value, deadzone), nil
}

// PollControl reads the physical state of `control` on `device`.
func (ds *DeviceSet) PollControl(ctx context.Context, device DeviceID, control Control) (bool, error) {
	dev, err := ds.Device(device)
	if err != nil {
		return false, err
	}
	return dev.PollControl(ctx, control)
}

// Close closes every device in the set.
func (ds *DeviceSet) Close(ctx context.Context) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	var errs error
	for _, id := range sortedIDs(ds.devices) {
		errs = multierr.Combine(errs, ds.devices[id].Close(ctx))
	}
	ds.devices = map[DeviceID]Device{}
	return errs
}

func sortedIDs(devices map[DeviceID]Device) []DeviceID {
	ids := make([]DeviceID, 0, len(devices))
	for id := range devices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
