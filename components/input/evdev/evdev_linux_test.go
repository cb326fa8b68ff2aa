//go:build linux

package evdev

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/viamrobotics/evdev"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/teleop/components/input"
	"go.viam.com/teleop/logging"
)

// fakeSource replays events pushed on its channel and reports whatever state the test sets.
type fakeSource struct {
	events chan *evdev.EventEnvelope

	mu     sync.Mutex
	axes   map[evdev.AbsoluteType]evdev.Axis
	keys   keyBits
	locked bool
	closed bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		events: make(chan *evdev.EventEnvelope),
		axes:   map[evdev.AbsoluteType]evdev.Axis{},
		keys:   make(keyBits, keyStateBytes),
	}
}

func (s *fakeSource) Name() string { return "fake stick" }

func (s *fakeSource) Lock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = true
	return nil
}

func (s *fakeSource) Unlock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = false
	return nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) AbsoluteTypes() map[evdev.AbsoluteType]evdev.Axis {
	s.mu.Lock()
	defer s.mu.Unlock()
	axes := make(map[evdev.AbsoluteType]evdev.Axis, len(s.axes))
	for code, axis := range s.axes {
		axes[code] = axis
	}
	return axes
}

func (s *fakeSource) keyState() (keyBits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(keyBits{}, s.keys...), nil
}

func (s *fakeSource) setAxis(code evdev.AbsoluteType, value int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.axes[code] = evdev.Axis{Val: value, Max: 255}
}

func (s *fakeSource) setKey(code uint16, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if down {
		s.keys[code/8] |= 1 << (code % 8)
	} else {
		s.keys[code/8] &^= 1 << (code % 8)
	}
}

func (s *fakeSource) Poll(ctx context.Context) <-chan *evdev.EventEnvelope {
	out := make(chan *evdev.EventEnvelope)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-s.events:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (s *fakeSource) send(evType evdev.EventType, code uint16, value int32) {
	envelope := &evdev.EventEnvelope{Event: evdev.Event{Type: evType, Code: code, Value: value}}
	switch evType {
	case evdev.EventSync:
		envelope.Type = evdev.SyncType(code)
	case evdev.EventKey:
		envelope.Type = evdev.KeyType(code)
	case evdev.EventAbsolute:
		envelope.Type = evdev.AbsoluteType(code)
	default:
	}
	s.events <- envelope
}

func stickConfig() *Config {
	return &Config{
		Path:     "/dev/input/event3",
		Grab:     true,
		Axes:     map[string]*AxisConfig{"y": {Code: 1, Min: 0, Max: 255, Invert: true}},
		Buttons:  map[string]uint16{"TRIGGER": 288},
		Switches: map[string]uint16{"ROCKER_LEFT_BACK": 289},
	}
}

func axisIs(ctx context.Context, d *Device, want float64) func(tb testing.TB) {
	return func(tb testing.TB) {
		tb.Helper()
		value, err := d.ReadAxis(ctx, input.AxisY)
		test.That(tb, err, test.ShouldBeNil)
		test.That(tb, value, test.ShouldAlmostEqual, want)
	}
}

func controlIs(ctx context.Context, d *Device, control input.Control, want bool) func(tb testing.TB) {
	return func(tb testing.TB) {
		tb.Helper()
		state, err := d.PollControl(ctx, control)
		test.That(tb, err, test.ShouldBeNil)
		test.That(tb, state, test.ShouldEqual, want)
	}
}

func TestOpenSeedsCurrentState(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.setAxis(evdev.AbsoluteY, 0)
	src.setKey(289, true)

	d, err := newDevice("left_stick", stickConfig(), src, src.keyState, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, src.locked, test.ShouldBeTrue)

	// A rocker already flipped on when the device opens reads as on before any event arrives.
	controlIs(ctx, d, input.RockerLeftBack, true)(t)
	controlIs(ctx, d, input.Trigger, false)(t)
	axisIs(ctx, d, 1)(t)

	_, err = d.ReadAxis(ctx, input.AxisX)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = d.PollControl(ctx, input.TopLeft)
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, d.Close(ctx), test.ShouldBeNil)
	test.That(t, src.locked, test.ShouldBeFalse)
	test.That(t, src.closed, test.ShouldBeTrue)
}

func TestOpenWithUnreportedAxis(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	cfg := stickConfig()
	cfg.Axes["y"] = &AxisConfig{Code: 1, Min: -100, Max: 100}

	d, err := newDevice("left_stick", cfg, src, src.keyState, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer func() { test.That(t, d.Close(ctx), test.ShouldBeNil) }()
	axisIs(ctx, d, 0)(t)
}

func TestOpenKeyStateFailure(t *testing.T) {
	src := newFakeSource()
	failing := func() (keyBits, error) { return nil, errors.New("ioctl failed") }
	_, err := newDevice("left_stick", stickConfig(), src, failing, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "ioctl failed")
	test.That(t, src.locked, test.ShouldBeFalse)
}

func TestEventsUpdateState(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.setAxis(evdev.AbsoluteY, 128)

	d, err := newDevice("left_stick", stickConfig(), src, src.keyState, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer func() { test.That(t, d.Close(ctx), test.ShouldBeNil) }()

	src.send(evdev.EventAbsolute, 1, 0)
	src.send(evdev.EventSync, uint16(evdev.SyncReport), 0)
	testutils.WaitForAssertion(t, axisIs(ctx, d, 1))

	// Unmapped codes are ignored.
	src.send(evdev.EventAbsolute, 7, 100)
	src.send(evdev.EventKey, 300, 1)

	src.send(evdev.EventKey, 288, 1)
	testutils.WaitForAssertion(t, controlIs(ctx, d, input.Trigger, true))

	src.send(evdev.EventKey, 288, 2)
	testutils.WaitForAssertion(t, controlIs(ctx, d, input.Trigger, true))

	src.send(evdev.EventKey, 288, 0)
	testutils.WaitForAssertion(t, controlIs(ctx, d, input.Trigger, false))

	src.send(evdev.EventKey, 289, 1)
	testutils.WaitForAssertion(t, controlIs(ctx, d, input.RockerLeftBack, true))

	controls, err := d.Controls(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, controls, test.ShouldResemble, []input.ControlSpec{
		{Control: input.RockerLeftBack, Kind: input.KindSwitch},
		{Control: input.Trigger, Kind: input.KindButton},
	})
}

func TestDroppedEventsResync(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.setAxis(evdev.AbsoluteY, 255)

	d, err := newDevice("left_stick", stickConfig(), src, src.keyState, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer func() { test.That(t, d.Close(ctx), test.ShouldBeNil) }()
	axisIs(ctx, d, -1)(t)

	src.setAxis(evdev.AbsoluteY, 0)
	src.setKey(288, true)
	src.send(evdev.EventSync, uint16(evdev.SyncDropped), 0)
	// Events after the drop marker are stale until the next report.
	src.send(evdev.EventAbsolute, 1, 128)
	src.send(evdev.EventSync, uint16(evdev.SyncReport), 0)

	testutils.WaitForAssertion(t, axisIs(ctx, d, 1))
	testutils.WaitForAssertion(t, controlIs(ctx, d, input.Trigger, true))
}

func TestDisconnectFailsReads(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()

	d, err := newDevice("left_stick", stickConfig(), src, src.keyState, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer func() { test.That(t, d.Close(ctx), test.ShouldBeNil) }()

	src.send(evdev.EventSync, uint16(evdev.SyncDisconnect), 0)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		_, err := d.ReadAxis(ctx, input.AxisY)
		test.That(tb, errors.Is(err, input.ErrDeviceUnavailable), test.ShouldBeTrue)
		_, err = d.PollControl(ctx, input.Trigger)
		test.That(tb, errors.Is(err, input.ErrDeviceUnavailable), test.ShouldBeTrue)
	})
}

func TestClosedStreamFailsReads(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()

	d, err := newDevice("left_stick", stickConfig(), src, src.keyState, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer func() { test.That(t, d.Close(ctx), test.ShouldBeNil) }()

	close(src.events)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		_, err := d.ReadAxis(ctx, input.AxisY)
		test.That(tb, errors.Is(err, input.ErrDeviceUnavailable), test.ShouldBeTrue)
	})
}

func TestKeyBits(t *testing.T) {
	bits := make(keyBits, keyStateBytes)
	bits[288/8] |= 1 << (288 % 8)
	test.That(t, bits.pressed(288), test.ShouldBeTrue)
	test.That(t, bits.pressed(289), test.ShouldBeFalse)
	test.That(t, bits.pressed(math.MaxUint16), test.ShouldBeFalse)
	test.That(t, eviocgkey(keyStateBytes), test.ShouldEqual, uintptr(0x80604518))
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := NewDevice("left_stick", &Config{Path: "/dev/input/does-not-exist"}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "does-not-exist")
}
