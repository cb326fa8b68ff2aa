package teleop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/teleop/components/input"
	fakeinput "go.viam.com/teleop/components/input/fake"
	"go.viam.com/teleop/logging"
)

// recorder collects handled events.
type recorder struct {
	mu     sync.Mutex
	events []input.ControlEvent
}

func (r *recorder) handle(ctx context.Context, event input.ControlEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// summary returns the events without timestamps.
func (r *recorder) summary() []input.ControlEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]input.ControlEvent, 0, len(r.events))
	for _, e := range r.events {
		e.Time = time.Time{}
		out = append(out, e)
	}
	return out
}

func newPanelListener(t *testing.T, initial map[string]bool) (*Listener, *fakeinput.Device, *recorder, *clock.Mock) {
	t.Helper()
	logger := logging.NewTestLogger(t)
	panel := fakeinput.NewDevice("panel", &fakeinput.Config{
		Buttons:  []input.Control{input.ButtonBlue},
		Switches: []input.Control{input.RockerLeftBack},
		Initial:  initial,
	}, logger)
	devices := input.NewDeviceSet()
	devices.Add(input.LaunchPanel, panel, 0)
	controls, err := panel.Controls(context.Background())
	test.That(t, err, test.ShouldBeNil)

	rec := &recorder{}
	clk := clock.NewMock()
	l := NewListener(input.LaunchPanel, devices, controls, 10*time.Millisecond, clk, rec.handle, logger)
	return l, panel, rec, clk
}

func TestListenerPrime(t *testing.T) {
	l, _, rec, _ := newPanelListener(t, map[string]bool{
		string(input.ButtonBlue):     true,
		string(input.RockerLeftBack): true,
	})
	_, ok := l.Latched(input.RockerLeftBack)
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, l.Prime(context.Background()), test.ShouldBeNil)
	// A held button does not start latched; a switch starts at its position.
	latched, ok := l.Latched(input.ButtonBlue)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, latched, test.ShouldBeFalse)
	latched, ok = l.Latched(input.RockerLeftBack)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, latched, test.ShouldBeTrue)
	test.That(t, rec.summary(), test.ShouldBeEmpty)
}

func TestListenerPrimeFailure(t *testing.T) {
	l, panel, _, _ := newPanelListener(t, nil)
	panel.SetReadError(input.ErrDeviceUnavailable)
	err := l.Prime(context.Background())
	test.That(t, errors.Is(err, input.ErrDeviceUnavailable), test.ShouldBeTrue)

	missing := NewListener(input.LeftStick, input.NewDeviceSet(),
		[]input.ControlSpec{{Control: input.Trigger, Kind: input.KindButton}},
		time.Millisecond, nil, (&recorder{}).handle, logging.NewTestLogger(t))
	err = missing.Start(context.Background())
	test.That(t, errors.Is(err, input.ErrDeviceUnavailable), test.ShouldBeTrue)

	bad := NewListener(input.LeftStick, input.NewDeviceSet(), nil, 0, nil, (&recorder{}).handle, logging.NewTestLogger(t))
	test.That(t, bad.Prime(context.Background()), test.ShouldNotBeNil)
}

func TestListenerEdges(t *testing.T) {
	ctx := context.Background()
	l, panel, rec, _ := newPanelListener(t, nil)
	test.That(t, l.Prime(ctx), test.ShouldBeNil)

	l.Poll(ctx)
	test.That(t, rec.summary(), test.ShouldBeEmpty)

	panel.Press(input.ButtonBlue)
	l.Poll(ctx)
	l.Poll(ctx)
	panel.Release(input.ButtonBlue)
	l.Poll(ctx)
	panel.Press(input.ButtonBlue)
	l.Poll(ctx)
	panel.SetControl(input.RockerLeftBack, true)
	l.Poll(ctx)
	panel.SetControl(input.RockerLeftBack, false)
	l.Poll(ctx)

	panelEvent := func(control input.Control, typ input.EventType, latched bool) input.ControlEvent {
		return input.ControlEvent{Device: input.LaunchPanel, Control: control, Type: typ, Latched: latched}
	}
	test.That(t, rec.summary(), test.ShouldResemble, []input.ControlEvent{
		panelEvent(input.ButtonBlue, input.ButtonDown, true),
		panelEvent(input.ButtonBlue, input.ButtonUp, true),
		panelEvent(input.ButtonBlue, input.ButtonDown, false),
		panelEvent(input.RockerLeftBack, input.SwitchChanged, true),
		panelEvent(input.RockerLeftBack, input.SwitchChanged, false),
	})
}

func TestListenerReadErrorKeepsState(t *testing.T) {
	ctx := context.Background()
	logger, logs := logging.NewObservedTestLogger(t)
	panel := fakeinput.NewDevice("panel", &fakeinput.Config{Buttons: []input.Control{input.ButtonBlue}}, logger)
	devices := input.NewDeviceSet()
	devices.Add(input.LaunchPanel, panel, 0)
	rec := &recorder{}
	l := NewListener(input.LaunchPanel, devices,
		[]input.ControlSpec{{Control: input.ButtonBlue, Kind: input.KindButton}},
		time.Millisecond, nil, rec.handle, logger)
	var healthy int
	l.OnHealthyPoll(func() { healthy++ })
	test.That(t, l.Prime(ctx), test.ShouldBeNil)

	panel.Press(input.ButtonBlue)
	panel.SetReadError(errors.New("usb reset"))
	l.Poll(ctx)
	l.Poll(ctx)
	test.That(t, rec.summary(), test.ShouldBeEmpty)
	test.That(t, logs.FilterMessage("cannot read control").Len(), test.ShouldEqual, 1)
	test.That(t, healthy, test.ShouldEqual, 0)

	panel.SetReadError(nil)
	l.Poll(ctx)
	test.That(t, len(rec.summary()), test.ShouldEqual, 1)
	test.That(t, healthy, test.ShouldEqual, 1)
}

func TestListenerStartStop(t *testing.T) {
	l, panel, rec, clk := newPanelListener(t, nil)
	test.That(t, l.Start(context.Background()), test.ShouldBeNil)

	panel.Press(input.ButtonBlue)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		clk.Add(10 * time.Millisecond)
		test.That(tb, len(rec.summary()), test.ShouldEqual, 1)
	})
	latched, _ := l.Latched(input.ButtonBlue)
	test.That(t, latched, test.ShouldBeTrue)

	l.Stop()
	panel.Release(input.ButtonBlue)
	clk.Add(50 * time.Millisecond)
	l.Poll(context.Background())
	test.That(t, len(rec.summary()), test.ShouldEqual, 1)
}

func TestListenerStopWaitsForHandler(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	panel := fakeinput.NewDevice("panel", &fakeinput.Config{
		Buttons: []input.Control{input.ButtonBlue, input.ButtonYellow},
	}, logger)
	devices := input.NewDeviceSet()
	devices.Add(input.LaunchPanel, panel, 0)
	controls, err := panel.Controls(ctx)
	test.That(t, err, test.ShouldBeNil)

	entered := make(chan struct{})
	release := make(chan struct{})
	var handled int
	var handledMu sync.Mutex
	handle := func(ctx context.Context, event input.ControlEvent) {
		handledMu.Lock()
		handled++
		handledMu.Unlock()
		if event.Control == controls[0].Control {
			close(entered)
			<-release
		}
	}
	l := NewListener(input.LaunchPanel, devices, controls, time.Millisecond, clock.NewMock(), handle, logger)
	test.That(t, l.Prime(ctx), test.ShouldBeNil)

	panel.Press(input.ButtonBlue)
	panel.Press(input.ButtonYellow)
	polled := make(chan struct{})
	go func() {
		defer close(polled)
		l.Poll(ctx)
	}()
	<-entered

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		l.Stop()
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while an event was being handled")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-stopped
	<-polled
	handledMu.Lock()
	defer handledMu.Unlock()
	test.That(t, handled, test.ShouldEqual, 1)
}
