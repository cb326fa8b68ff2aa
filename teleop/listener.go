package teleop

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"go.viam.com/teleop/components/input"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/utils"
)

// EventHandler receives the events of a listener, one at a time and in detection order.
type EventHandler func(ctx context.Context, event input.ControlEvent)

// Listener polls the controls of one device on its own schedule and turns state changes into
// events. Buttons toggle their latched state on every press; switches latch their position.
type Listener struct {
	device   input.DeviceID
	source   input.ControlSource
	controls []input.ControlSpec
	period   time.Duration
	clk      clock.Clock
	handle   EventHandler
	healthy  func()
	logger   logging.Logger
	faults   rate.Sometimes

	mu      sync.Mutex
	primed  bool
	states  map[input.Control]bool
	latched map[input.Control]bool

	// dispatchMu is held for reading while an event or heartbeat is delivered and for writing
	// while Stop marks the listener stopped.
	dispatchMu sync.RWMutex
	stopped    atomic.Bool
	workers    utils.StoppableWorkers
}

// NewListener returns a listener for `device`. It does nothing until Start.
func NewListener(
	device input.DeviceID,
	source input.ControlSource,
	controls []input.ControlSpec,
	period time.Duration,
	clk clock.Clock,
	handle EventHandler,
	logger logging.Logger,
) *Listener {
	if clk == nil {
		clk = clock.New()
	}
	return &Listener{
		device:   device,
		source:   source,
		controls: controls,
		period:   period,
		clk:      clk,
		handle:   handle,
		logger:   logger,
		faults:   rate.Sometimes{Interval: time.Second},
		states:   make(map[input.Control]bool, len(controls)),
		latched:  make(map[input.Control]bool, len(controls)),
	}
}

// OnHealthyPoll sets a function called after every poll in which all controls were read. It must
// be set before Start.
func (l *Listener) OnHealthyPoll(f func()) {
	l.healthy = f
}

// Device returns the device this listener polls.
func (l *Listener) Device() input.DeviceID {
	return l.device
}

// Prime reads every control once to establish the starting state without emitting events. A
// switch starts latched to its position and a button starts unlatched.
func (l *Listener) Prime(ctx context.Context) error {
	if l.period <= 0 {
		return errors.Errorf("listener %s: poll period must be positive, got %v", l.device, l.period)
	}
	states := make(map[input.Control]bool, len(l.controls))
	for _, spec := range l.controls {
		state, err := l.source.PollControl(ctx, l.device, spec.Control)
		if err != nil {
			return errors.Wrapf(err, "listener %s: reading %s", l.device, spec.Control)
		}
		states[spec.Control] = state
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, spec := range l.controls {
		l.states[spec.Control] = states[spec.Control]
		l.latched[spec.Control] = spec.Kind == input.KindSwitch && states[spec.Control]
	}
	l.primed = true
	return nil
}

// Start primes the listener if needed and begins polling.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	primed := l.primed
	l.mu.Unlock()
	if !primed {
		if err := l.Prime(ctx); err != nil {
			return err
		}
	}
	l.workers = utils.NewStoppableWorkers(utils.Periodic(l.clk, l.period, func(ctx context.Context) bool {
		l.Poll(ctx)
		return true
	}))
	l.logger.Debugw("listener started", "device", l.device, "period", l.period, "controls", len(l.controls))
	return nil
}

// Poll reads every control once and handles the resulting events. A control that fails to read
// keeps its previous state.
func (l *Listener) Poll(ctx context.Context) {
	healthy := true
	for _, spec := range l.controls {
		if l.stopped.Load() {
			return
		}
		state, err := l.source.PollControl(ctx, l.device, spec.Control)
		if err != nil {
			healthy = false
			l.faults.Do(func() {
				l.logger.Warnw("cannot read control", "device", l.device, "control", spec.Control, "error", err)
			})
			continue
		}
		event, ok := l.observe(spec, state)
		if !ok {
			continue
		}
		l.dispatch(func() {
			l.logger.Debugw("event", "device", event.Device, "control", event.Control, "type", event.Type, "latched", event.Latched)
			l.handle(ctx, event)
		})
	}
	if healthy && l.healthy != nil {
		l.dispatch(l.healthy)
	}
}

// dispatch runs `f` unless the listener has been stopped.
func (l *Listener) dispatch(f func()) {
	l.dispatchMu.RLock()
	defer l.dispatchMu.RUnlock()
	if l.stopped.Load() {
		return
	}
	f()
}

// observe records `state` for the control and returns the event it produces, if any.
func (l *Listener) observe(spec input.ControlSpec, state bool) (input.ControlEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.states[spec.Control]
	if prev == state {
		return input.ControlEvent{}, false
	}
	l.states[spec.Control] = state

	event := input.ControlEvent{
		Time:    l.clk.Now(),
		Device:  l.device,
		Control: spec.Control,
	}
	switch spec.Kind {
	case input.KindSwitch:
		l.latched[spec.Control] = state
		event.Type = input.SwitchChanged
	case input.KindButton:
		if state {
			l.latched[spec.Control] = !l.latched[spec.Control]
			event.Type = input.ButtonDown
		} else {
			event.Type = input.ButtonUp
		}
	default:
		return input.ControlEvent{}, false
	}
	event.Latched = l.latched[spec.Control]
	return event, true
}

// Latched returns the latched state of a control and whether the listener knows the control.
func (l *Listener) Latched(control input.Control) (bool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	latched, ok := l.latched[control]
	return latched, ok
}

// Stop stops polling. It waits for an event already being handled; no new event is handled after
// Stop returns. Stop must not be called from an event handler.
func (l *Listener) Stop() {
	l.dispatchMu.Lock()
	l.stopped.Store(true)
	l.dispatchMu.Unlock()
	if l.workers != nil {
		l.workers.Stop()
	}
}
