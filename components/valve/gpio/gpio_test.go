package gpio

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/teleop/components/valve"
	"go.viam.com/teleop/logging"
)

type recordingLine struct {
	mu     sync.Mutex
	levels []bool
	err    error
}

func (l *recordingLine) Set(high bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.levels = append(l.levels, high)
	return nil
}

func (l *recordingLine) last() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.levels[len(l.levels)-1]
}

func TestValve(t *testing.T) {
	ctx := context.Background()
	a, b := &recordingLine{}, &recordingLine{}
	v, err := NewValve("shifter", a, b, 0, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.last(), test.ShouldBeFalse)
	test.That(t, b.last(), test.ShouldBeFalse)

	pos, err := v.Position(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldEqual, valve.PositionUnknown)

	test.That(t, v.SetB(ctx), test.ShouldBeNil)
	test.That(t, a.last(), test.ShouldBeFalse)
	test.That(t, b.last(), test.ShouldBeTrue)
	pos, err = v.Position(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldEqual, valve.PositionB)

	test.That(t, v.SetA(ctx), test.ShouldBeNil)
	test.That(t, a.last(), test.ShouldBeTrue)
	test.That(t, b.last(), test.ShouldBeFalse)

	test.That(t, v.Close(ctx), test.ShouldBeNil)
	test.That(t, a.last(), test.ShouldBeFalse)
	test.That(t, b.last(), test.ShouldBeFalse)
}

func (l *recordingLine) history() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]bool{}, l.levels...)
}

func TestValvePulse(t *testing.T) {
	ctx := context.Background()
	a, b := &recordingLine{}, &recordingLine{}
	clk := clock.NewMock()
	v, err := newValve("pto", a, b, 50*time.Millisecond, clk, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	// The command returns with the solenoid still energized.
	test.That(t, v.SetA(ctx), test.ShouldBeNil)
	test.That(t, a.history(), test.ShouldResemble, []bool{false, true})
	pos, err := v.Position(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldEqual, valve.PositionA)

	clk.Add(50 * time.Millisecond)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, a.history(), test.ShouldResemble, []bool{false, true, false})
	})
}

func TestValvePulseReplaced(t *testing.T) {
	ctx := context.Background()
	a, b := &recordingLine{}, &recordingLine{}
	clk := clock.NewMock()
	v, err := newValve("pto", a, b, 50*time.Millisecond, clk, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, v.SetA(ctx), test.ShouldBeNil)
	clk.Add(30 * time.Millisecond)
	// Re-asserting restarts the pulse; the first timer must not cut the second pulse short.
	test.That(t, v.SetA(ctx), test.ShouldBeNil)
	clk.Add(30 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	test.That(t, a.last(), test.ShouldBeTrue)

	clk.Add(20 * time.Millisecond)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, a.last(), test.ShouldBeFalse)
	})

	// Closing during a pulse de-energizes at once and the timer does nothing afterwards.
	test.That(t, v.SetB(ctx), test.ShouldBeNil)
	test.That(t, v.Close(ctx), test.ShouldBeNil)
	n := len(b.history())
	clk.Add(time.Second)
	time.Sleep(10 * time.Millisecond)
	test.That(t, b.history(), test.ShouldHaveLength, n)
	test.That(t, b.last(), test.ShouldBeFalse)
}

func TestValveFault(t *testing.T) {
	ctx := context.Background()
	a, b := &recordingLine{}, &recordingLine{}
	v, err := NewValve("shifter", a, b, 0, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	a.err = errors.New("line busy")
	test.That(t, v.SetA(ctx), test.ShouldNotBeNil)
	pos, err := v.Position(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldEqual, valve.PositionUnknown)

	_, err = NewValve("broken", a, b, 0, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConfigValidate(t *testing.T) {
	test.That(t, (&Config{PinB: "GPIO27"}).Validate("actuators.0.attributes"), test.ShouldNotBeNil)
	test.That(t, (&Config{PinA: "GPIO17"}).Validate("actuators.0.attributes"), test.ShouldNotBeNil)
	test.That(t, (&Config{PinA: "GPIO17", PinB: "GPIO17"}).Validate("actuators.0.attributes"), test.ShouldNotBeNil)
	test.That(t, (&Config{PinA: "GPIO17", PinB: "GPIO27", PulseMs: -1}).Validate("actuators.0.attributes"), test.ShouldNotBeNil)
	test.That(t, (&Config{PinA: "GPIO17", PinB: "GPIO27", PulseMs: MaxPulseMs + 1}).Validate("actuators.0.attributes"),
		test.ShouldNotBeNil)
	test.That(t, (&Config{PinA: "GPIO17", PinB: "GPIO27", PulseMs: 50}).Validate("actuators.0.attributes"), test.ShouldBeNil)
}
