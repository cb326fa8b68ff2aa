// Package gpioline drives single GPIO output lines through periph.io.
package gpioline

import (
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Output is a digital output line.
type Output interface {
	Set(high bool) error
}

var (
	initOnce sync.Once
	errInit  error
)

// Line is a periph GPIO pin used as an output.
type Line struct {
	name string
	pin  gpio.PinIO
}

// Open initializes the periph host drivers once and looks up the pin by name, e.g. "GPIO17".
func Open(name string) (*Line, error) {
	initOnce.Do(func() {
		_, errInit = host.Init()
	})
	if errInit != nil {
		return nil, errors.Wrap(errInit, "initializing periph host drivers")
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, errors.Errorf("no GPIO pin named %q", name)
	}
	return &Line{name: name, pin: pin}, nil
}

// Name returns the pin name.
func (l *Line) Name() string {
	return l.name
}

// Set drives the line high or low.
func (l *Line) Set(high bool) error {
	level := gpio.Low
	if high {
		level = gpio.High
	}
	if err := l.pin.Out(level); err != nil {
		return errors.Wrapf(err, "setting %s to %s", l.name, level)
	}
	return nil
}

// Get reads the current level of the line.
func (l *Line) Get() bool {
	return l.pin.Read() == gpio.High
}
