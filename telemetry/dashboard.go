// Package telemetry keeps the operator dashboard: named values published by the drive-mode
// controller and the control loop, readable as a snapshot or rendered as a table.
package telemetry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Dashboard flag names.
const (
	FlagLow   = "Low"
	FlagHigh  = "High"
	FlagPTO   = "PTO"
	FlagBrake = "Brake"
)

// Publisher accepts dashboard values.
type Publisher interface {
	PutBoolean(key string, value bool)
	PutNumber(key string, value float64)
	PutString(key, value string)
}

// Dashboard is an in-memory Publisher. The zero value is not usable; use NewDashboard.
type Dashboard struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewDashboard returns an empty dashboard.
func NewDashboard() *Dashboard {
	return &Dashboard{values: map[string]interface{}{}}
}

// PutBoolean sets a boolean value.
func (d *Dashboard) PutBoolean(key string, value bool) {
	d.put(key, value)
}

// PutNumber sets a numeric value.
func (d *Dashboard) PutNumber(key string, value float64) {
	d.put(key, value)
}

// PutString sets a string value.
func (d *Dashboard) PutString(key, value string) {
	d.put(key, value)
}

func (d *Dashboard) put(key string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[key] = value
}

// Boolean returns the boolean at `key` and whether it was set as a boolean.
func (d *Dashboard) Boolean(key string) (bool, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.values[key].(bool)
	return b, ok
}

// Number returns the number at `key` and whether it was set as a number.
func (d *Dashboard) Number(key string) (float64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.values[key].(float64)
	return n, ok
}

// Snapshot returns a copy of every value.
func (d *Dashboard) Snapshot() map[string]interface{} {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snapshot := make(map[string]interface{}, len(d.values))
	for k, v := range d.values {
		snapshot[k] = v
	}
	return snapshot
}

// String renders the dashboard as a table sorted by key.
func (d *Dashboard) String() string {
	snapshot := d.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Key", "Value"})
	for _, k := range keys {
		var value string
		switch v := snapshot[k].(type) {
		case float64:
			value = fmt.Sprintf("%.4f", v)
		default:
			value = fmt.Sprint(v)
		}
		t.AppendRow(table.Row{k, value})
	}
	return t.Render()
}

// Discard is a Publisher that drops everything.
var Discard Publisher = discard{}

type discard struct{}

func (discard) PutBoolean(string, bool)   {}
func (discard) PutNumber(string, float64) {}
func (discard) PutString(string, string)  {}
