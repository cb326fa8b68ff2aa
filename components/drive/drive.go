// Package drive defines tank-style drivetrains: independent left and right power.
package drive

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/teleop/resource"
)

// API is the resource API implemented by drive models.
const API = resource.API("drive")

// ErrBrakeModeUnsupported is returned by drives that cannot change their idle behavior.
var ErrBrakeModeUnsupported = errors.New("brake mode not supported")

// BrakeMode is what the motors do at zero power.
type BrakeMode int

// Brake modes.
const (
	Brake BrakeMode = iota
	Coast
)

func (m BrakeMode) String() string {
	if m == Coast {
		return "COAST"
	}
	return "BRAKE"
}

// Tank is a drivetrain with a left and a right side.
type Tank interface {
	resource.Resource

	// SetPower commands both sides. Values are in [-1, 1].
	SetPower(ctx context.Context, left, right float64) error
	// SetBrakeMode sets the zero-power behavior.
	SetBrakeMode(ctx context.Context, mode BrakeMode) error
	// SetSafety arms or disarms the drive's command watchdog. While armed the drive stops
	// itself when commands stop arriving.
	SetSafety(ctx context.Context, enabled bool) error
	// Stop sets both sides to zero power.
	Stop(ctx context.Context) error
}
