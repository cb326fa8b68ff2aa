// Package heading defines the robot's heading reference (a gyro or IMU yaw).
package heading

import (
	"context"

	"go.viam.com/teleop/resource"
)

// API is the resource API implemented by heading models.
const API = resource.API("heading")

// Reference reports the robot's heading relative to the last reset.
type Reference interface {
	resource.Resource

	// ResetHeading makes the current heading zero.
	ResetHeading(ctx context.Context) error
	// Heading returns degrees clockwise from the last reset.
	Heading(ctx context.Context) (float64, error)
}
