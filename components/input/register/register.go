// Package register registers all input device models.
package register

import (
	// for inputs.
	_ "go.viam.com/teleop/components/input/evdev"
	_ "go.viam.com/teleop/components/input/fake"
)
