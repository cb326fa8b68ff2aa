// Package register registers every collaborator model.
package register

import (
	// register models.
	_ "go.viam.com/teleop/components/camera"
	_ "go.viam.com/teleop/components/drive/fake"
	_ "go.viam.com/teleop/components/drive/sabertooth"
	_ "go.viam.com/teleop/components/heading/fake"
	_ "go.viam.com/teleop/components/input/register"
	_ "go.viam.com/teleop/components/valve/fake"
	_ "go.viam.com/teleop/components/valve/gpio"
)
