// Package valve defines double-acting pneumatic valves: one valve body, two solenoids, two
// positions.
package valve

import (
	"context"

	"go.viam.com/teleop/resource"
)

// API is the resource API implemented by valve models.
const API = resource.API("valve")

// Position is the last commanded position of a double-acting valve.
type Position int

// Positions.
const (
	PositionUnknown Position = iota
	PositionA
	PositionB
)

func (p Position) String() string {
	switch p {
	case PositionA:
		return "A"
	case PositionB:
		return "B"
	case PositionUnknown:
	}
	return "unknown"
}

// DoubleActing is a two-position valve. SetA and SetB are idempotent.
type DoubleActing interface {
	resource.Resource

	SetA(ctx context.Context) error
	SetB(ctx context.Context) error
	Position(ctx context.Context) (Position, error)
}
