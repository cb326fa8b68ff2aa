// Package shaping maps raw joystick deflection in [-1, 1] to drive power in [-1, 1].
//
// Every curve is odd (shape(-x) == -shape(x)), maps 0 to exactly 0, and never returns a value
// outside [-1, 1]. Inputs outside [-1, 1] are clamped before shaping.
package shaping

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/teleop/utils"
)

// A Curve names a shaping function.
type Curve string

// The known curves.
const (
	CurveLinearOffset = Curve("linear_offset")
	CurveLogarithmic  = Curve("logarithmic")
	CurveNone         = Curve("none")
)

// Curves lists every known curve.
var Curves = []Curve{CurveLinearOffset, CurveLogarithmic, CurveNone}

const (
	// LinearOffsetDivisor scales the deflection before the offset is added.
	LinearOffsetDivisor = 1.5
	// LinearOffsetMinimum is the magnitude of the output for any non-zero input, enough to
	// overcome drivetrain static friction.
	LinearOffsetMinimum = 0.4
	// LogBase is the base of the logarithmic curve; with base 2 an input of 1 maps to exactly 1.
	LogBase = 2.0
)

// Func shapes a single axis value.
type Func func(x float64) float64

// FromCurve returns the shaping function for `curve`. The empty curve is the logarithmic one.
func FromCurve(curve Curve) (Func, error) {
	switch curve {
	case CurveLinearOffset:
		return LinearOffset, nil
	case CurveLogarithmic, "":
		return Logarithmic, nil
	case CurveNone:
		return None, nil
	default:
		return nil, errors.Errorf("unknown shaping curve %q (want one of %v)", curve, Curves)
	}
}

// LinearOffset returns x/1.5 pushed away from zero by 0.4. The jump at zero is intended: any
// deflection at all produces at least 0.4 power.
func LinearOffset(x float64) float64 {
	x = utils.ClampUnit(x)
	if x == 0 {
		return 0
	}
	return utils.ClampUnit(x/LinearOffsetDivisor + utils.Sign(x)*LinearOffsetMinimum)
}

// Logarithmic returns sign(x) * log2(|x| + 1). It is continuous, 0 at 0 and 1 at 1.
func Logarithmic(x float64) float64 {
	x = utils.ClampUnit(x)
	if x == 0 {
		return 0
	}
	return utils.ClampUnit(utils.Sign(x) * math.Log(math.Abs(x)+1) / math.Log(LogBase))
}

// None passes the clamped value through.
func None(x float64) float64 {
	return utils.ClampUnit(x)
}
