package utils

import "math"

// Clamp limits `value` to [min, max]. NaN maps to zero.
func Clamp(value, min, max float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	switch {
	case value < min:
		return min
	case value > max:
		return max
	default:
		return value
	}
}

// ClampUnit limits `value` to [-1, 1].
func ClampUnit(value float64) float64 {
	return Clamp(value, -1, 1)
}

// Sign returns -1, 0 or 1 following the sign of `value`.
func Sign(value float64) float64 {
	switch {
	case value > 0:
		return 1
	case value < 0:
		return -1
	default:
		return 0
	}
}
