package core

import "golang.org/x/exp/constraints"

// Clamp limits x to [lo, hi]
func Clamp[T constraints.Ordered](x, lo, hi T) T {
	return max(lo, min(hi, x))
}

// Saturate clamps x to [0, 1]
func Saturate[T constraints.Float](x T) T {
	return Clamp(x, 0, 1)
}

// Lerp linearly interpolates between a and b
func Lerp[T constraints.Float](a, b, t T) T {
	return a + (b-a)*t
}

// DivCeil returns the ceiling of x/y for positive integers
func DivCeil[T constraints.Integer](x, y T) T {
	return (x + y - 1) / y
}
