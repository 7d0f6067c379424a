package core

import (
	"math"
	"math/rand"
	randv2 "math/rand/v2"
)

// Sampler provides random sampling for rendering algorithms
// Can be swapped out for deterministic testing or different sampling patterns
type Sampler interface {
	Get1D() float64
	Get2D() Vec2
	Get3D() Vec3
}

// RandomSampler wraps a standard Go random generator
type RandomSampler struct {
	random *rand.Rand
}

// NewRandomSampler creates a sampler from a Go random generator
func NewRandomSampler(random *rand.Rand) *RandomSampler {
	return &RandomSampler{random: random}
}

// Get1D returns a random float64 in [0, 1)
func (r *RandomSampler) Get1D() float64 {
	return r.random.Float64()
}

// Get2D returns two random float64 values in [0, 1)
func (r *RandomSampler) Get2D() Vec2 {
	return NewVec2(r.random.Float64(), r.random.Float64())
}

// Get3D returns three random float64 values in [0, 1)
func (r *RandomSampler) Get3D() Vec3 {
	return NewVec3(r.random.Float64(), r.random.Float64(), r.random.Float64())
}

// PixelSampler is a per-pixel deterministic sampler seeded from a frame seed and pixel coordinates.
// It is a value type so kernels can keep one on the stack without allocating.
type PixelSampler struct {
	pcg randv2.PCG
}

// NewPixelSampler creates a sampler whose sequence depends only on the inputs
func NewPixelSampler(seed uint64, frameIndex uint32, x, y int) PixelSampler {
	var ps PixelSampler
	ps.pcg.Seed(seed^uint64(frameIndex)*0x9E3779B97F4A7C15, uint64(uint32(x))<<32|uint64(uint32(y)))
	return ps
}

// Get1D returns a float64 in [0, 1)
func (ps *PixelSampler) Get1D() float64 {
	return float64(ps.pcg.Uint64()>>11) / (1 << 53)
}

// Get2D returns two float64 values in [0, 1)
func (ps *PixelSampler) Get2D() Vec2 {
	return NewVec2(ps.Get1D(), ps.Get1D())
}

// Get3D returns three float64 values in [0, 1)
func (ps *PixelSampler) Get3D() Vec3 {
	return NewVec3(ps.Get1D(), ps.Get1D(), ps.Get1D())
}

// SampleCosineHemisphere generates a cosine-weighted random direction in hemisphere around normal
func SampleCosineHemisphere(normal Vec3, sample Vec2) Vec3 {
	// Generate point in unit disk using uniform random sampling
	a := 2.0 * math.Pi * sample.X
	z := sample.Y
	r := math.Sqrt(z)

	x := r * math.Cos(a)
	y := r * math.Sin(a)
	zCoord := math.Sqrt(1.0 - z)

	// Create local coordinate system around normal
	// Find a vector perpendicular to normal
	var nt Vec3
	if math.Abs(normal.X) > 0.1 {
		nt = NewVec3(0, 1, 0)
	} else {
		nt = NewVec3(1, 0, 0)
	}

	// Create orthonormal basis
	tangent := nt.Cross(normal).Normalize()
	bitangent := normal.Cross(tangent)

	// Transform to world space
	return tangent.Multiply(x).Add(bitangent.Multiply(y)).Add(normal.Multiply(zCoord))
}

// SampleUniformTriangle maps a unit square sample to barycentric coordinates (b1, b2)
// uniformly distributed over a triangle
func SampleUniformTriangle(sample Vec2) (float64, float64) {
	su := math.Sqrt(sample.X)
	return 1 - su, sample.Y * su
}

// OrthonormalBasis builds tangent and bitangent vectors around a unit normal
func OrthonormalBasis(normal Vec3) (Vec3, Vec3) {
	var nt Vec3
	if math.Abs(normal.X) > 0.1 {
		nt = NewVec3(0, 1, 0)
	} else {
		nt = NewVec3(1, 0, 0)
	}
	tangent := nt.Cross(normal).Normalize()
	return tangent, normal.Cross(tangent)
}
