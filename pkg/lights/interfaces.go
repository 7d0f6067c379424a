package lights

import "github.com/df07/go-restir-passes/pkg/core"

type LightType string

const (
	LightTypeArea  LightType = "area"
	LightTypePoint LightType = "point"
	LightTypeSpot  LightType = "spot"
)

// Light is a light source that can be sampled for direct lighting.
//
// Samples are addressed by a 2D coordinate uv in [0,1)². The same uv always
// names the same point on the light, so a reservoir can keep (light index, uv)
// and re-evaluate the sample from any other shading point.
type Light interface {
	Type() LightType

	// Sample evaluates the light sample at uv as seen from point
	Sample(point core.Vec3, uv core.Vec2) LightSample

	// Power is the total emitted power used for light selection
	Power() float64
}

// LightSample contains information about a sampled point on a light
type LightSample struct {
	Point     core.Vec3 // Point on the light source
	Normal    core.Vec3 // Normal at the light sample point (zero for point lights)
	Direction core.Vec3 // Direction from shading point to light
	Distance  float64   // Distance to light

	// Incident radiance scaled by the geometry term in area measure:
	// Le·cosθl/d² for area lights, I·falloff/d² for point lights.
	// The unshadowed contribution at the shading point is f·cosθ ⊙ Li / PDF.
	Li core.Vec3

	PDF     float64 // Area-measure density of choosing this point (1 for delta lights)
	IsDelta bool
}

// Valid reports whether the sample carries any light
func (s LightSample) Valid() bool {
	return s.PDF > 0 && s.Distance > 0 && !s.Li.IsZero()
}

// LightSampler selects lights for sampling
type LightSampler interface {
	// SampleLight selects a light and returns the light, selection probability, and light index
	SampleLight(u float64) (Light, float64, int)

	// Probability returns the selection probability for a specific light
	Probability(lightIndex int) float64

	// Light returns the light at the given index
	Light(lightIndex int) Light

	// LightCount returns the number of lights in this sampler
	LightCount() int
}
