package lights

import (
	"math"

	"github.com/df07/go-restir-passes/pkg/core"
)

// PointLight is an isotropic point light
type PointLight struct {
	position  core.Vec3
	intensity core.Vec3 // Radiant intensity
}

// NewPointLight creates a new point light
func NewPointLight(position, intensity core.Vec3) *PointLight {
	return &PointLight{position: position, intensity: intensity}
}

func (pl *PointLight) Type() LightType {
	return LightTypePoint
}

// Sample implements the Light interface; uv is ignored
func (pl *PointLight) Sample(point core.Vec3, uv core.Vec2) LightSample {
	return deltaSample(pl.position, point, pl.intensity)
}

// Power implements the Light interface
func (pl *PointLight) Power() float64 {
	return 4 * math.Pi * pl.intensity.Luminance()
}

// SpotLight is a point light restricted to a cone with a smooth falloff edge
type SpotLight struct {
	position        core.Vec3
	direction       core.Vec3 // Normalized direction the spot is pointing
	intensity       core.Vec3
	cosTotalWidth   float64 // Cosine of total cone angle
	cosFalloffStart float64 // Cosine of falloff start angle
}

// NewSpotLight creates a spot light at from aimed at to
func NewSpotLight(from, to, intensity core.Vec3, coneAngleDegrees, coneDeltaAngleDegrees float64) *SpotLight {
	totalWidthRadians := coneAngleDegrees * math.Pi / 180.0
	falloffStartRadians := (coneAngleDegrees - coneDeltaAngleDegrees) * math.Pi / 180.0

	return &SpotLight{
		position:        from,
		direction:       to.Subtract(from).Normalize(),
		intensity:       intensity,
		cosTotalWidth:   math.Cos(totalWidthRadians),
		cosFalloffStart: math.Cos(falloffStartRadians),
	}
}

func (sl *SpotLight) Type() LightType {
	return LightTypeSpot
}

// Sample implements the Light interface; uv is ignored
func (sl *SpotLight) Sample(point core.Vec3, uv core.Vec2) LightSample {
	sample := deltaSample(sl.position, point, sl.intensity)
	if sample.Distance == 0 {
		return sample
	}
	sample.Li = sample.Li.Multiply(sl.falloff(-sample.Direction.Dot(sl.direction)))
	return sample
}

// falloff calculates the spot light falloff
// Based on the cosine of the angle between light direction and direction to point
func (sl *SpotLight) falloff(cosAngle float64) float64 {
	// Outside the total cone width
	if cosAngle < sl.cosTotalWidth {
		return 0.0
	}

	// Inside the inner cone (full intensity)
	if cosAngle >= sl.cosFalloffStart {
		return 1.0
	}

	// Smooth falloff using quartic curve
	delta := (cosAngle - sl.cosTotalWidth) / (sl.cosFalloffStart - sl.cosTotalWidth)
	return delta * delta * delta * delta
}

// Power implements the Light interface
func (sl *SpotLight) Power() float64 {
	return 2 * math.Pi * (1 - 0.5*(sl.cosFalloffStart+sl.cosTotalWidth)) * sl.intensity.Luminance()
}

func deltaSample(lightPos, point, intensity core.Vec3) LightSample {
	toLight := lightPos.Subtract(point)
	distance := toLight.Length()
	if distance == 0 {
		return LightSample{Point: lightPos, IsDelta: true}
	}
	return LightSample{
		Point:     lightPos,
		Direction: toLight.Multiply(1.0 / distance),
		Distance:  distance,
		Li:        intensity.Multiply(1.0 / (distance * distance)),
		PDF:       1.0,
		IsDelta:   true,
	}
}
