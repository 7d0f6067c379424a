package material

import (
	"github.com/df07/go-restir-passes/pkg/core"
)

// Lambertian represents a perfectly diffuse material
type Lambertian struct {
	Albedo ColorSource // Base color/reflectance (can be solid or textured)
}

// NewLambertian creates a new lambertian material with solid color
func NewLambertian(albedo core.Vec3) *Lambertian {
	return &Lambertian{Albedo: NewSolidColor(albedo)}
}

// NewTexturedLambertian creates a new lambertian material with texture
func NewTexturedLambertian(albedoTexture ColorSource) *Lambertian {
	return &Lambertian{Albedo: albedoTexture}
}

// Evaluate implements the Material interface
func (l *Lambertian) Evaluate(uv core.Vec2, point core.Vec3) Params {
	return Params{
		Diffuse:   l.Albedo.Evaluate(uv, point),
		Roughness: 1,
	}
}
