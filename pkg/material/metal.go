package material

import (
	"github.com/df07/go-restir-passes/pkg/core"
)

// Metal represents a conductor with a GGX specular lobe and no diffuse lobe
type Metal struct {
	Albedo    core.Vec3 // Specular reflectance at normal incidence
	Roughness float64   // 0.0 = near mirror, 1.0 = very rough
}

// NewMetal creates a new metal material
func NewMetal(albedo core.Vec3, roughness float64) *Metal {
	return &Metal{Albedo: albedo, Roughness: core.Saturate(roughness)}
}

// Evaluate implements the Material interface
func (m *Metal) Evaluate(uv core.Vec2, point core.Vec3) Params {
	return Params{
		Specular:  m.Albedo,
		Roughness: m.Roughness,
	}
}

// Plastic is a dielectric base with a diffuse lobe under a GGX coat
type Plastic struct {
	Albedo    ColorSource
	Roughness float64
}

// dielectricF0 is the normal-incidence reflectance of an IOR 1.5 dielectric
const dielectricF0 = 0.04

// NewPlastic creates a glossy dielectric material
func NewPlastic(albedo core.Vec3, roughness float64) *Plastic {
	return &Plastic{Albedo: NewSolidColor(albedo), Roughness: core.Saturate(roughness)}
}

// Evaluate implements the Material interface
func (p *Plastic) Evaluate(uv core.Vec2, point core.Vec3) Params {
	return Params{
		Diffuse:   p.Albedo.Evaluate(uv, point),
		Specular:  core.Splat(dielectricF0),
		Roughness: p.Roughness,
	}
}
