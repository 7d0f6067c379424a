package material

import (
	"github.com/df07/go-restir-passes/pkg/core"
)

// Params are the shading parameters of a surface point. They are what the
// surface-data preparer stores per pixel and what BSDF evaluation consumes.
type Params struct {
	Diffuse   core.Vec3 // Diffuse albedo
	Specular  core.Vec3 // Specular reflectance at normal incidence (F0)
	Roughness float64   // Perceptual roughness in [0, 1]; GGX alpha = roughness²
	Emission  core.Vec3 // Emitted radiance
}

// Material evaluates shading parameters at a surface point
type Material interface {
	// Evaluate returns the parameters at the given texture coordinates and world position
	Evaluate(uv core.Vec2, point core.Vec3) Params
}

// Emitter is implemented by materials that emit light.
// Emissive triangles of such materials become area lights.
type Emitter interface {
	Material
	IsEmissive() bool
}
