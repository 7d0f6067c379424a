package material

import (
	"github.com/df07/go-restir-passes/pkg/core"
)

// Emissive represents a light-emitting material. Meshes using it are turned into
// emissive triangle lights by the scene.
type Emissive struct {
	Emission core.Vec3 // Emitted radiance
	Albedo   core.Vec3 // Optional diffuse albedo of the emitter surface
}

// NewEmissive creates a new emissive material
func NewEmissive(emission core.Vec3) *Emissive {
	return &Emissive{Emission: emission}
}

// Evaluate implements the Material interface
func (e *Emissive) Evaluate(uv core.Vec2, point core.Vec3) Params {
	return Params{
		Diffuse:   e.Albedo,
		Roughness: 1,
		Emission:  e.Emission,
	}
}

// IsEmissive implements the Emitter interface
func (e *Emissive) IsEmissive() bool {
	return !e.Emission.IsZero()
}
