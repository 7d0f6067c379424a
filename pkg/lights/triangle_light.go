package lights

import (
	"math"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/geometry"
)

// TriangleLight is one emissive triangle of a mesh
type TriangleLight struct {
	Triangle   geometry.Triangle
	Emission   core.Vec3 // Emitted radiance from the front face
	InstanceID int       // Mesh the triangle belongs to
	PrimID     int       // Triangle index inside the mesh
	area       float64
}

// NewTriangleLight creates a new emissive triangle light
func NewTriangleLight(tri geometry.Triangle, emission core.Vec3, instanceID, primID int) *TriangleLight {
	return &TriangleLight{
		Triangle:   tri,
		Emission:   emission,
		InstanceID: instanceID,
		PrimID:     primID,
		area:       tri.Area(),
	}
}

func (tl *TriangleLight) Type() LightType {
	return LightTypeArea
}

// Area returns the surface area of the triangle
func (tl *TriangleLight) Area() float64 {
	return tl.area
}

// Sample implements the Light interface - samples uniformly over the triangle area
func (tl *TriangleLight) Sample(point core.Vec3, uv core.Vec2) LightSample {
	b1, b2 := core.SampleUniformTriangle(uv)
	samplePoint := tl.Triangle.Position(b1, b2)
	normal := tl.Triangle.GeometricNormal()

	toLight := samplePoint.Subtract(point)
	distance := toLight.Length()
	if distance == 0 || tl.area == 0 {
		return LightSample{Point: samplePoint, Normal: normal}
	}
	direction := toLight.Multiply(1.0 / distance)

	sample := LightSample{
		Point:     samplePoint,
		Normal:    normal,
		Direction: direction,
		Distance:  distance,
		PDF:       1.0 / tl.area,
	}

	// Only emit from front face
	cosLight := -direction.Dot(normal)
	if cosLight > 1e-8 {
		sample.Li = tl.Emission.Multiply(cosLight / (distance * distance))
	}
	return sample
}

// Power implements the Light interface
func (tl *TriangleLight) Power() float64 {
	return math.Pi * tl.area * tl.Emission.Luminance()
}
