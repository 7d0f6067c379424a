package geometry

import (
	"github.com/df07/go-restir-passes/pkg/core"
)

// Triangle is a single mesh triangle with optional per-vertex shading normals
type Triangle struct {
	V0, V1, V2 core.Vec3 // The three vertices
	N0, N1, N2 core.Vec3 // Shading normals, zero when the mesh has none
	normal     core.Vec3 // Cached geometric normal
}

// NewTriangle creates a new triangle from three vertices
func NewTriangle(v0, v1, v2 core.Vec3) Triangle {
	t := Triangle{V0: v0, V1: v1, V2: v2}
	t.normal = v1.Subtract(v0).Cross(v2.Subtract(v0)).Normalize()
	return t
}

// Hit tests if a ray intersects with the triangle using the Möller-Trumbore algorithm.
// Returns the ray parameter and the barycentric weights of V1 and V2.
func (t Triangle) Hit(ray core.Ray, tMin, tMax float64) (float64, float64, float64, bool) {
	const epsilon = 1e-12

	edge1 := t.V1.Subtract(t.V0)
	edge2 := t.V2.Subtract(t.V0)

	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)

	// Ray lies in the plane of the triangle
	if a > -epsilon && a < epsilon {
		return 0, 0, 0, false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(t.V0)
	u := f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return 0, 0, 0, false
	}

	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return 0, 0, 0, false
	}

	tParam := f * edge2.Dot(q)
	if tParam < tMin || tParam > tMax {
		return 0, 0, 0, false
	}

	return tParam, u, v, true
}

// GeometricNormal returns the triangle's face normal
func (t Triangle) GeometricNormal() core.Vec3 {
	return t.normal
}

// Area returns the surface area of the triangle
func (t Triangle) Area() float64 {
	return 0.5 * t.V1.Subtract(t.V0).Cross(t.V2.Subtract(t.V0)).Length()
}

// Position interpolates the position at barycentrics (b1, b2)
func (t Triangle) Position(b1, b2 float64) core.Vec3 {
	b0 := 1 - b1 - b2
	return t.V0.Multiply(b0).Add(t.V1.Multiply(b1)).Add(t.V2.Multiply(b2))
}

// ShadingNormal interpolates the vertex normals, falling back to the face normal
func (t Triangle) ShadingNormal(b1, b2 float64) core.Vec3 {
	if t.N0.IsZero() && t.N1.IsZero() && t.N2.IsZero() {
		return t.normal
	}
	b0 := 1 - b1 - b2
	n := t.N0.Multiply(b0).Add(t.N1.Multiply(b1)).Add(t.N2.Multiply(b2)).Normalize()
	if n.IsZero() {
		return t.normal
	}
	return n
}

// BoundingBox returns the axis-aligned bounding box for this triangle
func (t Triangle) BoundingBox() AABB {
	return NewAABBFromPoints(t.V0, t.V1, t.V2)
}
