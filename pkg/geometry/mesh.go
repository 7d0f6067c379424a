package geometry

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/material"
)

// Mesh is an indexed triangle mesh in world space. A mesh is the unit the
// visibility buffer refers to as a geometry instance.
type Mesh struct {
	Name      string
	Positions []core.Vec3
	Normals   []core.Vec3 // Optional per-vertex shading normals
	TexCoords []core.Vec2 // Optional per-vertex texture coordinates
	Indices   []int       // Three vertex indices per triangle
	Material  material.Material
}

// NewMesh creates a mesh and validates its index buffer
func NewMesh(name string, positions []core.Vec3, indices []int, mat material.Material) (*Mesh, error) {
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("geometry: mesh %q index count %d is not a multiple of 3", name, len(indices))
	}
	for _, idx := range indices {
		if idx < 0 || idx >= len(positions) {
			return nil, fmt.Errorf("geometry: mesh %q index %d out of range (%d vertices)", name, idx, len(positions))
		}
	}
	return &Mesh{Name: name, Positions: positions, Indices: indices, Material: mat}, nil
}

// TriangleCount returns the number of triangles in the mesh
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Triangle returns the triangle with the given primitive index
func (m *Mesh) Triangle(prim int) Triangle {
	i0, i1, i2 := m.Indices[3*prim], m.Indices[3*prim+1], m.Indices[3*prim+2]
	t := NewTriangle(m.Positions[i0], m.Positions[i1], m.Positions[i2])
	if len(m.Normals) == len(m.Positions) {
		t.N0, t.N1, t.N2 = m.Normals[i0], m.Normals[i1], m.Normals[i2]
	}
	return t
}

// TexCoord interpolates texture coordinates, returning (b1, b2) when the mesh has none
func (m *Mesh) TexCoord(prim int, b1, b2 float64) core.Vec2 {
	if len(m.TexCoords) != len(m.Positions) {
		return core.NewVec2(b1, b2)
	}
	i0, i1, i2 := m.Indices[3*prim], m.Indices[3*prim+1], m.Indices[3*prim+2]
	b0 := 1 - b1 - b2
	uv0, uv1, uv2 := m.TexCoords[i0], m.TexCoords[i1], m.TexCoords[i2]
	return core.NewVec2(
		uv0.X*b0+uv1.X*b1+uv2.X*b2,
		uv0.Y*b0+uv1.Y*b1+uv2.Y*b2,
	)
}

// BoundingBox returns the bounds of all mesh vertices
func (m *Mesh) BoundingBox() AABB {
	return NewAABBFromPoints(m.Positions...)
}

// Transform applies an affine transform to positions and normals in place
func (m *Mesh) Transform(transform mgl64.Mat4) {
	normalMatrix := transform.Mat3().Inv().Transpose()
	for i, p := range m.Positions {
		v := transform.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
		m.Positions[i] = core.NewVec3(v[0], v[1], v[2])
	}
	for i, n := range m.Normals {
		v := normalMatrix.Mul3x1(mgl64.Vec3{n.X, n.Y, n.Z})
		m.Normals[i] = core.NewVec3(v[0], v[1], v[2]).Normalize()
	}
}

// NewQuadMesh creates a two-triangle quad spanning corner, corner+u, corner+u+v, corner+v.
// The face normal is u × v.
func NewQuadMesh(name string, corner, u, v core.Vec3, mat material.Material) *Mesh {
	positions := []core.Vec3{
		corner,
		corner.Add(u),
		corner.Add(u).Add(v),
		corner.Add(v),
	}
	return &Mesh{
		Name:      name,
		Positions: positions,
		TexCoords: []core.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
		Indices:   []int{0, 1, 2, 0, 2, 3},
		Material:  mat,
	}
}

// NewBoxMesh creates an axis-aligned box of the given size resting on its base center,
// rotated around the Y axis by rotationY radians.
func NewBoxMesh(name string, baseCenter, size core.Vec3, rotationY float64, mat material.Material) *Mesh {
	hx, hz := size.X/2, size.Z/2
	corners := []core.Vec3{
		core.NewVec3(-hx, 0, -hz), core.NewVec3(hx, 0, -hz), core.NewVec3(hx, 0, hz), core.NewVec3(-hx, 0, hz),
		core.NewVec3(-hx, size.Y, -hz), core.NewVec3(hx, size.Y, -hz), core.NewVec3(hx, size.Y, hz), core.NewVec3(-hx, size.Y, hz),
	}
	// Outward-facing faces, counter-clockwise when viewed from outside
	faces := [][4]int{
		{0, 1, 2, 3}, // bottom
		{4, 7, 6, 5}, // top
		{0, 4, 5, 1}, // -z
		{2, 6, 7, 3}, // +z
		{0, 3, 7, 4}, // -x
		{1, 5, 6, 2}, // +x
	}

	mesh := &Mesh{Name: name, Material: mat}
	for _, f := range faces {
		base := len(mesh.Positions)
		for _, c := range f {
			mesh.Positions = append(mesh.Positions, corners[c])
		}
		mesh.Indices = append(mesh.Indices, base, base+1, base+2, base, base+2, base+3)
	}

	transform := mgl64.Translate3D(baseCenter.X, baseCenter.Y, baseCenter.Z).Mul4(mgl64.HomogRotate3DY(rotationY))
	mesh.Transform(transform)
	return mesh
}
