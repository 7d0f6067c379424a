package scene

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/geometry"
	"github.com/df07/go-restir-passes/pkg/lights"
	"github.com/df07/go-restir-passes/pkg/material"
)

var ErrNoGeometry = errors.New("scene: no geometry")

// Scene contains all the elements needed for rendering
type Scene struct {
	Name         string
	Camera       *geometry.Camera
	Meshes       []*geometry.Mesh    // Geometry instances, indexed by instance ID
	Lights       []lights.Light      // Analytic and emissive triangle lights
	LightSampler lights.LightSampler // Light selection strategy
	BVH          *geometry.BVH       // Acceleration structure for ray-mesh intersection
	Background   core.Vec3           // Radiance returned for camera rays that miss
	Animation    CameraAnimation     // Optional per-frame camera motion

	analytic   []lights.Light // Lights added explicitly, without geometry
	generation atomic.Uint64
}

// Shading is the interpolated surface state at a hit point
type Shading struct {
	Position        core.Vec3
	ShadingNormal   core.Vec3
	GeometricNormal core.Vec3
	UV              core.Vec2
	Params          material.Params
}

// New creates an empty scene viewed through camera
func New(name string, camera *geometry.Camera) *Scene {
	return &Scene{Name: name, Camera: camera}
}

// AddMesh adds a mesh and returns its instance ID
func (s *Scene) AddMesh(mesh *geometry.Mesh) int {
	s.Meshes = append(s.Meshes, mesh)
	return len(s.Meshes) - 1
}

// AddQuadLight adds a one-sided rectangular emitter facing along u × v
func (s *Scene) AddQuadLight(name string, corner, u, v core.Vec3, emission core.Vec3) int {
	return s.AddMesh(geometry.NewQuadMesh(name, corner, u, v, material.NewEmissive(emission)))
}

// AddPointLight adds an isotropic point light
func (s *Scene) AddPointLight(position, intensity core.Vec3) {
	s.analytic = append(s.analytic, lights.NewPointLight(position, intensity))
}

// AddSpotLight adds a point spot light with custom cone angle and falloff
func (s *Scene) AddSpotLight(from, to, intensity core.Vec3, coneAngleDegrees, coneDeltaAngleDegrees float64) {
	s.analytic = append(s.analytic, lights.NewSpotLight(from, to, intensity, coneAngleDegrees, coneDeltaAngleDegrees))
}

// Preprocess builds the BVH, collects emissive triangles as lights and creates
// the light sampler. It must be called after every geometry or light edit; each
// call advances the scene generation.
func (s *Scene) Preprocess() error {
	if len(s.Meshes) == 0 {
		return ErrNoGeometry
	}
	if s.Camera == nil {
		return fmt.Errorf("scene %q: no camera", s.Name)
	}

	s.BVH = geometry.NewBVH(s.Meshes)

	s.Lights = append([]lights.Light(nil), s.analytic...)
	for id, mesh := range s.Meshes {
		emitter, ok := mesh.Material.(material.Emitter)
		if !ok || !emitter.IsEmissive() {
			continue
		}
		for prim := 0; prim < mesh.TriangleCount(); prim++ {
			tri := mesh.Triangle(prim)
			if tri.Area() == 0 {
				continue
			}
			le := emitter.Evaluate(mesh.TexCoord(prim, 1.0/3, 1.0/3), tri.Position(1.0/3, 1.0/3)).Emission
			s.Lights = append(s.Lights, lights.NewTriangleLight(tri, le, id, prim))
		}
	}

	s.LightSampler = lights.NewPowerLightSampler(s.Lights)
	s.generation.Add(1)
	return nil
}

// Generation is incremented by every Preprocess. Passes compare it against the
// value they last saw to detect in-place scene edits.
func (s *Scene) Generation() uint64 {
	return s.generation.Load()
}

// Intersect finds the closest surface hit along ray
func (s *Scene) Intersect(ray core.Ray, tMin, tMax float64) (geometry.Hit, bool) {
	if s.BVH == nil {
		return geometry.Hit{}, false
	}
	return s.BVH.Hit(ray, tMin, tMax)
}

// Visible reports whether the segment between two points is unoccluded.
// The segment is shortened by a relative epsilon at both ends.
func (s *Scene) Visible(from, to core.Vec3) bool {
	if s.BVH == nil {
		return true
	}
	d := to.Subtract(from)
	dist := d.Length()
	if dist == 0 {
		return true
	}
	dir := d.Multiply(1 / dist)
	eps := 1e-4 * (1 + dist)
	return !s.BVH.Occluded(core.NewRay(from, dir), eps, dist-eps)
}

// Shade interpolates the surface at barycentrics (b1, b2) of a triangle and
// evaluates its material. It returns false for unknown instance or primitive ids.
func (s *Scene) Shade(instanceID, primID int, b1, b2 float64) (Shading, bool) {
	if instanceID < 0 || instanceID >= len(s.Meshes) {
		return Shading{}, false
	}
	mesh := s.Meshes[instanceID]
	if primID < 0 || primID >= mesh.TriangleCount() {
		return Shading{}, false
	}

	tri := mesh.Triangle(primID)
	sh := Shading{
		Position:        tri.Position(b1, b2),
		ShadingNormal:   tri.ShadingNormal(b1, b2),
		GeometricNormal: tri.GeometricNormal(),
		UV:              mesh.TexCoord(primID, b1, b2),
	}
	if mesh.Material != nil {
		sh.Params = mesh.Material.Evaluate(sh.UV, sh.Position)
	}
	return sh, true
}

// TriangleCount returns the total number of triangles in the scene
func (s *Scene) TriangleCount() int {
	count := 0
	for _, mesh := range s.Meshes {
		count += mesh.TriangleCount()
	}
	return count
}

// Update applies the camera animation for frameIndex. It reports whether the camera moved.
func (s *Scene) Update(frameIndex uint32) bool {
	if s.Animation == nil {
		return false
	}
	config, ok := s.Animation.CameraAt(s.Camera.Config(), frameIndex)
	if !ok {
		return false
	}
	camera := geometry.NewCamera(config)
	if camera.Config() == s.Camera.Config() {
		return false
	}
	s.Camera = camera
	return true
}
