package geometry

import (
	"math"
	"testing"

	"github.com/df07/go-restir-passes/pkg/core"
)

func TestTriangle_HitBarycentrics(t *testing.T) {
	tri := NewTriangle(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0))
	ray := core.NewRay(core.NewVec3(0.25, 0.5, 1), core.NewVec3(0, 0, -1))

	tHit, b1, b2, ok := tri.Hit(ray, 0.001, math.Inf(1))
	if !ok {
		t.Fatal("Expected hit")
	}
	if math.Abs(tHit-1) > 1e-9 {
		t.Errorf("Expected t=1, got %f", tHit)
	}
	if math.Abs(b1-0.25) > 1e-9 || math.Abs(b2-0.5) > 1e-9 {
		t.Errorf("Expected barycentrics (0.25, 0.5), got (%f, %f)", b1, b2)
	}
	if p := tri.Position(b1, b2); p.Subtract(core.NewVec3(0.25, 0.5, 0)).Length() > 1e-9 {
		t.Errorf("Interpolated position %v does not match hit point", p)
	}
}

func TestTriangle_Miss(t *testing.T) {
	tri := NewTriangle(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0))
	ray := core.NewRay(core.NewVec3(2, 2, 1), core.NewVec3(0, 0, -1))
	if _, _, _, ok := tri.Hit(ray, 0.001, math.Inf(1)); ok {
		t.Error("Expected miss outside the triangle")
	}
}

func TestTriangle_Area(t *testing.T) {
	tri := NewTriangle(core.NewVec3(0, 0, 0), core.NewVec3(2, 0, 0), core.NewVec3(0, 2, 0))
	if got := tri.Area(); math.Abs(got-2) > 1e-12 {
		t.Errorf("Expected area 2, got %f", got)
	}
}

func TestBoxMesh_OutwardNormals(t *testing.T) {
	box := NewBoxMesh("box", core.NewVec3(0, 0, 0), core.NewVec3(2, 2, 2), 0, nil)
	if box.TriangleCount() != 12 {
		t.Fatalf("Expected 12 triangles, got %d", box.TriangleCount())
	}
	center := core.NewVec3(0, 1, 0)
	for prim := 0; prim < box.TriangleCount(); prim++ {
		tri := box.Triangle(prim)
		toFace := tri.Position(1.0/3, 1.0/3).Subtract(center)
		if tri.GeometricNormal().Dot(toFace) <= 0 {
			t.Errorf("Triangle %d normal %v points inward", prim, tri.GeometricNormal())
		}
	}
}

func TestBVH_ClosestHitAcrossMeshes(t *testing.T) {
	near := NewQuadMesh("near", core.NewVec3(-1, -1, -2), core.NewVec3(2, 0, 0), core.NewVec3(0, 2, 0), nil)
	far := NewQuadMesh("far", core.NewVec3(-1, -1, -5), core.NewVec3(2, 0, 0), core.NewVec3(0, 2, 0), nil)
	bvh := NewBVH([]*Mesh{far, near})

	hit, ok := bvh.Hit(core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1)), 0.001, math.Inf(1))
	if !ok {
		t.Fatal("Expected hit")
	}
	if hit.InstanceID != 1 {
		t.Errorf("Expected nearest mesh (instance 1), got instance %d", hit.InstanceID)
	}
	if math.Abs(hit.T-2) > 1e-9 {
		t.Errorf("Expected t=2, got %f", hit.T)
	}

	if !bvh.Occluded(core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1)), 0.001, 3) {
		t.Error("Expected occlusion before t=3")
	}
	if bvh.Occluded(core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1)), 0.001, 1.5) {
		t.Error("Expected no occlusion before t=1.5")
	}
}

func TestBVH_ManyTriangles(t *testing.T) {
	var meshes []*Mesh
	for i := 0; i < 50; i++ {
		x := float64(i) * 3
		meshes = append(meshes, NewBoxMesh("box", core.NewVec3(x, 0, 0), core.NewVec3(1, 1, 1), 0.3, nil))
	}
	bvh := NewBVH(meshes)

	for i := 0; i < 50; i++ {
		x := float64(i) * 3
		hit, ok := bvh.Hit(core.NewRay(core.NewVec3(x, 10, 0), core.NewVec3(0, -1, 0)), 0.001, math.Inf(1))
		if !ok || hit.InstanceID != i {
			t.Fatalf("Ray above box %d: ok=%v instance=%d", i, ok, hit.InstanceID)
		}
	}
}

func TestCamera_ProjectionRoundTrip(t *testing.T) {
	camera := NewCamera(CameraConfig{
		Center: core.NewVec3(1, 2, 5),
		LookAt: core.NewVec3(0, 0, 0),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   45,
	})
	width, height := 64, 48
	viewProj := camera.ViewProjection(float64(width) / float64(height))

	for _, px := range []core.Vec2{{X: 0.5, Y: 0.5}, {X: 32, Y: 24}, {X: 63.5, Y: 10.25}} {
		ray := camera.GenerateRay(px.X, px.Y, width, height)
		got, ok := ProjectToPixel(viewProj, ray.At(3.7), width, height)
		if !ok {
			t.Fatalf("Point in front of camera failed to project")
		}
		if math.Abs(got.X-px.X) > 1e-6 || math.Abs(got.Y-px.Y) > 1e-6 {
			t.Errorf("Round trip of %v gave %v", px, got)
		}
	}

	if _, ok := ProjectToPixel(viewProj, core.NewVec3(2, 4, 10), width, height); ok {
		t.Error("Point behind the camera should not project")
	}
}
