// Package shading holds the surface decoding and channel helpers shared by
// the lighting passes.
package shading

import (
	"math"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/passes/gbuffer"
	"github.com/df07/go-restir-passes/pkg/restir"
	"github.com/df07/go-restir-passes/pkg/scene"
)

// MinViewCosine is the smallest cosine between an adjusted shading normal and the view direction
const MinViewCosine = 0.01

// LoadSurface decodes a vbuffer texel into a surface sample. Background
// texels and unknown triangles give an invalid sample. Normals are flipped to
// face the camera; with adjust set, shading normals that still face away are
// bent toward the viewer.
func LoadSurface(s *scene.Scene, texel [4]uint32, adjust bool) restir.SurfaceSample {
	hit, ok := gbuffer.UnpackHitInfo(texel)
	if !ok {
		return restir.SurfaceSample{}
	}
	sh, ok := s.Shade(hit.InstanceID, hit.PrimitiveID, float64(hit.B1), float64(hit.B2))
	if !ok {
		return restir.SurfaceSample{}
	}

	cam := s.Camera
	view := cam.Position().Subtract(sh.Position).Normalize()
	geo := sh.GeometricNormal
	if geo.Dot(view) < 0 {
		geo = geo.Negate()
	}
	n := sh.ShadingNormal
	if n.Dot(geo) < 0 {
		n = n.Negate()
	}
	if adjust {
		n = AdjustShadingNormal(n, view)
	}

	return restir.SurfaceSample{
		Position:  sh.Position,
		Normal:    n,
		GeoNormal: geo,
		View:      view,
		Material:  sh.Params,
		Depth:     cam.LinearDepth(sh.Position),
		Valid:     true,
	}
}

// AdjustShadingNormal bends n toward the viewer until it is visible
func AdjustShadingNormal(n, view core.Vec3) core.Vec3 {
	cos := n.Dot(view)
	if cos >= MinViewCosine {
		return n
	}
	tangent := n.Subtract(view.Multiply(cos))
	if tangent.LengthSquared() < 1e-12 {
		return view
	}
	return tangent.Normalize().Multiply(math.Sqrt(1 - MinViewCosine*MinViewCosine)).Add(view.Multiply(MinViewCosine))
}

// Demodulate divides radiance by reflectance per channel, where reflectance is non-zero
func Demodulate(radiance, reflectance core.Vec3) core.Vec3 {
	div := func(a, b float64) float64 {
		if b <= 0 {
			return 0
		}
		return a / b
	}
	return core.NewVec3(div(radiance.X, reflectance.X), div(radiance.Y, reflectance.Y), div(radiance.Z, reflectance.Z))
}
