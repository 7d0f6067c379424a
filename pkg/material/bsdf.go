package material

import (
	"math"

	"github.com/df07/go-restir-passes/pkg/core"
)

// minAlpha keeps the GGX distribution finite for mirror-like surfaces
const minAlpha = 0.0064

// Eval evaluates the BSDF for light arriving from wi and leaving toward wo,
// both pointing away from the surface. The two lobes are returned separately
// and already include the cosine term, so the reflected radiance for incident
// radiance Li is (diffuse + specular) ⊙ Li.
func Eval(p Params, n, wo, wi core.Vec3) (diffuse, specular core.Vec3) {
	cosI := n.Dot(wi)
	cosO := n.Dot(wo)
	if cosI <= 0 || cosO <= 0 {
		return core.Vec3{}, core.Vec3{}
	}

	diffuse = p.Diffuse.Multiply(cosI / math.Pi)

	if p.Specular.IsZero() {
		return diffuse, core.Vec3{}
	}

	h := wo.Add(wi).Normalize()
	cosH := core.Saturate(n.Dot(h))
	cosOH := core.Saturate(wo.Dot(h))

	alpha := math.Max(p.Roughness*p.Roughness, minAlpha)
	d := ggxD(alpha, cosH)
	g := smithG(alpha, cosO, cosI)
	f := schlick(p.Specular, cosOH)

	// D·G·F / (4·cosO·cosI) · cosI
	specular = f.Multiply(d * g / (4 * cosO))
	return diffuse, specular
}

// Target returns the scalar resampling target for a light sample carrying
// radiance li from direction wi.
func Target(p Params, n, wo, wi, li core.Vec3) float64 {
	d, s := Eval(p, n, wo, wi)
	return d.Add(s).MultiplyVec(li).Luminance()
}

// DiffuseReflectance is the directional albedo of the diffuse lobe
func DiffuseReflectance(p Params) core.Vec3 {
	return p.Diffuse
}

// SpecularReflectance approximates the directional albedo of the GGX lobe
// using the analytic fit from Karis, "Physically Based Shading on Mobile".
func SpecularReflectance(p Params, n, wo core.Vec3) core.Vec3 {
	if p.Specular.IsZero() {
		return core.Vec3{}
	}
	cosO := core.Saturate(n.Dot(wo))
	r := p.Roughness
	c0 := [4]float64{-1, -0.0275, -0.572, 0.022}
	c1 := [4]float64{1, 0.0425, 1.04, -0.04}
	r0 := r*c0[0] + c1[0]
	r1 := r*c0[1] + c1[1]
	r2 := r*c0[2] + c1[2]
	r3 := r*c0[3] + c1[3]
	a004 := math.Min(r0*r0, math.Exp2(-9.28*cosO))*r0 + r1
	scale := a004*-1.04 + r2
	bias := a004*1.04 + r3
	return p.Specular.Multiply(scale).Add(core.Splat(bias)).Clamp(0, 1)
}

func ggxD(alpha, cosH float64) float64 {
	a2 := alpha * alpha
	d := cosH*cosH*(a2-1) + 1
	return a2 / (math.Pi * d * d)
}

// smithG is the separable Smith masking-shadowing term for GGX
func smithG(alpha, cosO, cosI float64) float64 {
	return smithG1(alpha, cosO) * smithG1(alpha, cosI)
}

func smithG1(alpha, cos float64) float64 {
	a2 := alpha * alpha
	return 2 * cos / (cos + math.Sqrt(a2+(1-a2)*cos*cos))
}

func schlick(f0 core.Vec3, cos float64) core.Vec3 {
	w := math.Pow(1-cos, 5)
	return f0.Add(core.Splat(1).Subtract(f0).Multiply(w))
}
