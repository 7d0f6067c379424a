package restir

import (
	"math"

	"github.com/df07/go-restir-passes/pkg/core"
)

// LightSample names a point on a light: the light's index in the scene's
// light sampler and the 2D coordinate the light maps to a surface point.
type LightSample struct {
	LightIndex int // -1 when empty
	UV         core.Vec2
}

// Reservoir holds a single light sample chosen by weighted reservoir sampling
type Reservoir struct {
	Sample    LightSample
	TargetPdf float64 // Target density of Sample at the owning pixel
	WeightSum float64 // Sum of resampling weights seen so far, never negative
	M         float64 // Number of candidates the reservoir represents
	W         float64 // Unbiased contribution weight of Sample
	Age       int     // Frames since Sample was generated
}

// NewReservoir returns an empty reservoir
func NewReservoir() Reservoir {
	return Reservoir{Sample: LightSample{LightIndex: -1}}
}

// HasSample reports whether the reservoir holds a sample
func (r *Reservoir) HasSample() bool {
	return r.Sample.LightIndex >= 0
}

// Update streams one candidate with resampling weight w into the reservoir.
// u is a uniform random number in [0,1). It reports whether the candidate
// replaced the current sample.
func (r *Reservoir) Update(s LightSample, w, targetPdf, u float64) bool {
	r.M++
	if !(w > 0) || math.IsInf(w, 0) {
		return false
	}
	r.WeightSum += w
	if u*r.WeightSum < w {
		r.Sample = s
		r.TargetPdf = targetPdf
		r.Age = 0
		return true
	}
	return false
}

// Merge streams another reservoir into this one. targetPdf is the density
// of other's sample evaluated at this reservoir's pixel.
func (r *Reservoir) Merge(other Reservoir, targetPdf, u float64) bool {
	m := r.M
	w := targetPdf * other.W * other.M
	chose := false
	if other.HasSample() && w > 0 && !math.IsInf(w, 0) {
		r.WeightSum += w
		if u*r.WeightSum < w {
			r.Sample = other.Sample
			r.TargetPdf = targetPdf
			r.Age = other.Age
			chose = true
		}
	}
	r.M = m + other.M
	return chose
}

// Finalize computes the contribution weight with normalization z, the number
// of candidates that could have produced the chosen sample.
func (r *Reservoir) Finalize(z float64) {
	if !r.HasSample() || r.TargetPdf <= 0 || z <= 0 {
		r.W = 0
		return
	}
	r.W = r.WeightSum / (z * r.TargetPdf)
	if math.IsNaN(r.W) || math.IsInf(r.W, 0) {
		r.W = 0
	}
}

// ClampM limits the candidate count to limit without changing the estimate
func (r *Reservoir) ClampM(limit float64) {
	if limit > 0 && r.M > limit {
		r.WeightSum *= limit / r.M
		r.M = limit
	}
}
