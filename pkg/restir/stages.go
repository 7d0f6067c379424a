package restir

import (
	"math"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/lights"
	"github.com/df07/go-restir-passes/pkg/material"
)

// Stage salts keep the random streams of each dispatch independent
const (
	saltInitial  = 0x1
	saltTemporal = 0x2
	saltSpatial  = 0x10
)

const shadowOffset = 1e-4

func (e *Engine) sampler(salt uint64, x, y int) core.PixelSampler {
	return core.NewPixelSampler(e.options.Seed*0x2545F4914F6CDD1D+salt, e.frame, x, y)
}

// evaluate re-evaluates a light sample at a surface
func (e *Engine) evaluate(s SurfaceSample, ls LightSample) (lights.LightSample, float64) {
	if !s.Valid || ls.LightIndex < 0 || ls.LightIndex >= e.scene.LightSampler.LightCount() {
		return lights.LightSample{}, 0
	}
	sample := e.scene.LightSampler.Light(ls.LightIndex).Sample(s.Position, ls.UV)
	if !sample.Valid() {
		return sample, 0
	}
	target := material.Target(s.Material, s.Normal, s.View, sample.Direction, sample.Li)
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return sample, 0
	}
	return sample, target
}

func (e *Engine) visible(s SurfaceSample, point core.Vec3) bool {
	return e.scene.Visible(s.Position.Add(s.GeoNormal.Multiply(shadowOffset)), point)
}

func (e *Engine) initialCandidates(x, y int) {
	idx := y*e.width + x
	r := NewReservoir()
	s := e.surface.At(x, y)
	if !s.Valid || e.scene.LightSampler == nil || e.scene.LightSampler.LightCount() == 0 {
		e.reservoirs[idx] = r
		return
	}

	ps := e.sampler(saltInitial, x, y)
	for i := 0; i < e.options.InitialLightSamples; i++ {
		_, prob, lightIndex := e.scene.LightSampler.SampleLight(ps.Get1D())
		candidate := LightSample{LightIndex: lightIndex, UV: ps.Get2D()}
		u := ps.Get1D()
		if lightIndex < 0 || prob <= 0 {
			r.M++
			continue
		}
		sample, target := e.evaluate(s, candidate)
		weight := 0.0
		if target > 0 {
			weight = target / (prob * sample.PDF)
		}
		r.Update(candidate, weight, target, u)
	}
	r.Finalize(r.M)

	if e.options.TestInitialSampleVisibility && r.HasSample() && r.W > 0 {
		sample, _ := e.evaluate(s, r.Sample)
		if !e.visible(s, sample.Point) {
			r.W = 0
		}
	}
	e.reservoirs[idx] = r
}

// temporalReuse merges the reprojected history reservoir into the current one
func (e *Engine) temporalReuse(x, y int) {
	idx := y*e.width + x
	cur := e.reservoirs[idx]
	s := e.surface.At(x, y)
	if !s.Valid {
		return
	}

	px, py := x, y
	if e.motion != nil && e.motion.InBounds(x, y) {
		mv := e.motion.Get(x, y)
		px = int(math.Floor(float64(x) + 0.5 + float64(mv[0])))
		py = int(math.Floor(float64(y) + 0.5 + float64(mv[1])))
	}
	prevSurface := e.prevSurface.At(px, py)
	if !similar(s, prevSurface, e.options.NormalThreshold, e.options.DepthThreshold) {
		return
	}
	prev := e.history[py*e.width+px]
	if !prev.HasSample() && prev.M == 0 {
		return
	}
	prev.Age++
	if prev.Age > e.options.MaxAge {
		return
	}
	if e.options.MaxHistoryLength > 0 {
		prev.ClampM(float64(e.options.MaxHistoryLength) * max(cur.M, 1))
	}

	ps := e.sampler(saltTemporal, x, y)
	out := NewReservoir()
	out.Merge(cur, cur.TargetPdf, ps.Get1D())
	_, target := e.evaluate(s, prev.Sample)
	out.Merge(prev, target, ps.Get1D())

	z := out.M
	if e.options.BiasCorrection == BiasCorrectionBasic && out.HasSample() {
		z = 0
		if _, t := e.evaluate(s, out.Sample); t > 0 {
			z += cur.M
		}
		if _, t := e.evaluate(prevSurface, out.Sample); t > 0 {
			z += prev.M
		}
	}
	out.Finalize(z)
	e.reservoirs[idx] = out
}

type neighbor struct {
	surface SurfaceSample
	m       float64
}

// spatialReuse combines reservoirs of similar nearby pixels, reading
// e.reservoirs and writing e.scratch
func (e *Engine) spatialReuse(iter, x, y int) {
	idx := y*e.width + x
	cur := e.reservoirs[idx]
	s := e.surface.At(x, y)
	if !s.Valid {
		e.scratch[idx] = cur
		return
	}

	ps := e.sampler(saltSpatial+uint64(iter), x, y)
	out := NewReservoir()
	out.Merge(cur, cur.TargetPdf, ps.Get1D())

	var buf [16]neighbor
	used := buf[:0]
	for k := 0; k < e.options.SpatialNeighborCount; k++ {
		// uniform point in a disk of the gather radius
		u := ps.Get2D()
		radius := e.options.SpatialGatherRadius * math.Sqrt(u.X)
		phi := 2 * math.Pi * u.Y
		nx := x + int(math.Round(radius*math.Cos(phi)))
		ny := y + int(math.Round(radius*math.Sin(phi)))
		if (nx == x && ny == y) || nx < 0 || ny < 0 || nx >= e.width || ny >= e.height {
			continue
		}
		ns := e.surface.At(nx, ny)
		if !similar(s, ns, e.options.NormalThreshold, e.options.DepthThreshold) {
			continue
		}
		nr := e.reservoirs[ny*e.width+nx]
		_, target := e.evaluate(s, nr.Sample)
		out.Merge(nr, target, ps.Get1D())
		used = append(used, neighbor{surface: ns, m: nr.M})
	}

	z := out.M
	if e.options.BiasCorrection == BiasCorrectionBasic && out.HasSample() {
		z = 0
		if _, t := e.evaluate(s, out.Sample); t > 0 {
			z += cur.M
		}
		for _, n := range used {
			if _, t := e.evaluate(n.surface, out.Sample); t > 0 {
				z += n.m
			}
		}
	}
	out.Finalize(z)
	e.scratch[idx] = out
}

func (e *Engine) finalSample(x, y int) {
	idx := y*e.width + x
	r := e.reservoirs[idx]
	s := e.surface.At(x, y)
	if !s.Valid || !r.HasSample() || r.W <= 0 {
		e.final[idx] = FinalSample{}
		return
	}
	sample, target := e.evaluate(s, r.Sample)
	if target <= 0 {
		e.final[idx] = FinalSample{}
		return
	}
	if e.options.UseFinalVisibility && !e.visible(s, sample.Point) {
		e.final[idx] = FinalSample{}
		return
	}
	e.final[idx] = FinalSample{
		Dir:      sample.Direction,
		Distance: sample.Distance,
		Li:       sample.Li.Multiply(r.W),
		Valid:    true,
	}
}
