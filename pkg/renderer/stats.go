package renderer

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/texture"
)

// PixelStats accumulates color samples for a single pixel in double precision
type PixelStats struct {
	ColorAccum       core.Vec3 // RGB accumulator for final result
	LuminanceAccum   float64   // Luminance accumulator for convergence
	LuminanceSqAccum float64   // Luminance squared for variance
	SampleCount      int       // Number of samples taken
}

// AddSample adds a new color sample to the pixel statistics
func (ps *PixelStats) AddSample(color core.Vec3) {
	ps.ColorAccum = ps.ColorAccum.Add(color)
	luminance := color.Luminance()
	ps.LuminanceAccum += luminance
	ps.LuminanceSqAccum += luminance * luminance
	ps.SampleCount++
}

// GetColor returns the current average color for this pixel
func (ps *PixelStats) GetColor() core.Vec3 {
	if ps.SampleCount == 0 {
		return core.Vec3{X: 0, Y: 0, Z: 0}
	}
	return ps.ColorAccum.Multiply(1.0 / float64(ps.SampleCount))
}

// Variance returns the sample variance of the pixel's luminance
func (ps *PixelStats) Variance() float64 {
	if ps.SampleCount < 2 {
		return 0
	}
	n := float64(ps.SampleCount)
	mean := ps.LuminanceAccum / n
	return math.Max(0, (ps.LuminanceSqAccum-n*mean*mean)/(n-1))
}

// Reset clears the accumulated samples
func (ps *PixelStats) Reset() {
	*ps = PixelStats{}
}

// FrameStats summarizes the luminance of a frame
type FrameStats struct {
	MeanLuminance   float64
	StdDevLuminance float64
	LogAverage      float64 // exp(mean(log(δ + L))), the usual auto-exposure key
	MaxLuminance    float64
	InvalidPixels   int // NaN or infinite pixels, excluded from the other statistics
}

// logAverageDelta keeps black pixels from sending the log average to zero
const logAverageDelta = 1e-4

// ComputeFrameStats computes luminance statistics over a color texture
func ComputeFrameStats(tex *texture.Texture) FrameStats {
	lums := make([]float64, 0, tex.Width*tex.Height)
	var fs FrameStats
	for y := 0; y < tex.Height; y++ {
		for x := 0; x < tex.Width; x++ {
			l := tex.GetVec3(x, y).Luminance()
			if math.IsNaN(l) || math.IsInf(l, 0) {
				fs.InvalidPixels++
				continue
			}
			lums = append(lums, l)
			fs.MaxLuminance = math.Max(fs.MaxLuminance, l)
		}
	}
	if len(lums) == 0 {
		return fs
	}

	fs.MeanLuminance, fs.StdDevLuminance = stat.MeanStdDev(lums, nil)
	if len(lums) < 2 {
		fs.StdDevLuminance = 0
	}

	shifted := make([]float64, len(lums))
	for i, l := range lums {
		shifted[i] = logAverageDelta + math.Max(0, l)
	}
	fs.LogAverage = stat.GeometricMean(shifted, nil)
	return fs
}
