package restir

import (
	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/material"
)

// SurfaceSample is the shading state of the first visible surface at a pixel
type SurfaceSample struct {
	Position  core.Vec3
	Normal    core.Vec3 // Shading normal, facing the viewer
	GeoNormal core.Vec3 // Geometric normal, facing the viewer
	View      core.Vec3 // Unit direction toward the camera
	Material  material.Params
	Depth     float64 // Linear view depth
	Valid     bool
}

// SurfaceData is a frame-sized buffer of surface samples
type SurfaceData struct {
	Width   int
	Height  int
	samples []SurfaceSample
}

// NewSurfaceData allocates a buffer of invalid samples
func NewSurfaceData(width, height int) *SurfaceData {
	return &SurfaceData{Width: width, Height: height, samples: make([]SurfaceSample, width*height)}
}

// At returns the sample at (x, y). Out of range pixels are invalid.
func (sd *SurfaceData) At(x, y int) SurfaceSample {
	if x < 0 || y < 0 || x >= sd.Width || y >= sd.Height {
		return SurfaceSample{}
	}
	return sd.samples[y*sd.Width+x]
}

// Set writes the sample at (x, y)
func (sd *SurfaceData) Set(x, y int, s SurfaceSample) {
	sd.samples[y*sd.Width+x] = s
}

// Invalidate marks every sample invalid
func (sd *SurfaceData) Invalidate() {
	clear(sd.samples)
}

// similar reports whether two surfaces are close enough to share samples
func similar(a, b SurfaceSample, normalThreshold, depthThreshold float64) bool {
	if !a.Valid || !b.Valid {
		return false
	}
	if a.Normal.Dot(b.Normal) < normalThreshold {
		return false
	}
	return abs(a.Depth-b.Depth) <= depthThreshold*max(a.Depth, b.Depth)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
