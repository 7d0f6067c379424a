package material

import (
	"math"

	"github.com/df07/go-restir-passes/pkg/core"
)

// ColorSource provides spatially-varying colors for materials
type ColorSource interface {
	// Evaluate returns color at given UV coordinates and 3D point
	// UV is used for image textures, point for procedural textures
	Evaluate(uv core.Vec2, point core.Vec3) core.Vec3
}

// SolidColor provides uniform color
type SolidColor struct {
	Color core.Vec3
}

// NewSolidColor creates a new solid color source
func NewSolidColor(color core.Vec3) *SolidColor {
	return &SolidColor{Color: color}
}

// Evaluate returns the solid color regardless of UV or position
func (s *SolidColor) Evaluate(uv core.Vec2, point core.Vec3) core.Vec3 {
	return s.Color
}

// Checker is a procedural 3D checkerboard evaluated in world space
type Checker struct {
	Scale float64 // Size of one check
	Even   core.Vec3
	Odd    core.Vec3
}

// NewChecker creates a world-space checkerboard with checks of the given size
func NewChecker(scale float64, even, odd core.Vec3) *Checker {
	return &Checker{Scale: scale, Even: even, Odd: odd}
}

// Evaluate returns the check color containing point
func (c *Checker) Evaluate(uv core.Vec2, point core.Vec3) core.Vec3 {
	ix := int(math.Floor(point.X / c.Scale))
	iy := int(math.Floor(point.Y / c.Scale))
	iz := int(math.Floor(point.Z / c.Scale))
	if (ix+iy+iz)&1 == 0 {
		return c.Even
	}
	return c.Odd
}
