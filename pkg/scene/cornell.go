package scene

import (
	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/geometry"
	"github.com/df07/go-restir-passes/pkg/material"
)

// NewCornellScene creates a classic Cornell box scene with quad walls and area lighting
func NewCornellScene() *Scene {
	config := geometry.CameraConfig{
		Center: core.NewVec3(278, 278, -800), // Position camera outside the box looking in
		LookAt: core.NewVec3(278, 278, 0),    // Look at the center of the box
		Up:     core.NewVec3(0, 1, 0),        // Standard up direction
		VFov:   40.0,
		Near:   1,
	}

	s := New("cornell", geometry.NewCamera(config))

	// Create materials
	white := material.NewLambertian(core.NewVec3(0.73, 0.73, 0.73))
	red := material.NewLambertian(core.NewVec3(0.65, 0.05, 0.05))
	green := material.NewLambertian(core.NewVec3(0.12, 0.45, 0.15))

	// Cornell box dimensions (standard 555x555x555 units)
	boxSize := 555.0

	s.AddMesh(geometry.NewQuadMesh("floor", core.NewVec3(0, 0, 0), core.NewVec3(0, 0, boxSize), core.NewVec3(boxSize, 0, 0), white))
	s.AddMesh(geometry.NewQuadMesh("ceiling", core.NewVec3(0, boxSize, 0), core.NewVec3(boxSize, 0, 0), core.NewVec3(0, 0, boxSize), white))
	s.AddMesh(geometry.NewQuadMesh("back", core.NewVec3(0, 0, boxSize), core.NewVec3(boxSize, 0, 0), core.NewVec3(0, boxSize, 0), white))
	s.AddMesh(geometry.NewQuadMesh("left", core.NewVec3(0, 0, 0), core.NewVec3(0, 0, boxSize), core.NewVec3(0, boxSize, 0), red))
	s.AddMesh(geometry.NewQuadMesh("right", core.NewVec3(boxSize, 0, 0), core.NewVec3(0, boxSize, 0), core.NewVec3(0, 0, boxSize), green))

	// Ceiling light facing down, slightly below the ceiling
	lightSize := 130.0
	lightOffset := (boxSize - lightSize) / 2.0
	s.AddQuadLight("light",
		core.NewVec3(lightOffset, boxSize-1, lightOffset),
		core.NewVec3(lightSize, 0, 0),
		core.NewVec3(0, 0, lightSize),
		core.NewVec3(15.0, 15.0, 15.0),
	)

	// Tall glossy block and short diffuse block
	s.AddMesh(geometry.NewBoxMesh("tall-block", core.NewVec3(368, 0, 351), core.NewVec3(165, 330, 165), 0.26,
		material.NewPlastic(core.NewVec3(0.73, 0.73, 0.73), 0.3)))
	s.AddMesh(geometry.NewBoxMesh("short-block", core.NewVec3(185, 0, 169), core.NewVec3(165, 165, 165), -0.31, white))

	return s
}
