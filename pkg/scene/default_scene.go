package scene

import (
	"math"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/geometry"
	"github.com/df07/go-restir-passes/pkg/material"
)

// NewDefaultScene creates a ground plane with a few blocks lit by a quad light,
// a point light and a spot light. The camera slides slowly sideways.
func NewDefaultScene() *Scene {
	config := geometry.CameraConfig{
		Center: core.NewVec3(0, 2, 6),
		LookAt: core.NewVec3(0, 0.5, 0),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   40.0,
	}

	s := New("default", geometry.NewCamera(config))
	s.Animation = Dolly{Base: config, PerFrame: core.NewVec3(0.01, 0, 0)}

	checker := material.NewChecker(1, core.NewVec3(0.8, 0.8, 0.8), core.NewVec3(0.3, 0.3, 0.3))
	s.AddMesh(geometry.NewQuadMesh("ground", core.NewVec3(-10, 0, -10), core.NewVec3(0, 0, 20), core.NewVec3(20, 0, 0),
		material.NewTexturedLambertian(checker)))

	s.AddMesh(geometry.NewBoxMesh("red", core.NewVec3(-1.5, 0, 0), core.NewVec3(1, 1, 1), 0.4,
		material.NewLambertian(core.NewVec3(0.65, 0.25, 0.2))))
	s.AddMesh(geometry.NewBoxMesh("gold", core.NewVec3(0, 0, -0.5), core.NewVec3(1, 1.6, 1), -0.3,
		material.NewMetal(core.NewVec3(0.8, 0.6, 0.2), 0.3)))
	s.AddMesh(geometry.NewBoxMesh("blue", core.NewVec3(1.5, 0, 0.3), core.NewVec3(0.8, 0.8, 0.8), 0.1,
		material.NewPlastic(core.NewVec3(0.1, 0.2, 0.5), 0.2)))

	s.AddQuadLight("key", core.NewVec3(-1, 4, -1), core.NewVec3(2, 0, 0), core.NewVec3(0, 0, 2), core.NewVec3(6, 6, 6))
	s.AddPointLight(core.NewVec3(3, 2, 3), core.NewVec3(8, 7, 6))
	s.AddSpotLight(core.NewVec3(-3, 4, 3), core.NewVec3(0, 0, 0), core.NewVec3(40, 40, 50), 25, 5)

	return s
}

// NewManyLightsScene scatters a grid of small colored emitters over a ground plane.
// Many lights with few initial candidates is where resampling pays off.
func NewManyLightsScene() *Scene {
	config := geometry.CameraConfig{
		Center: core.NewVec3(0, 6, 10),
		LookAt: core.NewVec3(0, 0, 0),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   45.0,
	}

	s := New("many-lights", geometry.NewCamera(config))
	s.Animation = Orbit{Base: config, DegreesPerFrame: 0.5}

	s.AddMesh(geometry.NewQuadMesh("ground", core.NewVec3(-12, 0, -12), core.NewVec3(0, 0, 24), core.NewVec3(24, 0, 0),
		material.NewPlastic(core.NewVec3(0.6, 0.6, 0.6), 0.5)))

	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			x := float64(i-2) * 3
			z := float64(j-2) * 3
			s.AddMesh(geometry.NewBoxMesh("pillar", core.NewVec3(x, 0, z), core.NewVec3(0.6, 1.5, 0.6), 0.2*float64(i+j),
				material.NewLambertian(core.NewVec3(0.7, 0.7, 0.7))))
		}
	}

	// Rings of small downward-facing emitters with hue varying around the ring
	const n = 48
	for k := 0; k < n; k++ {
		angle := 2 * math.Pi * float64(k) / n
		radius := 4 + 4*float64(k%3)
		c := core.NewVec3(radius*math.Cos(angle), 2.5, radius*math.Sin(angle))
		hue := core.NewVec3(
			0.5+0.5*math.Cos(angle),
			0.5+0.5*math.Cos(angle+2*math.Pi/3),
			0.5+0.5*math.Cos(angle+4*math.Pi/3),
		)
		s.AddQuadLight("emitter", c.Add(core.NewVec3(-0.15, 0, -0.15)), core.NewVec3(0.3, 0, 0), core.NewVec3(0, 0, 0.3), hue.Multiply(40))
	}

	return s
}
