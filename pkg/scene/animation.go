package scene

import (
	"math"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/geometry"
)

// CameraAnimation produces the camera for a given frame
type CameraAnimation interface {
	CameraAt(current geometry.CameraConfig, frameIndex uint32) (geometry.CameraConfig, bool)
}

// Orbit rotates the camera around LookAt about the Y axis
type Orbit struct {
	Base            geometry.CameraConfig
	DegreesPerFrame float64
}

// CameraAt implements CameraAnimation
func (o Orbit) CameraAt(current geometry.CameraConfig, frameIndex uint32) (geometry.CameraConfig, bool) {
	angle := o.DegreesPerFrame * float64(frameIndex) * math.Pi / 180
	offset := o.Base.Center.Subtract(o.Base.LookAt)
	sin, cos := math.Sincos(angle)
	rotated := core.NewVec3(
		offset.X*cos+offset.Z*sin,
		offset.Y,
		-offset.X*sin+offset.Z*cos,
	)
	config := o.Base
	config.Center = o.Base.LookAt.Add(rotated)
	return config, true
}

// Dolly moves the camera and its target along a fixed per-frame offset
type Dolly struct {
	Base     geometry.CameraConfig
	PerFrame core.Vec3
}

// CameraAt implements CameraAnimation
func (d Dolly) CameraAt(current geometry.CameraConfig, frameIndex uint32) (geometry.CameraConfig, bool) {
	step := d.PerFrame.Multiply(float64(frameIndex))
	config := d.Base
	config.Center = config.Center.Add(step)
	config.LookAt = config.LookAt.Add(step)
	return config, true
}
