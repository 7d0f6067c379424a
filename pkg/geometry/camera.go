package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/df07/go-restir-passes/pkg/core"
)

// CameraConfig contains all parameters needed to create a camera
type CameraConfig struct {
	Center core.Vec3 // Camera position
	LookAt core.Vec3 // Point the camera is looking at
	Up     core.Vec3 // Up direction (usually (0,1,0))
	VFov   float64   // Vertical field of view in degrees
	Near   float64   // Near plane for the projection matrix
	Far    float64   // Far plane for the projection matrix
}

// Camera is a pinhole camera. Rays and projections are computed for the frame
// dimensions passed at call time, so the same camera serves any resolution.
type Camera struct {
	config  CameraConfig
	forward core.Vec3
	right   core.Vec3
	up      core.Vec3
	tanHalf float64
}

// NewCamera creates a camera from the given configuration
func NewCamera(config CameraConfig) *Camera {
	if config.Near <= 0 {
		config.Near = 0.01
	}
	if config.Far <= config.Near {
		config.Far = config.Near * 1e6
	}
	if config.VFov <= 0 {
		config.VFov = 40
	}

	forward := config.LookAt.Subtract(config.Center).Normalize()
	right := forward.Cross(config.Up).Normalize()
	up := right.Cross(forward)

	return &Camera{
		config:  config,
		forward: forward,
		right:   right,
		up:      up,
		tanHalf: math.Tan(config.VFov * math.Pi / 360.0),
	}
}

// Config returns the configuration the camera was built from
func (c *Camera) Config() CameraConfig {
	return c.config
}

// Position returns the camera origin
func (c *Camera) Position() core.Vec3 {
	return c.config.Center
}

// Forward returns the unit viewing direction
func (c *Camera) Forward() core.Vec3 {
	return c.forward
}

// GenerateRay returns the primary ray through continuous pixel coordinates (px, py).
// Pixel (x, y) has its center at (x+0.5, y+0.5); y grows downwards.
func (c *Camera) GenerateRay(px, py float64, width, height int) core.Ray {
	aspect := float64(width) / float64(height)
	ndcX := 2*px/float64(width) - 1
	ndcY := 1 - 2*py/float64(height)

	direction := c.forward.
		Add(c.right.Multiply(ndcX * c.tanHalf * aspect)).
		Add(c.up.Multiply(ndcY * c.tanHalf)).
		Normalize()

	return core.NewRay(c.config.Center, direction)
}

// ViewProjection returns the combined view-projection matrix for the given aspect ratio
func (c *Camera) ViewProjection(aspect float64) mgl64.Mat4 {
	eye := mgl64.Vec3{c.config.Center.X, c.config.Center.Y, c.config.Center.Z}
	center := mgl64.Vec3{c.config.LookAt.X, c.config.LookAt.Y, c.config.LookAt.Z}
	up := mgl64.Vec3{c.config.Up.X, c.config.Up.Y, c.config.Up.Z}

	view := mgl64.LookAtV(eye, center, up)
	projection := mgl64.Perspective(mgl64.DegToRad(c.config.VFov), aspect, c.config.Near, c.config.Far)
	return projection.Mul4(view)
}

// LinearDepth returns the distance of a point along the viewing direction
func (c *Camera) LinearDepth(point core.Vec3) float64 {
	return point.Subtract(c.config.Center).Dot(c.forward)
}

// ProjectToPixel maps a world-space point through a view-projection matrix to continuous
// pixel coordinates. Returns false for points behind the camera.
func ProjectToPixel(viewProj mgl64.Mat4, point core.Vec3, width, height int) (core.Vec2, bool) {
	clip := viewProj.Mul4x1(mgl64.Vec4{point.X, point.Y, point.Z, 1})
	if clip[3] <= 1e-12 {
		return core.Vec2{}, false
	}
	ndcX := clip[0] / clip[3]
	ndcY := clip[1] / clip[3]
	return core.NewVec2(
		(ndcX+1)*0.5*float64(width),
		(1-ndcY)*0.5*float64(height),
	), true
}
