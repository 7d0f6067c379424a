// Package gbuffer implements GBufferRT, which ray traces primary visibility
// into a visibility buffer with motion vectors and depth.
package gbuffer

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/geometry"
	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/log"
	"github.com/df07/go-restir-passes/pkg/scene"
	"github.com/df07/go-restir-passes/pkg/texture"
)

const TypeName = "GBufferRT"

const (
	VBuffer       = "vbuffer"
	MotionVectors = "mvec"
	Depth         = "depth"
)

var logger = log.New("gbuffer")

// Info describes the pass for the registry
func Info() graph.PassInfo {
	return graph.PassInfo{
		Type:        TypeName,
		Description: "Ray traced visibility buffer with motion vectors",
		Create: func(props graph.Properties) (graph.Pass, error) {
			p := &Pass{}
			if err := p.SetProperties(props); err != nil {
				return nil, err
			}
			return p, nil
		},
	}
}

// Pass writes the first hit of every pixel's center ray
type Pass struct {
	scene *scene.Scene

	// Camera of the previous frame, for motion vectors
	prevViewProj mgl64.Mat4
	hasPrev      bool
	prevDim      graph.Dim
}

// SetProperties accepts no keys; any key given is reported as unknown
func (p *Pass) SetProperties(props graph.Properties) error {
	d := graph.NewDecoder(props)
	d.WarnUnused(logger, TypeName)
	return d.Err()
}

func (p *Pass) Properties() graph.Properties {
	return graph.Properties{}
}

func (p *Pass) SetScene(s *scene.Scene) {
	p.scene = s
	p.hasPrev = false
}

func (p *Pass) Reflect(cd graph.CompileData) *graph.Reflection {
	r := graph.NewReflection()
	r.AddOutput(VBuffer, "Visibility buffer: instance id + 1, primitive id, barycentrics").WithFormat(texture.RGBA32Uint)
	r.AddOutput(MotionVectors, "Pixel offset to the previous frame").WithFormat(texture.RG32Float)
	r.AddOutput(Depth, "Linear view depth").WithFormat(texture.R32Float).AsOptional()
	return r
}

func (p *Pass) Compile(cd graph.CompileData) error {
	if cd.FrameDim != p.prevDim {
		p.hasPrev = false
		p.prevDim = cd.FrameDim
	}
	return nil
}

func (p *Pass) Execute(rc *graph.RenderContext, data *graph.RenderData) error {
	vbuffer := data.Texture(VBuffer)
	mvec := data.Texture(MotionVectors)
	depth := data.Texture(Depth)
	w, h := data.FrameDim.Width, data.FrameDim.Height

	if p.scene == nil || p.scene.Camera == nil {
		vbuffer.Clear()
		mvec.Clear()
		if depth != nil {
			depth.Clear()
		}
		return nil
	}

	cam := p.scene.Camera
	viewProj := cam.ViewProjection(float64(w) / float64(h))
	prevViewProj := viewProj
	if p.hasPrev {
		prevViewProj = p.prevViewProj
	}
	near, far := cam.Config().Near, cam.Config().Far

	err := rc.Dispatch(w, h, func(x, y int) {
		center := core.NewVec2(float64(x)+0.5, float64(y)+0.5)
		ray := cam.GenerateRay(center.X, center.Y, w, h)
		hit, ok := p.scene.Intersect(ray, near, far)
		if !ok {
			vbuffer.SetUint(x, y, [4]uint32{})
			mvec.Set(x, y, [4]float32{})
			if depth != nil {
				depth.Set(x, y, [4]float32{})
			}
			return
		}

		vbuffer.SetUint(x, y, HitInfo{
			InstanceID:  hit.InstanceID,
			PrimitiveID: hit.PrimitiveID,
			B1:          float32(hit.B1),
			B2:          float32(hit.B2),
		}.Pack())

		pos := ray.At(hit.T)
		motion := [4]float32{}
		if prev, ok := geometry.ProjectToPixel(prevViewProj, pos, w, h); ok {
			motion[0] = float32(prev.X - center.X)
			motion[1] = float32(prev.Y - center.Y)
		}
		mvec.Set(x, y, motion)

		if depth != nil {
			depth.Set(x, y, [4]float32{float32(cam.LinearDepth(pos))})
		}
	})
	if err != nil {
		return err
	}

	p.prevViewProj = viewProj
	p.hasPrev = true
	return nil
}
