// Package restirpass implements ScreenSpaceReSTIRPass: direct illumination
// shaded with light samples chosen by one or more resampling engines.
package restirpass

import (
	"fmt"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/log"
	"github.com/df07/go-restir-passes/pkg/material"
	"github.com/df07/go-restir-passes/pkg/passes/shading"
	"github.com/df07/go-restir-passes/pkg/restir"
	"github.com/df07/go-restir-passes/pkg/scene"
	"github.com/df07/go-restir-passes/pkg/texture"
)

const TypeName = "ScreenSpaceReSTIRPass"

// Channel names
const (
	InputVBuffer       = "vbuffer"
	InputMotionVectors = "motionVectors"

	OutputColor                = "color"
	OutputEmission             = "emission"
	OutputDiffuseIllumination  = "diffuseIllumination"
	OutputDiffuseReflectance   = "diffuseReflectance"
	OutputSpecularIllumination = "specularIllumination"
	OutputSpecularReflectance  = "specularReflectance"
	OutputDebug                = "debug"
)

var logger = log.New("restirpass")

// Info describes the pass for the registry
func Info() graph.PassInfo {
	return graph.PassInfo{
		Type:        TypeName,
		Description: "Standalone pass for direct lighting using screen-space ReSTIR",
		Create: func(props graph.Properties) (graph.Pass, error) {
			return New(props)
		},
	}
}

// Pass shades direct lighting from resampled light samples
type Pass struct {
	scene   *scene.Scene
	engines []*restir.Engine
	options Options

	needRecreate bool
}

// New creates the pass from its properties
func New(props graph.Properties) (*Pass, error) {
	opts, err := decodeOptions(DefaultOptions(), props)
	if err != nil {
		return nil, err
	}
	return &Pass{options: opts, needRecreate: true}, nil
}

// Options returns the current configuration
func (p *Pass) Options() Options {
	return p.options
}

// Engines returns the live resampling engines
func (p *Pass) Engines() []*restir.Engine {
	return p.engines
}

// SetProperties updates the configuration. Any change to the engine options or
// the instance count re-creates every engine, discarding their history.
func (p *Pass) SetProperties(props graph.Properties) error {
	opts, err := decodeOptions(p.options, props)
	if err != nil {
		return err
	}
	if opts != p.options {
		p.needRecreate = true
	}
	p.options = opts
	return nil
}

func (p *Pass) Properties() graph.Properties {
	return p.options.Properties()
}

func (p *Pass) SetScene(s *scene.Scene) {
	p.scene = s
	for _, e := range p.engines {
		e.SetScene(s)
	}
}

func (p *Pass) Reflect(cd graph.CompileData) *graph.Reflection {
	r := graph.NewReflection()
	r.AddInput(InputVBuffer, "Visibility buffer in packed format").WithFormat(texture.RGBA32Uint)
	r.AddInput(InputMotionVectors, "Motion vector buffer (float format)").WithFormat(texture.RG32Float)

	r.AddOutput(OutputColor, "Final color")
	r.AddOutput(OutputEmission, "Emissive color").AsOptional()
	r.AddOutput(OutputDiffuseIllumination, "Diffuse illumination").AsOptional()
	r.AddOutput(OutputDiffuseReflectance, "Diffuse reflectance").AsOptional()
	r.AddOutput(OutputSpecularIllumination, "Specular illumination").AsOptional()
	r.AddOutput(OutputSpecularReflectance, "Specular reflectance").AsOptional()
	r.AddOutput(OutputDebug, "Debug output").AsOptional()
	return r
}

func (p *Pass) Compile(cd graph.CompileData) error {
	return nil
}

func (p *Pass) recreateEngines() error {
	engines := make([]*restir.Engine, p.options.NumInstances)
	for i := range engines {
		opts := p.options.Engine
		opts.Seed += uint64(i)
		e, err := restir.New(opts)
		if err != nil {
			return err
		}
		e.SetScene(p.scene)
		engines[i] = e
	}
	logger.Infof("created %d ReSTIR instance(s)", len(engines))
	p.engines = engines
	p.needRecreate = false
	return nil
}

func (p *Pass) Execute(rc *graph.RenderContext, data *graph.RenderData) error {
	if p.scene == nil {
		clearOutputs(data)
		return nil
	}
	if p.needRecreate || len(p.engines) != p.options.NumInstances {
		if err := p.recreateEngines(); err != nil {
			return err
		}
	}

	vbuffer := data.Texture(InputVBuffer)
	mvec := data.Texture(InputMotionVectors)
	for i, e := range p.engines {
		if err := e.BeginFrame(data.FrameDim, rc.FrameIndex, mvec); err != nil {
			return fmt.Errorf("instance %d: %w", i, err)
		}
		if err := p.prepareSurfaceData(rc, vbuffer, i); err != nil {
			return err
		}
		samples, err := e.Resample(rc)
		if err != nil {
			return fmt.Errorf("instance %d: %w", i, err)
		}
		if err := p.finalShading(rc, data, i, samples); err != nil {
			return err
		}
		e.EndFrame()
	}
	return nil
}

// prepareSurfaceData decodes the visibility buffer into the instance's surface data
func (p *Pass) prepareSurfaceData(rc *graph.RenderContext, vbuffer *texture.Texture, instanceID int) error {
	sd := p.engines[instanceID].SurfaceData()
	adjust := p.options.AdjustShadingNormals
	return rc.Dispatch(sd.Width, sd.Height, func(x, y int) {
		sd.Set(x, y, shading.LoadSurface(p.scene, vbuffer.GetUint(x, y), adjust))
	})
}

// finalShading writes this instance's share of every output. Instance 0
// overwrites, later instances add, so N instances average with weight 1/N.
func (p *Pass) finalShading(rc *graph.RenderContext, data *graph.RenderData, instanceID int, samples []restir.FinalSample) error {
	e := p.engines[instanceID]
	sd := e.SurfaceData()
	weight := 1 / float64(len(p.engines))
	first := instanceID == 0

	color := data.Texture(OutputColor)
	emission := data.Texture(OutputEmission)
	diffuseIllum := data.Texture(OutputDiffuseIllumination)
	diffuseRefl := data.Texture(OutputDiffuseReflectance)
	specularIllum := data.Texture(OutputSpecularIllumination)
	specularRefl := data.Texture(OutputSpecularReflectance)
	debug := data.Texture(OutputDebug)

	accumulate := func(tex *texture.Texture, x, y int, v core.Vec3) {
		if tex == nil {
			return
		}
		v = v.Multiply(weight)
		if !first {
			v = v.Add(tex.GetVec3(x, y))
		}
		tex.SetVec3(x, y, v)
	}
	write := func(tex *texture.Texture, x, y int, v core.Vec3) {
		if tex != nil && first {
			tex.SetVec3(x, y, v)
		}
	}

	opts := e.Options()
	maxM := float64(opts.InitialLightSamples * (1 + opts.MaxHistoryLength))

	return rc.Dispatch(sd.Width, sd.Height, func(x, y int) {
		s := sd.At(x, y)
		fs := samples[y*sd.Width+x]

		var diffuse, specular, dr, sr, le core.Vec3
		if s.Valid {
			le = s.Material.Emission
			dr = material.DiffuseReflectance(s.Material)
			sr = material.SpecularReflectance(s.Material, s.Normal, s.View)
			if fs.Valid {
				fd, fspec := material.Eval(s.Material, s.Normal, s.View, fs.Dir)
				diffuse = fd.MultiplyVec(fs.Li)
				specular = fspec.MultiplyVec(fs.Li)
			}
		}

		accumulate(color, x, y, le.Add(diffuse).Add(specular))
		accumulate(diffuseIllum, x, y, shading.Demodulate(diffuse, dr))
		accumulate(specularIllum, x, y, shading.Demodulate(specular, sr))
		write(emission, x, y, le)
		write(diffuseRefl, x, y, dr)
		write(specularRefl, x, y, sr)

		if debug != nil && first {
			var dbg core.Vec3
			if s.Valid {
				r := e.Reservoir(x, y)
				dbg = core.NewVec3(
					core.Saturate(r.M/maxM),
					core.Saturate(float64(r.Age)/float64(max(opts.MaxAge, 1))),
					boolToFloat(fs.Valid),
				)
			}
			debug.SetVec3(x, y, dbg)
		}
	})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clearOutputs(data *graph.RenderData) {
	for _, name := range []string{OutputColor, OutputEmission, OutputDiffuseIllumination, OutputDiffuseReflectance,
		OutputSpecularIllumination, OutputSpecularReflectance, OutputDebug} {
		if tex := data.Texture(name); tex != nil {
			tex.Clear()
		}
	}
}
