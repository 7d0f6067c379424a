// Package directlight implements DirectLighting, a brute-force reference for
// the resampled direct illumination: independent light samples per pixel, no reuse.
package directlight

import (
	"fmt"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/log"
	"github.com/df07/go-restir-passes/pkg/material"
	"github.com/df07/go-restir-passes/pkg/passes/restirpass"
	"github.com/df07/go-restir-passes/pkg/passes/shading"
	"github.com/df07/go-restir-passes/pkg/restir"
	"github.com/df07/go-restir-passes/pkg/scene"
	"github.com/df07/go-restir-passes/pkg/texture"
)

const TypeName = "DirectLighting"

// Offset applied along the geometric normal before shadow tests
const shadowOffset = 1e-4

var logger = log.New("directlight")

// Options configures the reference pass
type Options struct {
	SamplesPerPixel      int
	UseVisibility        bool
	AdjustShadingNormals bool
	Seed                 uint64
}

// DefaultOptions returns one visibility-tested sample per pixel
func DefaultOptions() Options {
	return Options{SamplesPerPixel: 1, UseVisibility: true}
}

// Info describes the pass for the registry
func Info() graph.PassInfo {
	return graph.PassInfo{
		Type:        TypeName,
		Description: "Reference direct lighting with independent light samples",
		Create: func(props graph.Properties) (graph.Pass, error) {
			return New(props)
		},
	}
}

// Pass estimates direct lighting by sampling lights in proportion to power
type Pass struct {
	scene   *scene.Scene
	options Options
}

func New(props graph.Properties) (*Pass, error) {
	p := &Pass{options: DefaultOptions()}
	if err := p.SetProperties(props); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pass) Options() Options {
	return p.options
}

func (p *Pass) SetProperties(props graph.Properties) error {
	opts := p.options
	d := graph.NewDecoder(props)
	d.Int("samplesPerPixel", &opts.SamplesPerPixel)
	d.Bool("useVisibility", &opts.UseVisibility)
	d.Bool("adjustShadingNormals", &opts.AdjustShadingNormals)
	seed := int(opts.Seed)
	d.Int("seed", &seed)
	opts.Seed = uint64(seed)
	d.WarnUnused(logger, TypeName)
	if err := d.Err(); err != nil {
		return err
	}
	if opts.SamplesPerPixel < 1 {
		return fmt.Errorf("%w: samplesPerPixel must be at least 1, got %d", graph.ErrInvalidConfig, opts.SamplesPerPixel)
	}
	p.options = opts
	return nil
}

func (p *Pass) Properties() graph.Properties {
	return graph.Properties{
		"samplesPerPixel":      p.options.SamplesPerPixel,
		"useVisibility":        p.options.UseVisibility,
		"adjustShadingNormals": p.options.AdjustShadingNormals,
		"seed":                 int(p.options.Seed),
	}
}

func (p *Pass) SetScene(s *scene.Scene) {
	p.scene = s
}

func (p *Pass) Reflect(cd graph.CompileData) *graph.Reflection {
	r := graph.NewReflection()
	r.AddInput(restirpass.InputVBuffer, "Visibility buffer in packed format").WithFormat(texture.RGBA32Uint)
	r.AddOutput(restirpass.OutputColor, "Final color")
	r.AddOutput(restirpass.OutputEmission, "Emissive color").AsOptional()
	r.AddOutput(restirpass.OutputDiffuseIllumination, "Diffuse illumination").AsOptional()
	r.AddOutput(restirpass.OutputDiffuseReflectance, "Diffuse reflectance").AsOptional()
	r.AddOutput(restirpass.OutputSpecularIllumination, "Specular illumination").AsOptional()
	r.AddOutput(restirpass.OutputSpecularReflectance, "Specular reflectance").AsOptional()
	return r
}

func (p *Pass) Compile(cd graph.CompileData) error {
	return nil
}

func (p *Pass) Execute(rc *graph.RenderContext, data *graph.RenderData) error {
	color := data.Texture(restirpass.OutputColor)
	emission := data.Texture(restirpass.OutputEmission)
	diffuseIllum := data.Texture(restirpass.OutputDiffuseIllumination)
	diffuseRefl := data.Texture(restirpass.OutputDiffuseReflectance)
	specularIllum := data.Texture(restirpass.OutputSpecularIllumination)
	specularRefl := data.Texture(restirpass.OutputSpecularReflectance)
	vbuffer := data.Texture(restirpass.InputVBuffer)

	set := func(tex *texture.Texture, x, y int, v core.Vec3) {
		if tex != nil {
			tex.SetVec3(x, y, v)
		}
	}

	s := p.scene
	opts := p.options
	return rc.Dispatch(data.FrameDim.Width, data.FrameDim.Height, func(x, y int) {
		surface := shadingSurface(s, vbuffer, x, y, opts.AdjustShadingNormals)
		var diffuse, specular, dr, sr, le core.Vec3
		if surface.Valid {
			le = surface.Material.Emission
			dr = material.DiffuseReflectance(surface.Material)
			sr = material.SpecularReflectance(surface.Material, surface.Normal, surface.View)
			diffuse, specular = p.estimate(surface, core.NewPixelSampler(opts.Seed, rc.FrameIndex, x, y))
		}
		set(color, x, y, le.Add(diffuse).Add(specular))
		set(emission, x, y, le)
		set(diffuseRefl, x, y, dr)
		set(specularRefl, x, y, sr)
		set(diffuseIllum, x, y, shading.Demodulate(diffuse, dr))
		set(specularIllum, x, y, shading.Demodulate(specular, sr))
	})
}

func shadingSurface(s *scene.Scene, vbuffer *texture.Texture, x, y int, adjust bool) restir.SurfaceSample {
	if s == nil {
		return restir.SurfaceSample{}
	}
	return shading.LoadSurface(s, vbuffer.GetUint(x, y), adjust)
}

// estimate averages independent light samples, each weighted by 1/(selection probability · pdf)
func (p *Pass) estimate(s restir.SurfaceSample, ps core.PixelSampler) (diffuse, specular core.Vec3) {
	sampler := p.scene.LightSampler
	if sampler == nil || sampler.LightCount() == 0 {
		return
	}
	n := p.options.SamplesPerPixel
	for i := 0; i < n; i++ {
		light, prob, _ := sampler.SampleLight(ps.Get1D())
		uv := ps.Get2D()
		if light == nil || prob <= 0 {
			continue
		}
		ls := light.Sample(s.Position, uv)
		if !ls.Valid() {
			continue
		}
		fd, fs := material.Eval(s.Material, s.Normal, s.View, ls.Direction)
		if fd.IsZero() && fs.IsZero() {
			continue
		}
		if p.options.UseVisibility && !p.scene.Visible(s.Position.Add(s.GeoNormal.Multiply(shadowOffset)), ls.Point) {
			continue
		}
		w := 1 / (prob * ls.PDF * float64(n))
		diffuse = diffuse.Add(fd.MultiplyVec(ls.Li).Multiply(w))
		specular = specular.Add(fs.MultiplyVec(ls.Li).Multiply(w))
	}
	return
}
