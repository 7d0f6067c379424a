// Package modulate implements ModulateIllumination, which recombines
// demodulated illumination channels with their reflectances.
package modulate

import (
	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/log"
	"github.com/df07/go-restir-passes/pkg/texture"
)

const TypeName = "ModulateIllumination"

// Channel names
const (
	Emission            = "emission"
	DiffuseReflectance  = "diffuseReflectance"
	DiffuseRadiance     = "diffuseRadiance"
	SpecularReflectance = "specularReflectance"
	SpecularRadiance    = "specularRadiance"
	ResidualRadiance    = "residualRadiance"
	Output              = "output"
)

var logger = log.New("modulate")

// channel describes one optional input and the property that enables it.
// half marks channels read at half precision.
type channel struct {
	name        string
	description string
	key         string
	half        bool
}

var channels = []channel{
	{Emission, "Emission", "useEmission", false},
	{DiffuseReflectance, "Diffuse Reflectance", "useDiffuseReflectance", true},
	{DiffuseRadiance, "Diffuse Radiance", "useDiffuseRadiance", true},
	{SpecularReflectance, "Specular Reflectance", "useSpecularReflectance", true},
	{SpecularRadiance, "Specular Radiance", "useSpecularRadiance", true},
	{ResidualRadiance, "Residual Radiance", "useResidualRadiance", true},
}

// Options holds the per-channel enable flags
type Options struct {
	UseEmission            bool
	UseDiffuseReflectance  bool
	UseDiffuseRadiance     bool
	UseSpecularReflectance bool
	UseSpecularRadiance    bool
	UseResidualRadiance    bool
}

// DefaultOptions enables every channel
func DefaultOptions() Options {
	return Options{true, true, true, true, true, true}
}

func (o *Options) flags() []*bool {
	return []*bool{
		&o.UseEmission,
		&o.UseDiffuseReflectance,
		&o.UseDiffuseRadiance,
		&o.UseSpecularReflectance,
		&o.UseSpecularRadiance,
		&o.UseResidualRadiance,
	}
}

// Info describes the pass for the registry
func Info() graph.PassInfo {
	return graph.PassInfo{
		Type:        TypeName,
		Description: "Modulate illumination pass",
		Create: func(props graph.Properties) (graph.Pass, error) {
			return New(props)
		},
	}
}

// Pass computes emission + Rd⊙Ld + Rs⊙Ls + Lr, where every factor counts
// only when its channel is both bound and enabled
type Pass struct {
	options Options
	bound   [6]bool
}

// New creates the pass from its properties
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
	for i, flag := range opts.flags() {
		d.Bool(channels[i].key, flag)
	}
	d.WarnUnused(logger, TypeName)
	if err := d.Err(); err != nil {
		return err
	}
	p.options = opts
	return nil
}

func (p *Pass) Properties() graph.Properties {
	props := graph.Properties{}
	for i, flag := range p.options.flags() {
		props[channels[i].key] = *flag
	}
	return props
}

func (p *Pass) Reflect(cd graph.CompileData) *graph.Reflection {
	r := graph.NewReflection()
	for _, c := range channels {
		f := r.AddInput(c.name, c.description).AsOptional()
		if c.half {
			f.WithFormat(texture.RGBA16Float)
		} else {
			f.FloatOnly()
		}
	}
	r.AddOutput(Output, "output").WithFormat(texture.RGBA32Float)
	return r
}

func (p *Pass) Compile(cd graph.CompileData) error {
	for i, c := range channels {
		p.bound[i] = cd.ConnectedInputs[c.name]
	}
	return nil
}

// channelMask returns 1 for channels that are bound and enabled, 0 otherwise
func (p *Pass) channelMask() [6]float64 {
	var mask [6]float64
	for i, flag := range p.options.flags() {
		if p.bound[i] && *flag {
			mask[i] = 1
		}
	}
	return mask
}

// reader returns a texel fetch for tex. Masked-off channels read zero so the
// kernel never touches textures that are absent.
func reader(tex *texture.Texture, enabled float64) func(x, y int) core.Vec3 {
	if tex == nil || enabled == 0 {
		return func(x, y int) core.Vec3 { return core.Vec3{} }
	}
	return tex.GetVec3
}

func (p *Pass) Execute(rc *graph.RenderContext, data *graph.RenderData) error {
	mask := p.channelMask()
	var read [6]func(x, y int) core.Vec3
	for i, c := range channels {
		read[i] = reader(data.Texture(c.name), mask[i])
	}
	out := data.Texture(Output)

	mE, mRd, mLd, mRs, mLs, mLr := mask[0], mask[1], mask[2], mask[3], mask[4], mask[5]
	return rc.Dispatch(data.FrameDim.Width, data.FrameDim.Height, func(x, y int) {
		e := read[0](x, y).Multiply(mE)
		diffuse := read[1](x, y).MultiplyVec(read[2](x, y)).Multiply(mRd * mLd)
		specular := read[3](x, y).MultiplyVec(read[4](x, y)).Multiply(mRs * mLs)
		residual := read[5](x, y).Multiply(mLr)
		out.SetVec3(x, y, e.Add(diffuse).Add(specular).Add(residual))
	})
}
