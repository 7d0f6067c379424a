// Package tonemap implements ToneMapper, which maps HDR radiance to a
// display-referred image.
package tonemap

import (
	"fmt"
	"math"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/log"
	"github.com/df07/go-restir-passes/pkg/renderer"
	"github.com/df07/go-restir-passes/pkg/texture"
)

const TypeName = "ToneMapper"

const (
	Src = "src"
	Dst = "dst"
)

// Operator is a tone mapping curve
type Operator string

const (
	OperatorLinear   Operator = "linear"
	OperatorReinhard Operator = "reinhard"
	OperatorACES     Operator = "aces"
)

// middleGray is the luminance auto exposure maps the log-average to
const middleGray = 0.18

var logger = log.New("tonemap")

// Options configures the tone mapper
type Options struct {
	Operator             Operator
	ExposureCompensation float64 // Stops
	AutoExposure         bool
	Gamma                float64 // Display gamma, 1 disables encoding
	Clamp                bool
}

// DefaultOptions uses the ACES curve with a 2.2 display gamma
func DefaultOptions() Options {
	return Options{Operator: OperatorACES, Gamma: 2.2, Clamp: true}
}

// Info describes the pass for the registry
func Info() graph.PassInfo {
	return graph.PassInfo{
		Type:        TypeName,
		Description: "Tone-map a color-buffer",
		Create: func(props graph.Properties) (graph.Pass, error) {
			return New(props)
		},
	}
}

// Pass tone maps src into dst
type Pass struct {
	options Options

	lastExposure float64
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

// Exposure returns the linear exposure scale used by the last execution
func (p *Pass) Exposure() float64 {
	return p.lastExposure
}

func (p *Pass) SetProperties(props graph.Properties) error {
	opts := p.options
	d := graph.NewDecoder(props)
	op := string(opts.Operator)
	d.Enum("operator", &op, string(OperatorLinear), string(OperatorReinhard), string(OperatorACES))
	opts.Operator = Operator(op)
	d.Float("exposureCompensation", &opts.ExposureCompensation)
	d.Bool("autoExposure", &opts.AutoExposure)
	d.Float("gamma", &opts.Gamma)
	d.Bool("clamp", &opts.Clamp)
	d.WarnUnused(logger, TypeName)
	if err := d.Err(); err != nil {
		return err
	}
	if opts.Gamma <= 0 {
		return fmt.Errorf("%w: gamma must be positive, got %v", graph.ErrInvalidConfig, opts.Gamma)
	}
	p.options = opts
	return nil
}

func (p *Pass) Properties() graph.Properties {
	return graph.Properties{
		"operator":             string(p.options.Operator),
		"exposureCompensation": p.options.ExposureCompensation,
		"autoExposure":         p.options.AutoExposure,
		"gamma":                p.options.Gamma,
		"clamp":                p.options.Clamp,
	}
}

func (p *Pass) Reflect(cd graph.CompileData) *graph.Reflection {
	r := graph.NewReflection()
	r.AddInput(Src, "Source texture").FloatOnly()
	r.AddOutput(Dst, "Tone-mapped output texture").WithFormat(texture.RGBA32Float)
	return r
}

func (p *Pass) Compile(cd graph.CompileData) error {
	return nil
}

// exposure combines exposure compensation with the optional auto exposure key
func (p *Pass) exposure(src *texture.Texture) float64 {
	scale := math.Exp2(p.options.ExposureCompensation)
	if p.options.AutoExposure {
		stats := renderer.ComputeFrameStats(src)
		if stats.LogAverage > 0 {
			scale *= middleGray / stats.LogAverage
		}
	}
	return scale
}

func (p *Pass) Execute(rc *graph.RenderContext, data *graph.RenderData) error {
	src := data.Texture(Src)
	dst := data.Texture(Dst)
	scale := p.exposure(src)
	p.lastExposure = scale
	opts := p.options

	return rc.Dispatch(data.FrameDim.Width, data.FrameDim.Height, func(x, y int) {
		c := Apply(opts.Operator, src.GetVec3(x, y).Multiply(scale))
		if opts.Clamp {
			c = c.Clamp(0, 1)
		}
		if opts.Gamma != 1 {
			c = c.GammaCorrect(opts.Gamma)
		}
		dst.SetVec3(x, y, c)
	})
}

// Apply maps an exposed linear color through op
func Apply(op Operator, c core.Vec3) core.Vec3 {
	switch op {
	case OperatorReinhard:
		return c.Multiply(1 / (1 + c.Luminance()))
	case OperatorACES:
		// Narkowicz's fit, with the 0.6 pre-scale that matches the reference exposure
		aces := func(x float64) float64 {
			x *= 0.6
			return core.Saturate((x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14))
		}
		return core.NewVec3(aces(c.X), aces(c.Y), aces(c.Z))
	default:
		return c
	}
}
