// Package accumulate implements AccumulatePass, a progressive per-pixel
// average of its input over frames.
package accumulate

import (
	"fmt"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/geometry"
	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/log"
	"github.com/df07/go-restir-passes/pkg/renderer"
	"github.com/df07/go-restir-passes/pkg/scene"
	"github.com/df07/go-restir-passes/pkg/texture"
)

const TypeName = "AccumulatePass"

const (
	Input  = "input"
	Output = "output"
)

// Precision selects the accumulation storage
type Precision string

const (
	PrecisionSingle Precision = "single" // float32 running average
	PrecisionDouble Precision = "double" // float64 sums per pixel
)

var logger = log.New("accumulate")

// Options configures accumulation
type Options struct {
	Enabled       bool
	AutoReset     bool // Reset when the scene or camera changes
	MaxFrameCount int  // Stop after this many frames, 0 = unlimited
	PrecisionMode Precision
}

// DefaultOptions accumulates without limit in single precision
func DefaultOptions() Options {
	return Options{Enabled: true, AutoReset: true, PrecisionMode: PrecisionSingle}
}

// Info describes the pass for the registry
func Info() graph.PassInfo {
	return graph.PassInfo{
		Type:        TypeName,
		Description: "Temporal accumulation",
		Create: func(props graph.Properties) (graph.Pass, error) {
			return New(props)
		},
	}
}

// Pass averages its input over consecutive frames
type Pass struct {
	options Options
	scene   *scene.Scene

	frameCount int
	frameDim   graph.Dim
	sceneGen   uint64
	camera     geometry.CameraConfig

	average *texture.Texture      // Single precision running average
	sums    []renderer.PixelStats // Double precision sums
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

// FrameCount returns the number of frames in the current average
func (p *Pass) FrameCount() int {
	return p.frameCount
}

func (p *Pass) SetProperties(props graph.Properties) error {
	opts := p.options
	d := graph.NewDecoder(props)
	d.Bool("enabled", &opts.Enabled)
	d.Bool("autoReset", &opts.AutoReset)
	d.Int("maxFrameCount", &opts.MaxFrameCount)
	precision := string(opts.PrecisionMode)
	d.Enum("precisionMode", &precision, string(PrecisionSingle), string(PrecisionDouble))
	opts.PrecisionMode = Precision(precision)
	d.WarnUnused(logger, TypeName)
	if err := d.Err(); err != nil {
		return err
	}
	if opts.MaxFrameCount < 0 {
		return fmt.Errorf("%w: maxFrameCount must not be negative", graph.ErrInvalidConfig)
	}
	if opts != p.options {
		p.Reset()
	}
	p.options = opts
	return nil
}

func (p *Pass) Properties() graph.Properties {
	return graph.Properties{
		"enabled":       p.options.Enabled,
		"autoReset":     p.options.AutoReset,
		"maxFrameCount": p.options.MaxFrameCount,
		"precisionMode": string(p.options.PrecisionMode),
	}
}

func (p *Pass) SetScene(s *scene.Scene) {
	p.scene = s
	p.Reset()
}

// Reset discards the accumulated frames
func (p *Pass) Reset() {
	p.frameCount = 0
}

func (p *Pass) Reflect(cd graph.CompileData) *graph.Reflection {
	r := graph.NewReflection()
	r.AddInput(Input, "Input data to be temporally accumulated").FloatOnly()
	r.AddOutput(Output, "Output data that is temporally accumulated").WithFormat(texture.RGBA32Float)
	return r
}

func (p *Pass) Compile(cd graph.CompileData) error {
	if cd.FrameDim != p.frameDim || p.average == nil {
		p.frameDim = cd.FrameDim
		p.average = texture.New("accumulate.average", texture.RGBA32Float, cd.FrameDim.Width, cd.FrameDim.Height)
		p.sums = make([]renderer.PixelStats, cd.FrameDim.Width*cd.FrameDim.Height)
		p.Reset()
	}
	return nil
}

// sceneChanged reports scene edits and camera motion since the last frame
func (p *Pass) sceneChanged() bool {
	if p.scene == nil {
		return false
	}
	gen := p.scene.Generation()
	var cam geometry.CameraConfig
	if p.scene.Camera != nil {
		cam = p.scene.Camera.Config()
	}
	changed := gen != p.sceneGen || cam != p.camera
	p.sceneGen, p.camera = gen, cam
	return changed
}

func (p *Pass) Execute(rc *graph.RenderContext, data *graph.RenderData) error {
	in := data.Texture(Input)
	out := data.Texture(Output)

	changed := p.sceneChanged()
	if !p.options.Enabled {
		p.Reset()
		return out.CopyFrom(in)
	}
	if changed && p.options.AutoReset {
		logger.Debugf("scene or camera changed, restarting accumulation after %d frames", p.frameCount)
		p.Reset()
	}
	if p.options.MaxFrameCount > 0 && p.frameCount >= p.options.MaxFrameCount {
		return p.resolve(rc, out)
	}

	if p.frameCount == 0 {
		p.average.Clear()
		for i := range p.sums {
			p.sums[i].Reset()
		}
	}

	n := float32(p.frameCount)
	w := data.FrameDim.Width
	var err error
	switch p.options.PrecisionMode {
	case PrecisionDouble:
		err = rc.Dispatch(w, data.FrameDim.Height, func(x, y int) {
			stats := &p.sums[y*w+x]
			stats.AddSample(in.GetVec3(x, y))
		})
	default:
		err = rc.Dispatch(w, data.FrameDim.Height, func(x, y int) {
			avg := p.average.Get(x, y)
			v := in.Get(x, y)
			for c := range avg {
				avg[c] = core.Lerp(avg[c], v[c], 1/(n+1))
			}
			p.average.Set(x, y, avg)
		})
	}
	if err != nil {
		return err
	}
	p.frameCount++
	return p.resolve(rc, out)
}

// resolve writes the current average to out
func (p *Pass) resolve(rc *graph.RenderContext, out *texture.Texture) error {
	if p.options.PrecisionMode != PrecisionDouble {
		return out.CopyFrom(p.average)
	}
	w := out.Width
	return rc.Dispatch(w, out.Height, func(x, y int) {
		out.SetVec3(x, y, p.sums[y*w+x].GetColor())
	})
}
