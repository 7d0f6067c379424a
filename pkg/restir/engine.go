// Package restir implements screen-space spatiotemporal reservoir resampling
// of direct lighting.
package restir

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/log"
	"github.com/df07/go-restir-passes/pkg/scene"
	"github.com/df07/go-restir-passes/pkg/texture"
)

var (
	ErrNoScene      = errors.New("restir: no scene")
	ErrNoFrame      = errors.New("restir: no frame in progress")
	ErrInvalidFrame = errors.New("restir: invalid frame dimensions")
)

var logger = log.New("restir")

// FinalSample is the light sample a pixel is shaded with. Li already includes
// the reservoir's contribution weight.
type FinalSample struct {
	Dir      core.Vec3
	Distance float64
	Li       core.Vec3
	Valid    bool
}

// Engine owns the reservoirs and history of one resampling instance.
// An engine is driven by a single goroutine: BeginFrame, fill SurfaceData,
// Resample, EndFrame.
type Engine struct {
	id      uuid.UUID
	options Options

	scene     *scene.Scene
	sceneGen  uint64
	width     int
	height    int
	frame     uint32
	inFrame   bool
	motion    *texture.Texture
	frameSeen int

	surface     *SurfaceData
	prevSurface *SurfaceData
	reservoirs  []Reservoir
	history     []Reservoir
	scratch     []Reservoir
	hasHistory  bool
	final       []FinalSample
}

// New validates options and returns a fresh engine with no history
func New(options Options) (*Engine, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{id: uuid.New(), options: options}
	logger.Debugf("created engine %s", e.id)
	return e, nil
}

// ID identifies this engine instance. Re-created engines get new ids.
func (e *Engine) ID() uuid.UUID {
	return e.id
}

// Options returns the engine configuration
func (e *Engine) Options() Options {
	return e.options
}

// SetScene binds the scene lights are sampled from and drops all history
func (e *Engine) SetScene(s *scene.Scene) {
	e.scene = s
	if s != nil {
		e.sceneGen = s.Generation()
	}
	e.ResetHistory()
}

// ResetHistory discards temporal history
func (e *Engine) ResetHistory() {
	e.hasHistory = false
	for i := range e.history {
		e.history[i] = NewReservoir()
	}
}

// HasHistory reports whether the next frame can reuse temporal samples
func (e *Engine) HasHistory() bool {
	return e.hasHistory
}

// BeginFrame starts a frame. motion holds per-pixel offsets from the current
// pixel to where the surface was in the previous frame and may be nil.
func (e *Engine) BeginFrame(dim graph.Dim, frameIndex uint32, motion *texture.Texture) error {
	if dim.Width <= 0 || dim.Height <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidFrame, dim)
	}
	if e.scene == nil {
		return ErrNoScene
	}
	if dim.Width != e.width || dim.Height != e.height {
		e.allocate(dim.Width, dim.Height)
	}
	if gen := e.scene.Generation(); gen != e.sceneGen {
		logger.Debugf("engine %s: scene generation %d -> %d, dropping history", e.id, e.sceneGen, gen)
		e.sceneGen = gen
		e.ResetHistory()
	}
	e.frame = frameIndex
	e.motion = motion
	e.inFrame = true
	e.surface.Invalidate()
	return nil
}

func (e *Engine) allocate(width, height int) {
	if e.width != 0 {
		logger.Debugf("engine %s: resized %dx%d -> %dx%d, dropping history", e.id, e.width, e.height, width, height)
	}
	e.width, e.height = width, height
	n := width * height
	e.surface = NewSurfaceData(width, height)
	e.prevSurface = NewSurfaceData(width, height)
	e.reservoirs = make([]Reservoir, n)
	e.history = make([]Reservoir, n)
	e.scratch = make([]Reservoir, n)
	e.final = make([]FinalSample, n)
	e.hasHistory = false
	for i := range e.history {
		e.history[i] = NewReservoir()
	}
}

// SurfaceData returns the buffer the caller fills between BeginFrame and Resample
func (e *Engine) SurfaceData() *SurfaceData {
	return e.surface
}

// Resample runs candidate generation, temporal and spatial reuse, and returns
// the final sample of every pixel, indexed y*width+x.
func (e *Engine) Resample(rc *graph.RenderContext) ([]FinalSample, error) {
	if !e.inFrame {
		return nil, ErrNoFrame
	}
	if err := rc.Dispatch(e.width, e.height, e.initialCandidates); err != nil {
		return nil, fmt.Errorf("initial candidates: %w", err)
	}
	if e.options.UseTemporalResampling && e.hasHistory {
		if err := rc.Dispatch(e.width, e.height, e.temporalReuse); err != nil {
			return nil, fmt.Errorf("temporal reuse: %w", err)
		}
	}
	if e.options.UseSpatialResampling && e.options.SpatialNeighborCount > 0 {
		for iter := 0; iter < e.options.SpatialIterations; iter++ {
			kernel := func(x, y int) { e.spatialReuse(iter, x, y) }
			if err := rc.Dispatch(e.width, e.height, kernel); err != nil {
				return nil, fmt.Errorf("spatial reuse %d: %w", iter, err)
			}
			e.reservoirs, e.scratch = e.scratch, e.reservoirs
		}
	}
	if err := rc.Dispatch(e.width, e.height, e.finalSample); err != nil {
		return nil, fmt.Errorf("final samples: %w", err)
	}
	return e.final, nil
}

// EndFrame stores this frame's reservoirs and surfaces as history
func (e *Engine) EndFrame() {
	if !e.inFrame {
		return
	}
	e.inFrame = false
	e.reservoirs, e.history = e.history, e.reservoirs
	e.surface, e.prevSurface = e.prevSurface, e.surface
	e.hasHistory = true
	e.frameSeen++
}

// Reservoir returns the current reservoir at (x, y)
func (e *Engine) Reservoir(x, y int) Reservoir {
	if x < 0 || y < 0 || x >= e.width || y >= e.height {
		return NewReservoir()
	}
	if e.inFrame {
		return e.reservoirs[y*e.width+x]
	}
	return e.history[y*e.width+x]
}

// FramesRendered counts completed frames since creation
func (e *Engine) FramesRendered() int {
	return e.frameSeen
}
