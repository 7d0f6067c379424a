package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/log"
	"github.com/df07/go-restir-passes/pkg/scene"
	"github.com/df07/go-restir-passes/pkg/texture"
)

var logger = log.New("renderer")

// FrameConfig contains configuration for frame rendering
type FrameConfig struct {
	Width      int
	Height     int
	Frames     int    // Number of frames to render
	Capture    []int  // Frame indices to deliver; empty delivers every frame
	Output     string // Graph output to capture, "pass.field"; empty uses the first marked output
	TileSize   int    // Size of each dispatch tile
	NumWorkers int    // Number of parallel workers (0 = use CPU count)
}

// DefaultFrameConfig returns sensible default values
func DefaultFrameConfig() FrameConfig {
	return FrameConfig{
		Width:      640,
		Height:     360,
		Frames:     1,
		TileSize:   16,
		NumWorkers: 0, // Auto-detect CPU count
	}
}

// FrameResult is a captured frame
type FrameResult struct {
	FrameIndex uint32
	Image      *texture.Texture // Copy of the captured output, safe to keep
	Stats      FrameStats
	Duration   time.Duration
	IsLast     bool
}

// FrameRenderer drives a render graph frame by frame on a worker pool
type FrameRenderer struct {
	graph      *graph.Graph
	scene      *scene.Scene
	config     FrameConfig
	workerPool *WorkerPool
	capture    map[int]bool
	frameIndex uint32
}

// NewFrameRenderer binds scene to g and compiles it at the configured size
func NewFrameRenderer(g *graph.Graph, s *scene.Scene, config FrameConfig) (*FrameRenderer, error) {
	if config.Output == "" {
		outputs := g.Outputs()
		if len(outputs) == 0 {
			return nil, graph.ErrMissingOutput
		}
		config.Output = outputs[0]
	}

	g.SetScene(s)
	if err := g.Compile(graph.Dim{Width: config.Width, Height: config.Height}); err != nil {
		return nil, err
	}
	if g.Output(config.Output) == nil {
		return nil, fmt.Errorf("%w: %s is not a graph output", graph.ErrUnknownField, config.Output)
	}

	fr := &FrameRenderer{
		graph:      g,
		scene:      s,
		config:     config,
		workerPool: NewWorkerPool(config.NumWorkers, config.TileSize),
	}
	if len(config.Capture) > 0 {
		fr.capture = map[int]bool{}
		for _, f := range config.Capture {
			fr.capture[f] = true
		}
	}
	fr.workerPool.Start()
	return fr, nil
}

// Close stops the worker pool
func (fr *FrameRenderer) Close() {
	fr.workerPool.Stop()
}

// Resize recompiles the graph for a new frame size
func (fr *FrameRenderer) Resize(width, height int) error {
	if err := fr.graph.Compile(graph.Dim{Width: width, Height: height}); err != nil {
		return err
	}
	fr.config.Width, fr.config.Height = width, height
	return nil
}

// RenderFrame executes the graph once and advances the frame index. ctx is
// checked before the frame starts; a started frame runs to completion so every
// pass and resampling instance sees the same sequence of frames.
func (fr *FrameRenderer) RenderFrame(ctx context.Context) (FrameResult, error) {
	if err := ctx.Err(); err != nil {
		return FrameResult{}, err
	}
	index := fr.frameIndex
	fr.scene.Update(index)

	start := time.Now()
	rc := &graph.RenderContext{Dispatcher: fr.workerPool, FrameIndex: index}
	if err := fr.graph.Execute(rc); err != nil {
		return FrameResult{}, fmt.Errorf("frame %d: %w", index, err)
	}
	fr.frameIndex++

	out := fr.graph.Output(fr.config.Output)
	snapshot := texture.New(out.Name, out.Format, out.Width, out.Height)
	if err := snapshot.CopyFrom(out); err != nil {
		return FrameResult{}, err
	}
	return FrameResult{
		FrameIndex: index,
		Image:      snapshot,
		Stats:      ComputeFrameStats(snapshot),
		Duration:   time.Since(start),
	}, nil
}

func (fr *FrameRenderer) wants(frame int) bool {
	return fr.capture == nil || fr.capture[frame]
}

// RenderFrames renders config.Frames frames in the background. Captured frames
// arrive on the first channel; the error channel carries at most one error.
// Cancellation takes effect between frames.
func (fr *FrameRenderer) RenderFrames(ctx context.Context) (<-chan FrameResult, <-chan error) {
	frameChan := make(chan FrameResult, 1)
	errChan := make(chan error, 1)

	go func() {
		defer close(frameChan)
		defer close(errChan)

		logger.Infof("Rendering %d frames at %dx%d", fr.config.Frames, fr.config.Width, fr.config.Height)

		for frame := 0; frame < fr.config.Frames; frame++ {
			// Check if client disconnected before starting this frame
			select {
			case <-ctx.Done():
				logger.Infof("Rendering cancelled before frame %d", frame)
				errChan <- ctx.Err()
				return
			default:
			}

			result, err := fr.RenderFrame(ctx)
			if err != nil {
				errChan <- err
				return
			}
			logger.Debugf("Frame %d completed in %v (mean luminance %.4f)", frame, result.Duration, result.Stats.MeanLuminance)
			if result.Stats.InvalidPixels > 0 {
				logger.Warningf("Frame %d has %d NaN/Inf pixels", frame, result.Stats.InvalidPixels)
			}

			if !fr.wants(frame) {
				continue
			}
			result.IsLast = frame == fr.config.Frames-1
			select {
			case frameChan <- result:
			case <-ctx.Done():
				return
			}
		}
	}()

	return frameChan, errChan
}
