package renderer

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/scene"
	"github.com/df07/go-restir-passes/pkg/texture"
)

func TestNewTileGrid(t *testing.T) {
	// Test tile grid generation for a 400x225 image with 64x64 tiles
	width, height, tileSize := 400, 225, 64
	tiles := NewTileGrid(width, height, tileSize)

	if len(tiles) != 7*4 {
		t.Errorf("Expected %d tiles, got %d", 7*4, len(tiles))
	}

	// Test that tiles cover the entire image without gaps or overlaps
	covered := make([][]bool, height)
	for y := range covered {
		covered[y] = make([]bool, width)
	}

	for _, tile := range tiles {
		for y := tile.Bounds.Min.Y; y < tile.Bounds.Max.Y; y++ {
			for x := tile.Bounds.Min.X; x < tile.Bounds.Max.X; x++ {
				if x >= width || y >= height {
					t.Fatalf("Tile %d extends beyond image bounds at (%d,%d)", tile.ID, x, y)
				}
				if covered[y][x] {
					t.Errorf("Pixel (%d,%d) is covered by multiple tiles", x, y)
				}
				covered[y][x] = true
			}
		}
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !covered[y][x] {
				t.Errorf("Pixel (%d,%d) is not covered by any tile", x, y)
			}
		}
	}
}

func TestWorkerPoolDispatchVisitsEveryPixelOnce(t *testing.T) {
	pool := NewWorkerPool(4, 8)
	pool.Start()
	defer pool.Stop()

	width, height := 37, 21
	counts := make([]atomic.Int32, width*height)
	for i := 0; i < 3; i++ {
		err := pool.Dispatch(width, height, func(x, y int) {
			counts[y*width+x].Add(1)
		})
		if err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
	}

	for i := range counts {
		if got := counts[i].Load(); got != 3 {
			t.Fatalf("pixel %d visited %d times, want 3", i, got)
		}
	}
}

func TestWorkerPoolDispatchIsABarrier(t *testing.T) {
	pool := NewWorkerPool(0, 4)
	pool.Start()
	defer pool.Stop()

	width, height := 16, 16
	a := make([]int, width*height)
	b := make([]int, width*height)

	pool.Dispatch(width, height, func(x, y int) { a[y*width+x] = x + y })
	// Second stage reads a neighbour written by another tile in the first stage
	pool.Dispatch(width, height, func(x, y int) {
		nx := (x + 5) % width
		b[y*width+x] = a[y*width+nx]
	})

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if want := (x+5)%width + y; b[y*width+x] != want {
				t.Fatalf("b(%d,%d) = %d, want %d", x, y, b[y*width+x], want)
			}
		}
	}
}

func TestWorkerPoolErrors(t *testing.T) {
	pool := NewWorkerPool(2, 4)
	pool.Start()

	err := pool.Dispatch(8, 8, func(x, y int) {
		if x == 3 && y == 5 {
			panic("boom")
		}
	})
	if err == nil {
		t.Error("kernel panic should surface as an error")
	}

	pool.Stop()
	pool.Stop() // Stop is idempotent
	if err := pool.Dispatch(8, 8, func(x, y int) {}); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("dispatch after stop err = %v", err)
	}
}

func TestPixelStats(t *testing.T) {
	var ps PixelStats
	if !ps.GetColor().IsZero() {
		t.Error("empty stats should be black")
	}
	ps.AddSample(core.NewVec3(1, 1, 1))
	ps.AddSample(core.NewVec3(3, 3, 3))

	if ps.GetColor() != core.NewVec3(2, 2, 2) {
		t.Errorf("GetColor = %v", ps.GetColor())
	}
	if math.Abs(ps.Variance()-2) > 1e-9 {
		t.Errorf("Variance = %v, want 2", ps.Variance())
	}
	ps.Reset()
	if ps.SampleCount != 0 {
		t.Error("Reset should clear samples")
	}
}

func TestComputeFrameStats(t *testing.T) {
	// Red, green, blue, black: luminances sum to 1
	tex := texture.New("frame", texture.RGBA32Float, 2, 2)
	tex.SetVec3(0, 0, core.NewVec3(1, 0, 0))
	tex.SetVec3(1, 0, core.NewVec3(0, 1, 0))
	tex.SetVec3(0, 1, core.NewVec3(0, 0, 1))

	fs := ComputeFrameStats(tex)
	if math.Abs(fs.MeanLuminance-0.25) > 1e-6 {
		t.Errorf("MeanLuminance = %v, want 0.25", fs.MeanLuminance)
	}
	if math.Abs(fs.MaxLuminance-0.7152) > 1e-6 {
		t.Errorf("MaxLuminance = %v", fs.MaxLuminance)
	}
	if fs.LogAverage <= 0 || fs.LogAverage >= fs.MeanLuminance {
		t.Errorf("LogAverage = %v should be positive and below the mean", fs.LogAverage)
	}

	tex.SetVec3(1, 1, core.NewVec3(math.NaN(), 0, 0))
	if fs := ComputeFrameStats(tex); fs.InvalidPixels != 1 {
		t.Errorf("InvalidPixels = %d, want 1", fs.InvalidPixels)
	}
}

// framePass writes the frame index into its output
type framePass struct{}

func (framePass) Reflect(cd graph.CompileData) *graph.Reflection {
	r := graph.NewReflection()
	r.AddOutput("out", "frame index")
	return r
}
func (framePass) Compile(cd graph.CompileData) error { return nil }
func (framePass) Properties() graph.Properties      { return graph.Properties{} }
func (framePass) Execute(rc *graph.RenderContext, data *graph.RenderData) error {
	out := data.Texture("out")
	v := float32(rc.FrameIndex)
	return rc.Dispatch(out.Width, out.Height, func(x, y int) {
		out.Set(x, y, [4]float32{v, v, v, 1})
	})
}

func newFrameGraph(t *testing.T) *graph.Graph {
	t.Helper()
	reg := graph.NewRegistry()
	reg.MustRegister(graph.PassInfo{Type: "Frame", Create: func(graph.Properties) (graph.Pass, error) { return framePass{}, nil }})
	g := graph.New("frames", reg)
	if err := g.AddPass("f", "Frame", nil); err != nil {
		t.Fatal(err)
	}
	if err := g.MarkOutput("f.out"); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestRenderFramesCapturesSelectedFrames(t *testing.T) {
	config := DefaultFrameConfig()
	config.Width, config.Height = 8, 4
	config.Frames = 6
	config.Capture = []int{0, 2, 5}

	fr, err := NewFrameRenderer(newFrameGraph(t), scene.NewCornellScene(), config)
	if err != nil {
		t.Fatal(err)
	}
	defer fr.Close()

	frames, errs := fr.RenderFrames(context.Background())
	var got []uint32
	var last FrameResult
	for f := range frames {
		got = append(got, f.FrameIndex)
		if v := f.Image.Get(3, 2)[0]; v != float32(f.FrameIndex) {
			t.Errorf("frame %d pixel = %v", f.FrameIndex, v)
		}
		last = f
	}
	if err := <-errs; err != nil {
		t.Fatal(err)
	}

	if len(got) != 3 || got[0] != 0 || got[1] != 2 || got[2] != 5 {
		t.Errorf("captured frames = %v, want [0 2 5]", got)
	}
	if !last.IsLast {
		t.Error("final captured frame should be marked last")
	}
}

func TestRenderFramesCancelled(t *testing.T) {
	config := DefaultFrameConfig()
	config.Width, config.Height = 4, 4
	config.Frames = 100

	fr, err := NewFrameRenderer(newFrameGraph(t), scene.NewCornellScene(), config)
	if err != nil {
		t.Fatal(err)
	}
	defer fr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	frames, errs := fr.RenderFrames(ctx)
	for range frames {
	}
	if err := <-errs; !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNewFrameRendererUnknownOutput(t *testing.T) {
	config := DefaultFrameConfig()
	config.Width, config.Height = 4, 4
	config.Output = "f.missing"
	if _, err := NewFrameRenderer(newFrameGraph(t), scene.NewCornellScene(), config); !errors.Is(err, graph.ErrUnknownField) {
		t.Errorf("err = %v, want ErrUnknownField", err)
	}
}

// stagedPass dispatches several dependent stages and cancels ctx from inside the first
type stagedPass struct {
	stages int
	ran    *int
	cancel context.CancelFunc
}

func (stagedPass) Reflect(cd graph.CompileData) *graph.Reflection {
	r := graph.NewReflection()
	r.AddOutput("out", "stage count")
	return r
}
func (stagedPass) Compile(cd graph.CompileData) error { return nil }
func (stagedPass) Properties() graph.Properties      { return graph.Properties{} }
func (p stagedPass) Execute(rc *graph.RenderContext, data *graph.RenderData) error {
	out := data.Texture("out")
	for i := 0; i < p.stages; i++ {
		err := rc.Dispatch(out.Width, out.Height, func(x, y int) {
			if x == 0 && y == 0 {
				p.cancel()
			}
			v := out.Get(x, y)[0]
			out.Set(x, y, [4]float32{v + 1, 0, 0, 1})
		})
		if err != nil {
			return err
		}
		*p.ran++
	}
	return nil
}

func TestRenderFrameFinishesAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ran := 0

	reg := graph.NewRegistry()
	reg.MustRegister(graph.PassInfo{Type: "Staged", Create: func(graph.Properties) (graph.Pass, error) {
		return stagedPass{stages: 3, ran: &ran, cancel: cancel}, nil
	}})
	g := graph.New("staged", reg)
	if err := g.AddPass("s", "Staged", nil); err != nil {
		t.Fatal(err)
	}
	if err := g.MarkOutput("s.out"); err != nil {
		t.Fatal(err)
	}

	config := DefaultFrameConfig()
	config.Width, config.Height = 8, 8
	fr, err := NewFrameRenderer(g, scene.NewCornellScene(), config)
	if err != nil {
		t.Fatal(err)
	}
	defer fr.Close()

	result, err := fr.RenderFrame(ctx)
	if err != nil {
		t.Fatalf("frame cancelled mid-way: %v", err)
	}
	if ran != 3 {
		t.Errorf("ran %d stages, want 3", ran)
	}
	if v := result.Image.Get(7, 7)[0]; v != 3 {
		t.Errorf("pixel = %v, want 3", v)
	}

	if _, err := fr.RenderFrame(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("next frame err = %v, want context.Canceled", err)
	}
	if ran != 3 {
		t.Errorf("cancelled frame still ran stages: %d", ran)
	}
}
