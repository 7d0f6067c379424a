package restir

import (
	"errors"
	"math"
	"testing"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/df07/go-restir-passes/pkg/geometry"
	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/material"
	"github.com/df07/go-restir-passes/pkg/scene"
	"github.com/df07/go-restir-passes/pkg/texture"
)

type serialDispatcher struct{}

func (serialDispatcher) Dispatch(width, height int, kernel func(x, y int)) error {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			kernel(x, y)
		}
	}
	return nil
}

func newRenderContext(frame uint32) *graph.RenderContext {
	return &graph.RenderContext{Dispatcher: serialDispatcher{}, FrameIndex: frame}
}

// newLitFloor builds a floor at y=0 lit by a small downward-facing quad light at y=1
func newLitFloor(t *testing.T) *scene.Scene {
	t.Helper()
	cam := geometry.NewCamera(geometry.CameraConfig{
		Center: core.NewVec3(0, 3, 0.01),
		LookAt: core.NewVec3(0, 0, 0),
		Up:     core.NewVec3(0, 1, 0),
	})
	s := scene.New("lit-floor", cam)
	s.AddMesh(geometry.NewQuadMesh("floor", core.NewVec3(-2, 0, -2), core.NewVec3(0, 0, 4), core.NewVec3(4, 0, 0),
		material.NewLambertian(core.Splat(0.5))))
	s.AddQuadLight("light", core.NewVec3(-0.25, 1, -0.25), core.NewVec3(0.5, 0, 0), core.NewVec3(0, 0, 0.5), core.Splat(10))
	if err := s.Preprocess(); err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}
	return s
}

func floorSurface(x, y int) SurfaceSample {
	up := core.NewVec3(0, 1, 0)
	return SurfaceSample{
		Position:  core.NewVec3(float64(x)*0.1-0.2, 0, float64(y)*0.1-0.2),
		Normal:    up,
		GeoNormal: up,
		View:      up,
		Material:  material.Params{Diffuse: core.Splat(0.5), Roughness: 1},
		Depth:     3,
		Valid:     true,
	}
}

// fillSurface marks every pixel as floor except those rejected by invalid
func fillSurface(e *Engine, invalid func(x, y int) bool) {
	sd := e.SurfaceData()
	for y := 0; y < sd.Height; y++ {
		for x := 0; x < sd.Width; x++ {
			if invalid != nil && invalid(x, y) {
				continue
			}
			sd.Set(x, y, floorSurface(x, y))
		}
	}
}

func renderFrame(t *testing.T, e *Engine, dim graph.Dim, frame uint32, invalid func(x, y int) bool) []FinalSample {
	t.Helper()
	if err := e.BeginFrame(dim, frame, nil); err != nil {
		t.Fatalf("BeginFrame failed: %v", err)
	}
	fillSurface(e, invalid)
	final, err := e.Resample(newRenderContext(frame))
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	out := append([]FinalSample(nil), final...)
	e.EndFrame()
	return out
}

func TestReservoirUpdate(t *testing.T) {
	r := NewReservoir()
	if r.HasSample() {
		t.Fatal("new reservoir should be empty")
	}

	a := LightSample{LightIndex: 0}
	b := LightSample{LightIndex: 1}
	if !r.Update(a, 1, 2, 0.5) {
		t.Error("first positive candidate should always be selected")
	}
	if r.Update(b, 0, 0, 0) {
		t.Error("zero-weight candidate must never be selected")
	}
	if r.M != 2 {
		t.Errorf("M = %v, want 2", r.M)
	}
	if r.WeightSum != 1 {
		t.Errorf("WeightSum = %v, want 1", r.WeightSum)
	}
	if r.Update(b, -3, 1, 0) || r.WeightSum < 0 {
		t.Errorf("negative weights must be ignored, WeightSum = %v", r.WeightSum)
	}
	if !r.Update(b, 3, 4, 0.5) {
		t.Error("u*wSum = 2 < 3 should select the candidate")
	}
	if r.Sample != b || r.TargetPdf != 4 {
		t.Errorf("got sample %+v target %v", r.Sample, r.TargetPdf)
	}

	r.Finalize(r.M)
	want := 4.0 / (4 * 4)
	if math.Abs(r.W-want) > 1e-12 {
		t.Errorf("W = %v, want %v", r.W, want)
	}
}

func TestReservoirFinalizeDegenerate(t *testing.T) {
	testCases := []struct {
		name string
		r    Reservoir
		z    float64
	}{
		{"empty", NewReservoir(), 1},
		{"zero z", Reservoir{Sample: LightSample{LightIndex: 0}, TargetPdf: 1, WeightSum: 1, M: 1}, 0},
		{"zero target", Reservoir{Sample: LightSample{LightIndex: 0}, WeightSum: 1, M: 1}, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := tc.r
			r.W = 7
			r.Finalize(tc.z)
			if r.W != 0 {
				t.Errorf("W = %v, want 0", r.W)
			}
		})
	}
}

func TestReservoirSelectionFrequency(t *testing.T) {
	weights := []float64{1, 2, 5, 0, 2}
	counts := make([]int, len(weights))
	ps := core.NewPixelSampler(42, 0, 0, 0)
	const trials = 20000
	for i := 0; i < trials; i++ {
		r := NewReservoir()
		for j, w := range weights {
			r.Update(LightSample{LightIndex: j}, w, w, ps.Get1D())
		}
		counts[r.Sample.LightIndex]++
	}
	total := 10.0
	for j, w := range weights {
		got := float64(counts[j]) / trials
		if math.Abs(got-w/total) > 0.02 {
			t.Errorf("candidate %d chosen %.3f of the time, want %.3f", j, got, w/total)
		}
	}
}

func TestReservoirMergeAndClamp(t *testing.T) {
	a := Reservoir{Sample: LightSample{LightIndex: 0}, TargetPdf: 2, WeightSum: 4, M: 4, W: 0.5, Age: 3}
	b := NewReservoir()
	b.M = 2

	out := NewReservoir()
	out.Merge(a, 2, 0.9)
	out.Merge(b, 0, 0.1)
	if out.M != 6 {
		t.Errorf("M = %v, want 6", out.M)
	}
	if out.Sample != a.Sample || out.Age != 3 {
		t.Errorf("merged reservoir lost the sample: %+v", out)
	}
	if out.WeightSum != 4 {
		t.Errorf("WeightSum = %v, want 4", out.WeightSum)
	}

	out.ClampM(3)
	if out.M != 3 || out.WeightSum != 2 {
		t.Errorf("after clamp M=%v WeightSum=%v, want 3 and 2", out.M, out.WeightSum)
	}
}

func TestOptionsValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(o *Options)
		valid  bool
	}{
		{"defaults", func(o *Options) {}, true},
		{"no initial samples", func(o *Options) { o.InitialLightSamples = 0 }, false},
		{"negative history", func(o *Options) { o.MaxHistoryLength = -1 }, false},
		{"negative radius", func(o *Options) { o.SpatialGatherRadius = -1 }, false},
		{"normal threshold above one", func(o *Options) { o.NormalThreshold = 1.5 }, false},
		{"unknown bias correction", func(o *Options) { o.BiasCorrection = "pairwise" }, false},
		{"no reuse", func(o *Options) { o.UseTemporalResampling, o.UseSpatialResampling = false, false }, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			o := DefaultOptions()
			tc.mutate(&o)
			err := o.Validate()
			if tc.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.valid && !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("err = %v, want ErrInvalidOptions", err)
			}
		})
	}
}

func TestOptionsDecode(t *testing.T) {
	o := DefaultOptions()
	d := graph.NewDecoder(graph.Properties{
		"initialLightSamples": float64(8),
		"biasCorrection":      "none",
		"spatialGatherRadius": 12,
		"seed":                float64(7),
	})
	o.Decode(d)
	if err := d.Err(); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if o.InitialLightSamples != 8 || o.BiasCorrection != BiasCorrectionNone || o.SpatialGatherRadius != 12 || o.Seed != 7 {
		t.Errorf("decoded options = %+v", o)
	}
	if !o.UseTemporalResampling {
		t.Error("missing keys should keep their defaults")
	}

	// properties written by one engine configure an identical one
	again := DefaultOptions()
	again.Decode(graph.NewDecoder(o.Properties()))
	if again != o {
		t.Errorf("decoded %+v, want %+v", again, o)
	}
}

func TestEngineRequiresSceneAndFrame(t *testing.T) {
	e, err := New(DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if err := e.BeginFrame(graph.Dim{Width: 2, Height: 2}, 0, nil); !errors.Is(err, ErrNoScene) {
		t.Errorf("BeginFrame without scene: err = %v, want ErrNoScene", err)
	}
	e.SetScene(newLitFloor(t))
	if err := e.BeginFrame(graph.Dim{}, 0, nil); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("BeginFrame with zero dims: err = %v, want ErrInvalidFrame", err)
	}
	if _, err := e.Resample(newRenderContext(0)); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Resample outside frame: err = %v, want ErrNoFrame", err)
	}

	bad := DefaultOptions()
	bad.SpatialIterations = -1
	if _, err := New(bad); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("New with invalid options: err = %v", err)
	}
}

func TestInvalidSurfaceYieldsInvalidSample(t *testing.T) {
	e, err := New(DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	e.SetScene(newLitFloor(t))
	dim := graph.Dim{Width: 6, Height: 4}
	invalid := func(x, y int) bool { return x < 2 }

	for frame := uint32(0); frame < 3; frame++ {
		final := renderFrame(t, e, dim, frame, invalid)
		for y := 0; y < dim.Height; y++ {
			for x := 0; x < dim.Width; x++ {
				fs := final[y*dim.Width+x]
				if invalid(x, y) {
					if fs != (FinalSample{}) {
						t.Fatalf("frame %d pixel (%d,%d): invalid surface produced %+v", frame, x, y, fs)
					}
					continue
				}
				if !fs.Valid || fs.Li.Luminance() <= 0 {
					t.Errorf("frame %d pixel (%d,%d): lit floor produced %+v", frame, x, y, fs)
				}
				if fs.Dir.Y <= 0 {
					t.Errorf("frame %d pixel (%d,%d): light direction %v should point up", frame, x, y, fs.Dir)
				}
			}
		}
	}
}

func TestEngineDeterministic(t *testing.T) {
	s := newLitFloor(t)
	dim := graph.Dim{Width: 5, Height: 5}
	run := func() [][]FinalSample {
		e, err := New(DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		e.SetScene(s)
		var frames [][]FinalSample
		for frame := uint32(0); frame < 3; frame++ {
			frames = append(frames, renderFrame(t, e, dim, frame, nil))
		}
		return frames
	}

	a, b := run(), run()
	for f := range a {
		for i := range a[f] {
			if a[f][i] != b[f][i] {
				t.Fatalf("frame %d pixel %d differs: %+v vs %+v", f, i, a[f][i], b[f][i])
			}
		}
	}
}

func TestSeedChangesSamples(t *testing.T) {
	s := newLitFloor(t)
	dim := graph.Dim{Width: 4, Height: 4}
	opts := DefaultOptions()
	opts.UseSpatialResampling = false

	e1, _ := New(opts)
	opts.Seed = 99
	e2, _ := New(opts)
	e1.SetScene(s)
	e2.SetScene(s)
	a := renderFrame(t, e1, dim, 0, nil)
	b := renderFrame(t, e2, dim, 0, nil)
	same := 0
	for i := range a {
		if a[i] == b[i] {
			same++
		}
	}
	if same == len(a) {
		t.Error("different seeds produced identical samples")
	}
}

func TestTemporalHistory(t *testing.T) {
	opts := DefaultOptions()
	opts.UseSpatialResampling = false
	opts.MaxHistoryLength = 4
	e, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	e.SetScene(newLitFloor(t))
	dim := graph.Dim{Width: 3, Height: 3}

	renderFrame(t, e, dim, 0, nil)
	if !e.HasHistory() {
		t.Fatal("history should exist after the first frame")
	}
	m0 := e.Reservoir(1, 1).M

	renderFrame(t, e, dim, 1, nil)
	r := e.Reservoir(1, 1)
	if r.M <= m0 {
		t.Errorf("temporal reuse should grow M beyond %v, got %v", m0, r.M)
	}

	for frame := uint32(2); frame < 10; frame++ {
		renderFrame(t, e, dim, frame, nil)
	}
	limit := float64(opts.InitialLightSamples * (opts.MaxHistoryLength + 1))
	if got := e.Reservoir(1, 1).M; got > limit {
		t.Errorf("M = %v exceeds history clamp %v", got, limit)
	}
}

func TestHistoryDroppedOnChanges(t *testing.T) {
	testCases := []struct {
		name   string
		change func(e *Engine, s *scene.Scene) graph.Dim
	}{
		{"resize", func(e *Engine, s *scene.Scene) graph.Dim { return graph.Dim{Width: 5, Height: 2} }},
		{"set scene", func(e *Engine, s *scene.Scene) graph.Dim {
			e.SetScene(s)
			return graph.Dim{Width: 3, Height: 2}
		}},
		{"scene edit", func(e *Engine, s *scene.Scene) graph.Dim {
			if err := s.Preprocess(); err != nil {
				t.Fatal(err)
			}
			return graph.Dim{Width: 3, Height: 2}
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newLitFloor(t)
			e, _ := New(DefaultOptions())
			e.SetScene(s)
			renderFrame(t, e, graph.Dim{Width: 3, Height: 2}, 0, nil)

			dim := tc.change(e, s)
			if err := e.BeginFrame(dim, 1, nil); err != nil {
				t.Fatal(err)
			}
			if e.HasHistory() {
				t.Error("history should have been dropped")
			}
		})
	}
}

func TestMotionVectorsOutsideFrame(t *testing.T) {
	opts := DefaultOptions()
	opts.UseSpatialResampling = false
	e, _ := New(opts)
	e.SetScene(newLitFloor(t))
	dim := graph.Dim{Width: 3, Height: 3}
	renderFrame(t, e, dim, 0, nil)

	// every pixel reprojects off screen, so no history is reused
	mvec := texture.New("mvec", texture.RG32Float, 3, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			mvec.Set(x, y, [4]float32{100, 100, 0, 0})
		}
	}
	if err := e.BeginFrame(dim, 1, mvec); err != nil {
		t.Fatal(err)
	}
	fillSurface(e, nil)
	if _, err := e.Resample(newRenderContext(1)); err != nil {
		t.Fatal(err)
	}
	if m := e.Reservoir(1, 1).M; m != float64(opts.InitialLightSamples) {
		t.Errorf("M = %v, want only the %d fresh candidates", m, opts.InitialLightSamples)
	}
	e.EndFrame()
}

func TestNewEngineHasFreshIdentity(t *testing.T) {
	a, _ := New(DefaultOptions())
	b, _ := New(DefaultOptions())
	if a.ID() == b.ID() {
		t.Error("engines should have distinct ids")
	}
	if b.HasHistory() || b.FramesRendered() != 0 {
		t.Error("new engine should start without history")
	}
}
