package graph

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/df07/go-restir-passes/pkg/log"
	"github.com/df07/go-restir-passes/pkg/scene"
	"github.com/df07/go-restir-passes/pkg/texture"
)

// serialDispatcher runs kernels on the calling goroutine
type serialDispatcher struct{}

func (serialDispatcher) Dispatch(width, height int, kernel func(x, y int)) error {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			kernel(x, y)
		}
	}
	return nil
}

// mockPass fills its output with a constant plus its optional input
type mockPass struct {
	value     float32
	inputs    []string
	required  []string
	inFormat  *texture.Format
	outFormat *texture.Format
	floatOnly bool
	compiles  int
	executes  int
	lastScene *scene.Scene
	lastCD    CompileData
}

func (m *mockPass) Reflect(cd CompileData) *Reflection {
	r := NewReflection()
	for _, in := range m.inputs {
		f := r.AddInput(in, "optional input").AsOptional()
		if m.inFormat != nil {
			f.WithFormat(*m.inFormat)
		}
		if m.floatOnly {
			f.FloatOnly()
		}
	}
	for _, in := range m.required {
		r.AddInput(in, "required input")
	}
	out := r.AddOutput("out", "constant output")
	if m.outFormat != nil {
		out.WithFormat(*m.outFormat)
	}
	r.AddOutput("extra", "optional output").AsOptional()
	return r
}

func (m *mockPass) Compile(cd CompileData) error {
	m.compiles++
	m.lastCD = cd
	return nil
}

func (m *mockPass) Execute(rc *RenderContext, data *RenderData) error {
	m.executes++
	out := data.Texture("out")
	in := data.Texture("in")
	return rc.Dispatch(data.FrameDim.Width, data.FrameDim.Height, func(x, y int) {
		v := m.value
		if in != nil {
			v += in.Get(x, y)[0]
		}
		out.Set(x, y, [4]float32{v, 0, 0, 1})
	})
}

func (m *mockPass) Properties() Properties {
	return Properties{"value": float64(m.value)}
}

func (m *mockPass) SetScene(s *scene.Scene) {
	m.lastScene = s
}

func (m *mockPass) SetProperties(props Properties) error {
	v := float64(m.value)
	d := NewDecoder(props)
	d.Float("value", &v)
	m.value = float32(v)
	return d.Err()
}

func newTestRegistry(passes map[string]*mockPass) *Registry {
	r := NewRegistry()
	for name, p := range passes {
		p := p
		r.MustRegister(PassInfo{Type: name, Create: func(Properties) (Pass, error) { return p, nil }})
	}
	return r
}

func testContext() *RenderContext {
	return &RenderContext{Dispatcher: serialDispatcher{}}
}

func TestGraphExecutesInDependencyOrder(t *testing.T) {
	a := &mockPass{value: 1}
	b := &mockPass{value: 10, inputs: []string{"in"}}
	g := New("chain", newTestRegistry(map[string]*mockPass{"A": a, "B": b}))

	// Add consumer first so ordering comes from the edge, not insertion
	if err := g.AddPass("b", "B", nil); err != nil {
		t.Fatal(err)
	}
	if err := g.AddPass("a", "A", nil); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge("a.out", "b.in"); err != nil {
		t.Fatal(err)
	}
	if err := g.MarkOutput("b.out"); err != nil {
		t.Fatal(err)
	}
	if err := g.Compile(Dim{Width: 3, Height: 2}); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if order := strings.Join(g.Order(), ","); order != "a,b" {
		t.Errorf("order = %s, want a,b", order)
	}
	if err := g.Execute(testContext()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := g.Output("b.out").Get(2, 1)[0]; got != 11 {
		t.Errorf("output = %v, want 11", got)
	}
	if !b.lastCD.ConnectedInputs["in"] || !a.lastCD.ConnectedOutputs["out"] {
		t.Errorf("compile data missing connections: a=%+v b=%+v", a.lastCD, b.lastCD)
	}
}

func TestGraphCompileErrors(t *testing.T) {
	uintFormat := texture.RGBA32Uint
	halfFormat := texture.RGBA16Float

	tests := []struct {
		name    string
		build   func(g *Graph) error
		dim     Dim
		wantErr error
	}{
		{
			name:    "no outputs",
			build:   func(g *Graph) error { return g.AddPass("a", "A", nil) },
			dim:     Dim{4, 4},
			wantErr: ErrMissingOutput,
		},
		{
			name: "missing required input",
			build: func(g *Graph) error {
				g.AddPass("r", "Required", nil)
				return g.MarkOutput("r.out")
			},
			dim:     Dim{4, 4},
			wantErr: ErrMissingInput,
		},
		{
			name: "unknown output field",
			build: func(g *Graph) error {
				g.AddPass("a", "A", nil)
				return g.MarkOutput("a.nothing")
			},
			dim:     Dim{4, 4},
			wantErr: ErrUnknownField,
		},
		{
			name: "unknown input field",
			build: func(g *Graph) error {
				g.AddPass("a", "A", nil)
				g.AddPass("b", "A", nil)
				g.AddEdge("a.out", "b.nothing")
				return g.MarkOutput("b.out")
			},
			dim:     Dim{4, 4},
			wantErr: ErrUnknownField,
		},
		{
			name: "format mismatch",
			build: func(g *Graph) error {
				g.AddPass("a", "A", nil)
				g.AddPass("u", "Uint", nil)
				g.AddEdge("a.out", "u.in")
				return g.MarkOutput("u.out")
			},
			dim:     Dim{4, 4},
			wantErr: ErrFormatMismatch,
		},
		{
			name: "integer into float-only input",
			build: func(g *Graph) error {
				g.AddPass("ids", "UintSrc", nil)
				g.AddPass("f", "Float", nil)
				g.AddEdge("ids.out", "f.in")
				return g.MarkOutput("f.out")
			},
			dim:     Dim{4, 4},
			wantErr: ErrFormatMismatch,
		},
		{
			name: "integer into half input",
			build: func(g *Graph) error {
				g.AddPass("ids", "UintSrc", nil)
				g.AddPass("h", "Half", nil)
				g.AddEdge("ids.out", "h.in")
				return g.MarkOutput("h.out")
			},
			dim:     Dim{4, 4},
			wantErr: ErrFormatMismatch,
		},
		{
			name: "cycle",
			build: func(g *Graph) error {
				g.AddPass("x", "B", nil)
				g.AddPass("y", "B", nil)
				g.AddEdge("x.out", "y.in")
				g.AddEdge("y.out", "x.in")
				return g.MarkOutput("y.out")
			},
			dim:     Dim{4, 4},
			wantErr: ErrCycle,
		},
		{
			name: "zero size",
			build: func(g *Graph) error {
				g.AddPass("a", "A", nil)
				return g.MarkOutput("a.out")
			},
			dim:     Dim{0, 4},
			wantErr: ErrInvalidDim,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.name, newTestRegistry(map[string]*mockPass{
				"A":        {value: 1},
				"B":        {value: 1, inputs: []string{"in"}},
				"Required": {required: []string{"in"}},
				"Uint":     {inputs: []string{"in"}, inFormat: &uintFormat},
				"UintSrc":  {outFormat: &uintFormat},
				"Float":    {inputs: []string{"in"}, floatOnly: true},
				"Half":     {inputs: []string{"in"}, inFormat: &halfFormat},
			}))
			if err := tt.build(g); err != nil {
				t.Fatalf("build: %v", err)
			}
			err := g.Compile(tt.dim)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Compile err = %v, want %v", err, tt.wantErr)
			}
			if g.Compiled() {
				t.Error("graph should not be compiled after an error")
			}
		})
	}
}

func TestGraphEditErrors(t *testing.T) {
	g := New("edits", newTestRegistry(map[string]*mockPass{"A": {}, "B": {inputs: []string{"in"}}}))

	if err := g.AddPass("a", "Missing", nil); !errors.Is(err, ErrUnknownPass) {
		t.Errorf("unknown type err = %v", err)
	}
	g.AddPass("a", "A", nil)
	g.AddPass("b", "B", nil)
	if err := g.AddPass("a", "A", nil); !errors.Is(err, ErrDuplicatePass) {
		t.Errorf("duplicate err = %v", err)
	}
	if err := g.AddEdge("a", "b.in"); !errors.Is(err, ErrInvalidEdge) {
		t.Errorf("malformed edge err = %v", err)
	}
	if err := g.AddEdge("z.out", "b.in"); !errors.Is(err, ErrNoSuchPass) {
		t.Errorf("unknown pass edge err = %v", err)
	}
	g.AddEdge("a.out", "b.in")
	if err := g.AddEdge("a.out", "b.in"); !errors.Is(err, ErrInvalidEdge) {
		t.Errorf("double-connected input err = %v", err)
	}
	if err := g.Execute(testContext()); !errors.Is(err, ErrNotCompiled) {
		t.Errorf("execute before compile err = %v", err)
	}
}

func TestOptionalOutputsAllocatedOnlyWhenUsed(t *testing.T) {
	a := &mockPass{value: 1}
	g := New("opt", newTestRegistry(map[string]*mockPass{"A": a}))
	g.AddPass("a", "A", nil)
	g.MarkOutput("a.out")
	if err := g.Compile(Dim{2, 2}); err != nil {
		t.Fatal(err)
	}
	if len(g.Resources()) != 1 {
		t.Errorf("resources = %+v, want only a.out", g.Resources())
	}

	g.MarkOutput("a.extra")
	if err := g.Compile(Dim{2, 2}); err != nil {
		t.Fatal(err)
	}
	if g.Output("a.extra") == nil {
		t.Error("marked optional output should be allocated")
	}
}

func TestSetPropertiesTriggersRecompile(t *testing.T) {
	a := &mockPass{value: 1}
	g := New("props", newTestRegistry(map[string]*mockPass{"A": a}))
	g.AddPass("a", "A", nil)
	g.MarkOutput("a.out")
	if err := g.Compile(Dim{2, 2}); err != nil {
		t.Fatal(err)
	}

	if err := g.SetProperties("a", Properties{"value": 5.0}); err != nil {
		t.Fatal(err)
	}
	if g.Compiled() {
		t.Error("SetProperties should invalidate compilation")
	}
	if err := g.Execute(testContext()); err != nil {
		t.Fatal(err)
	}
	if a.compiles != 2 {
		t.Errorf("compiles = %d, want 2", a.compiles)
	}
	if got := g.Output("a.out").Get(0, 0)[0]; got != 5 {
		t.Errorf("output = %v, want 5", got)
	}

	if err := g.SetProperties("a", Properties{"value": "five"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("wrong type err = %v", err)
	}
}

func TestSetSceneReachesPasses(t *testing.T) {
	a := &mockPass{}
	b := &mockPass{}
	g := New("scene", newTestRegistry(map[string]*mockPass{"A": a, "B": b}))
	g.AddPass("a", "A", nil)

	s := scene.NewCornellScene()
	g.SetScene(s)
	g.AddPass("b", "B", nil)

	if a.lastScene != s || b.lastScene != s {
		t.Error("scene should reach passes added before and after SetScene")
	}
}

func TestFloatInputConvertsToDeclaredFormat(t *testing.T) {
	halfFormat := texture.RGBA16Float
	a := &mockPass{value: 1 + 1.0/4096}
	h := &mockPass{inputs: []string{"in"}, inFormat: &halfFormat}
	g := New("half", newTestRegistry(map[string]*mockPass{"A": a, "H": h}))
	g.AddPass("a", "A", nil)
	g.AddPass("h", "H", nil)
	g.AddEdge("a.out", "h.in")
	g.MarkOutput("h.out")
	if err := g.Compile(Dim{2, 2}); err != nil {
		t.Fatal(err)
	}
	if err := g.Execute(testContext()); err != nil {
		t.Fatal(err)
	}

	if got := g.Output("h.out").Get(1, 1)[0]; got != 1 {
		t.Errorf("half input read %v, want 1", got)
	}
	if got := g.Output("a.out").Get(1, 1)[0]; got != 1+1.0/4096 {
		t.Errorf("source resource changed to %v", got)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	info := PassInfo{Type: "A", Description: "test", Create: func(Properties) (Pass, error) { return &mockPass{}, nil }}
	if err := r.Register(info); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(info); err == nil {
		t.Error("duplicate registration should fail")
	}
	if err := r.Register(PassInfo{Type: "B"}); err == nil {
		t.Error("registration without factory should fail")
	}
	r.MustRegister(PassInfo{Type: "0", Create: info.Create})

	infos := r.Infos()
	if len(infos) != 2 || infos[0].Type != "0" || infos[1].Type != "A" {
		t.Errorf("Infos = %+v", infos)
	}
	failing := PassInfo{Type: "F", Create: func(Properties) (Pass, error) { return nil, ErrInvalidConfig }}
	r.MustRegister(failing)
	if _, err := r.Create("F", nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("factory error not propagated: %v", err)
	}
}

func TestDecoder(t *testing.T) {
	props := Properties{
		"enabled": false,
		"count":   float64(3),
		"scale":   2,
		"mode":    "fast",
		"nested":  map[string]any{"x": 1.0},
		"bogus":   true,
	}

	enabled, count, scale, mode := true, 1, 1.0, "slow"
	missing := 7
	d := NewDecoder(props)
	d.Bool("enabled", &enabled)
	d.Int("count", &count)
	d.Float("scale", &scale)
	d.Enum("mode", &mode, "slow", "fast")
	d.Int("missing", &missing)
	sub, ok := d.Sub("nested")

	if err := d.Err(); err != nil {
		t.Fatal(err)
	}
	if enabled || count != 3 || scale != 2 || mode != "fast" || missing != 7 {
		t.Errorf("decoded enabled=%v count=%v scale=%v mode=%v missing=%v", enabled, count, scale, mode, missing)
	}
	if !ok || sub["x"] != 1.0 {
		t.Errorf("Sub = %v, %v", sub, ok)
	}
	if unused := d.Unused(); len(unused) != 1 || unused[0] != "bogus" {
		t.Errorf("Unused = %v", unused)
	}

	var buf bytes.Buffer
	log.SetSink(&buf)
	defer log.SetSink(nopWriter{})
	d.WarnUnused(log.New("test"), "TestPass")
	if !strings.Contains(buf.String(), "Unknown field 'bogus' in TestPass dictionary") {
		t.Errorf("warning not logged: %q", buf.String())
	}

	bad := NewDecoder(Properties{"count": 1.5, "mode": "medium"})
	bad.Int("count", &count)
	if !errors.Is(bad.Err(), ErrInvalidConfig) {
		t.Errorf("fractional int err = %v", bad.Err())
	}
	bad = NewDecoder(Properties{"mode": "medium"})
	bad.Enum("mode", &mode, "slow", "fast")
	if !errors.Is(bad.Err(), ErrInvalidConfig) || mode != "fast" {
		t.Errorf("enum err = %v, mode = %v", bad.Err(), mode)
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
