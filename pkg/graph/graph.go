package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/df07/go-restir-passes/pkg/log"
	"github.com/df07/go-restir-passes/pkg/scene"
	"github.com/df07/go-restir-passes/pkg/texture"
)

var logger = log.New("graph")

// Edge connects an output field to an input field, both named "pass.field"
type Edge struct {
	Src string
	Dst string
}

type node struct {
	name     string
	passType string
	pass     Pass
	refl     *Reflection
	inputs   map[string]string // input field -> "pass.field" source
	outputs  map[string]*texture.Texture
	views    map[string]*texture.Texture // input field -> copy in the declared format
}

// ResourceInfo describes an allocated resource after compilation
type ResourceInfo struct {
	Name      string // "pass.field"
	Format    texture.Format
	Consumers []string
	IsOutput  bool // Marked as graph output
}

// Graph is a DAG of render passes connected by texture resources
type Graph struct {
	Name string

	registry *Registry
	nodes    map[string]*node
	added    []string // Pass names in insertion order
	edges    []Edge
	outputs  []string
	scene    *scene.Scene

	compiled bool
	dim      Dim
	order    []*node
}

// New creates an empty graph whose passes are created from registry
func New(name string, registry *Registry) *Graph {
	return &Graph{Name: name, registry: registry, nodes: map[string]*node{}}
}

// AddPass creates a pass of type passType and adds it under name
func (g *Graph) AddPass(name, passType string, props Properties) error {
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicatePass, name)
	}
	if strings.Contains(name, ".") {
		return fmt.Errorf("graph: pass name %q must not contain '.'", name)
	}
	pass, err := g.registry.Create(passType, props)
	if err != nil {
		return err
	}
	if g.scene != nil {
		if sa, ok := pass.(SceneAware); ok {
			sa.SetScene(g.scene)
		}
	}
	g.nodes[name] = &node{name: name, passType: passType, pass: pass}
	g.added = append(g.added, name)
	g.compiled = false
	return nil
}

// AddEdge connects src ("pass.output") to dst ("pass.input")
func (g *Graph) AddEdge(src, dst string) error {
	for _, endpoint := range []string{src, dst} {
		passName, _, ok := splitField(endpoint)
		if !ok {
			return fmt.Errorf("%w: %q is not of the form pass.field", ErrInvalidEdge, endpoint)
		}
		if _, exists := g.nodes[passName]; !exists {
			return fmt.Errorf("%w: %q", ErrNoSuchPass, passName)
		}
	}
	for _, e := range g.edges {
		if e.Dst == dst {
			return fmt.Errorf("%w: input %q already connected to %q", ErrInvalidEdge, dst, e.Src)
		}
	}
	g.edges = append(g.edges, Edge{Src: src, Dst: dst})
	g.compiled = false
	return nil
}

// MarkOutput makes "pass.field" a graph output, keeping it allocated and readable after Execute
func (g *Graph) MarkOutput(name string) error {
	passName, _, ok := splitField(name)
	if !ok {
		return fmt.Errorf("%w: %q is not of the form pass.field", ErrInvalidEdge, name)
	}
	if _, exists := g.nodes[passName]; !exists {
		return fmt.Errorf("%w: %q", ErrNoSuchPass, passName)
	}
	for _, o := range g.outputs {
		if o == name {
			return nil
		}
	}
	g.outputs = append(g.outputs, name)
	g.compiled = false
	return nil
}

// Outputs returns the marked graph outputs in the order they were marked
func (g *Graph) Outputs() []string {
	return append([]string(nil), g.outputs...)
}

// Edges returns the graph's edges
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Pass returns the pass with the given name, or nil
func (g *Graph) Pass(name string) Pass {
	if n, ok := g.nodes[name]; ok {
		return n.pass
	}
	return nil
}

// PassType returns the registered type of the named pass
func (g *Graph) PassType(name string) string {
	if n, ok := g.nodes[name]; ok {
		return n.passType
	}
	return ""
}

// PassNames returns pass names in insertion order
func (g *Graph) PassNames() []string {
	return append([]string(nil), g.added...)
}

// SetScene hands the scene to every scene-aware pass
func (g *Graph) SetScene(s *scene.Scene) {
	g.scene = s
	for _, name := range g.added {
		if sa, ok := g.nodes[name].pass.(SceneAware); ok {
			sa.SetScene(s)
		}
	}
}

// SetProperties updates the configuration of a pass. The graph recompiles
// before the next execution since the pass's reflection may have changed.
func (g *Graph) SetProperties(passName string, props Properties) error {
	n, ok := g.nodes[passName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoSuchPass, passName)
	}
	c, ok := n.pass.(Configurable)
	if !ok {
		return fmt.Errorf("graph: pass %q (%s) is not configurable", passName, n.passType)
	}
	if err := c.SetProperties(props); err != nil {
		return fmt.Errorf("%s: %w", passName, err)
	}
	g.compiled = false
	return nil
}

// Compile validates the graph for the given frame size, allocates resources
// and compiles every pass. All configuration errors surface here.
func (g *Graph) Compile(dim Dim) error {
	g.compiled = false
	if dim.Width <= 0 || dim.Height <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDim, dim)
	}
	if len(g.outputs) == 0 {
		return ErrMissingOutput
	}

	order, err := g.sortPasses()
	if err != nil {
		return err
	}

	// Which fields are connected, per pass
	connectedIn := map[string]map[string]bool{}
	connectedOut := map[string]map[string]bool{}
	mark := func(m map[string]map[string]bool, endpoint string) {
		p, f, _ := splitField(endpoint)
		if m[p] == nil {
			m[p] = map[string]bool{}
		}
		m[p][f] = true
	}
	for _, e := range g.edges {
		mark(connectedOut, e.Src)
		mark(connectedIn, e.Dst)
	}
	for _, o := range g.outputs {
		mark(connectedOut, o)
	}

	compileData := func(n *node) CompileData {
		return CompileData{FrameDim: dim, ConnectedInputs: connectedIn[n.name], ConnectedOutputs: connectedOut[n.name]}
	}

	// Reflect, validate and allocate in dependency order
	for _, n := range order {
		cd := compileData(n)
		n.refl = n.pass.Reflect(cd)
		n.inputs = map[string]string{}
		n.outputs = map[string]*texture.Texture{}
		n.views = map[string]*texture.Texture{}

		for _, f := range n.refl.Fields(Output) {
			if !f.Optional || cd.ConnectedOutputs[f.Name] {
				n.outputs[f.Name] = texture.New(n.name+"."+f.Name, f.Format, dim.Width, dim.Height)
			}
		}
		for f := range cd.ConnectedOutputs {
			if field := n.refl.Field(f); field == nil || field.Kind != Output {
				return fmt.Errorf("%w: %s.%s is not an output of %s", ErrUnknownField, n.name, f, n.passType)
			}
		}
	}

	for _, e := range g.edges {
		srcPass, srcField, _ := splitField(e.Src)
		dstPass, dstField, _ := splitField(e.Dst)
		dst := g.nodes[dstPass]
		field := dst.refl.Field(dstField)
		if field == nil || field.Kind != Input {
			return fmt.Errorf("%w: %s is not an input of %s", ErrUnknownField, e.Dst, dst.passType)
		}
		src := g.nodes[srcPass].outputs[srcField]
		switch {
		case field.hasFormat && src.Format.IsInteger() != field.Format.IsInteger():
			return fmt.Errorf("%w: %s is %s, %s expects %s", ErrFormatMismatch, e.Src, src.Format, e.Dst, field.Format)
		case field.floatOnly && src.Format.IsInteger():
			return fmt.Errorf("%w: %s is %s, %s expects a float format", ErrFormatMismatch, e.Src, src.Format, e.Dst)
		case field.hasFormat && src.Format != field.Format:
			dst.views[dstField] = texture.New(e.Dst, field.Format, dim.Width, dim.Height)
		}
		dst.inputs[dstField] = e.Src
	}

	for _, n := range order {
		for _, f := range n.refl.Fields(Input) {
			if !f.Optional && n.inputs[f.Name] == "" {
				return fmt.Errorf("%w: %s.%s", ErrMissingInput, n.name, f.Name)
			}
		}
		if err := n.pass.Compile(compileData(n)); err != nil {
			return fmt.Errorf("compiling %s: %w", n.name, err)
		}
	}

	g.order = order
	g.dim = dim
	g.compiled = true
	logger.Infof("compiled %q at %v: %d passes", g.Name, dim, len(order))
	return nil
}

// Compiled reports whether the graph is ready to execute at its current size
func (g *Graph) Compiled() bool {
	return g.compiled
}

// FrameDim returns the dimensions of the last successful compilation
func (g *Graph) FrameDim() Dim {
	return g.dim
}

// Execute runs every pass once in dependency order. The graph recompiles first
// if it was edited since the last compilation. A started frame always runs to
// the end; callers observe cancellation between frames.
func (g *Graph) Execute(rc *RenderContext) error {
	if !g.compiled {
		if g.dim.Width == 0 {
			return ErrNotCompiled
		}
		if err := g.Compile(g.dim); err != nil {
			return err
		}
	}

	for _, n := range g.order {
		resources := make(map[string]*texture.Texture, len(n.inputs)+len(n.outputs))
		for field, src := range n.inputs {
			p, f, _ := splitField(src)
			tex := g.nodes[p].outputs[f]
			if view := n.views[field]; view != nil {
				if err := view.CopyFrom(tex); err != nil {
					return fmt.Errorf("executing %s: %w", n.name, err)
				}
				tex = view
			}
			resources[field] = tex
		}
		for field, tex := range n.outputs {
			resources[field] = tex
		}
		if err := n.pass.Execute(rc, NewRenderData(g.dim, resources)); err != nil {
			return fmt.Errorf("executing %s: %w", n.name, err)
		}
	}
	return nil
}

// Output returns a marked output texture after compilation
func (g *Graph) Output(name string) *texture.Texture {
	if !g.compiled {
		return nil
	}
	p, f, ok := splitField(name)
	if !ok {
		return nil
	}
	n, exists := g.nodes[p]
	if !exists {
		return nil
	}
	return n.outputs[f]
}

// Order returns the pass names in execution order after compilation
func (g *Graph) Order() []string {
	names := make([]string, len(g.order))
	for i, n := range g.order {
		names[i] = n.name
	}
	return names
}

// Resources lists the allocated resources after compilation
func (g *Graph) Resources() []ResourceInfo {
	marked := map[string]bool{}
	for _, o := range g.outputs {
		marked[o] = true
	}
	consumers := map[string][]string{}
	for _, e := range g.edges {
		consumers[e.Src] = append(consumers[e.Src], e.Dst)
	}

	var infos []ResourceInfo
	for _, n := range g.order {
		fields := make([]string, 0, len(n.outputs))
		for f := range n.outputs {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			name := n.name + "." + f
			infos = append(infos, ResourceInfo{
				Name:      name,
				Format:    n.outputs[f].Format,
				Consumers: consumers[name],
				IsOutput:  marked[name],
			})
		}
	}
	return infos
}

// sortPasses orders passes so every edge source runs before its destination.
// Ties keep insertion order.
func (g *Graph) sortPasses() ([]*node, error) {
	indegree := map[string]int{}
	next := map[string][]string{}
	seen := map[[2]string]bool{}
	for _, e := range g.edges {
		src, _, _ := splitField(e.Src)
		dst, _, _ := splitField(e.Dst)
		if src == dst {
			return nil, fmt.Errorf("%w: %s feeds itself", ErrCycle, src)
		}
		if seen[[2]string{src, dst}] {
			continue
		}
		seen[[2]string{src, dst}] = true
		indegree[dst]++
		next[src] = append(next[src], dst)
	}

	var order []*node
	done := map[string]bool{}
	for len(order) < len(g.added) {
		progressed := false
		for _, name := range g.added {
			if done[name] || indegree[name] > 0 {
				continue
			}
			done[name] = true
			order = append(order, g.nodes[name])
			for _, d := range next[name] {
				indegree[d]--
			}
			progressed = true
			break
		}
		if !progressed {
			var stuck []string
			for _, name := range g.added {
				if !done[name] {
					stuck = append(stuck, name)
				}
			}
			return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(stuck, ", "))
		}
	}
	return order, nil
}

func splitField(s string) (pass, field string, ok bool) {
	pass, field, ok = strings.Cut(s, ".")
	return pass, field, ok && pass != "" && field != ""
}
