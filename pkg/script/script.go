// Package script reads and writes render graphs as JSON documents and holds
// the built-in graphs.
package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/passes/restirpass"
)

var (
	ErrInvalidScript = errors.New("script: invalid script")
	ErrInvalidEdge   = errors.New("script: invalid edge")
)

// PassDecl declares one pass instance
type PassDecl struct {
	Name       string           `json:"name"`
	Type       string           `json:"type"`
	Properties graph.Properties `json:"properties,omitempty"`
}

// Script is the serialized form of a render graph
type Script struct {
	Name    string     `json:"name"`
	Passes  []PassDecl `json:"passes"`
	Edges   [][]string `json:"edges,omitempty"` // Each edge is [src, dst]
	Outputs []string   `json:"outputs"`

	// Frames to write to disk when the graph is rendered from the command line
	CaptureFrames []int `json:"captureFrames,omitempty"`
}

// Parse decodes a script and checks its structure
func Parse(r io.Reader) (*Script, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a script file
func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks the script shape without resolving pass types
func (s *Script) Validate() error {
	if len(s.Passes) == 0 {
		return fmt.Errorf("%w: no passes", ErrInvalidScript)
	}
	seen := map[string]bool{}
	for i, p := range s.Passes {
		if p.Name == "" || p.Type == "" {
			return fmt.Errorf("%w: pass %d needs a name and a type", ErrInvalidScript, i)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate pass name %q", ErrInvalidScript, p.Name)
		}
		seen[p.Name] = true
	}
	for i, e := range s.Edges {
		if len(e) != 2 || e[0] == "" || e[1] == "" {
			return fmt.Errorf("%w: edge %d must be [src, dst], got %v", ErrInvalidEdge, i, e)
		}
	}
	if len(s.Outputs) == 0 {
		return fmt.Errorf("%w: no outputs", ErrInvalidScript)
	}
	for _, f := range s.CaptureFrames {
		if f < 0 {
			return fmt.Errorf("%w: negative capture frame %d", ErrInvalidScript, f)
		}
	}
	return nil
}

// Build creates the graph the script describes
func (s *Script) Build(reg *graph.Registry) (*graph.Graph, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	g := graph.New(s.Name, reg)
	for _, p := range s.Passes {
		if err := g.AddPass(p.Name, p.Type, p.Properties); err != nil {
			return nil, fmt.Errorf("pass %q: %w", p.Name, err)
		}
	}
	for _, e := range s.Edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, fmt.Errorf("edge %s -> %s: %w", e[0], e[1], err)
		}
	}
	for _, o := range s.Outputs {
		if err := g.MarkOutput(o); err != nil {
			return nil, fmt.Errorf("output %s: %w", o, err)
		}
	}
	return g, nil
}

// FromGraph captures a graph's structure and current pass properties
func FromGraph(g *graph.Graph) *Script {
	s := &Script{Name: g.Name, Outputs: g.Outputs()}
	for _, name := range g.PassNames() {
		s.Passes = append(s.Passes, PassDecl{
			Name:       name,
			Type:       g.PassType(name),
			Properties: g.Pass(name).Properties(),
		})
	}
	for _, e := range g.Edges() {
		s.Edges = append(s.Edges, []string{e.Src, e.Dst})
	}
	return s
}

// Encode writes the script as indented JSON
func (s *Script) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// SetInstances sets numReSTIRInstances on every ScreenSpaceReSTIRPass
func (s *Script) SetInstances(n int) {
	for i, p := range s.Passes {
		if p.Type != restirpass.TypeName {
			continue
		}
		props := graph.Properties{}
		for k, v := range p.Properties {
			props[k] = v
		}
		props["numReSTIRInstances"] = n
		s.Passes[i].Properties = props
	}
}
