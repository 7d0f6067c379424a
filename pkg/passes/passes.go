// Package passes registers every render pass type this module provides.
package passes

import (
	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/passes/accumulate"
	"github.com/df07/go-restir-passes/pkg/passes/directlight"
	"github.com/df07/go-restir-passes/pkg/passes/gbuffer"
	"github.com/df07/go-restir-passes/pkg/passes/modulate"
	"github.com/df07/go-restir-passes/pkg/passes/restirpass"
	"github.com/df07/go-restir-passes/pkg/passes/tonemap"
)

// All returns the descriptions of every pass type
func All() []graph.PassInfo {
	return []graph.PassInfo{
		gbuffer.Info(),
		restirpass.Info(),
		modulate.Info(),
		directlight.Info(),
		accumulate.Info(),
		tonemap.Info(),
	}
}

// RegisterAll adds every pass type to reg
func RegisterAll(reg *graph.Registry) error {
	for _, info := range All() {
		if err := reg.Register(info); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry populated with every pass type
func NewRegistry() *graph.Registry {
	reg := graph.NewRegistry()
	for _, info := range All() {
		reg.MustRegister(info)
	}
	return reg
}
