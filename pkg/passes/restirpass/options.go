package restirpass

import (
	"fmt"

	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/restir"
)

// Property keys
const (
	keyOptions              = "options"
	keyNumReSTIRInstances   = "numReSTIRInstances"
	keyAdjustShadingNormals = "adjustShadingNormals"
)

// Options configures the pass
type Options struct {
	NumInstances         int  // Independent resampling engines, averaged
	AdjustShadingNormals bool // Bend shading normals that face away from the viewer
	Engine               restir.Options
}

// DefaultOptions returns one instance with default engine options
func DefaultOptions() Options {
	return Options{
		NumInstances: 1,
		Engine:       restir.DefaultOptions(),
	}
}

// decodeOptions applies props on top of base. Unknown keys are logged.
func decodeOptions(base Options, props graph.Properties) (Options, error) {
	o := base
	d := graph.NewDecoder(props)
	d.Int(keyNumReSTIRInstances, &o.NumInstances)
	d.Bool(keyAdjustShadingNormals, &o.AdjustShadingNormals)
	if sub, ok := d.Sub(keyOptions); ok {
		sd := graph.NewDecoder(sub)
		o.Engine.Decode(sd)
		sd.WarnUnused(logger, "ScreenSpaceReSTIR")
		if err := sd.Err(); err != nil {
			return base, fmt.Errorf("%s: %w", keyOptions, err)
		}
	}
	d.WarnUnused(logger, TypeName)
	if err := d.Err(); err != nil {
		return base, err
	}

	if o.NumInstances < 1 {
		return base, fmt.Errorf("%w: %s must be at least 1, got %d", graph.ErrInvalidConfig, keyNumReSTIRInstances, o.NumInstances)
	}
	if err := o.Engine.Validate(); err != nil {
		return base, err
	}
	return o, nil
}

// Properties serializes the options
func (o Options) Properties() graph.Properties {
	return graph.Properties{
		keyOptions:              o.Engine.Properties(),
		keyNumReSTIRInstances:   o.NumInstances,
		keyAdjustShadingNormals: o.AdjustShadingNormals,
	}
}
