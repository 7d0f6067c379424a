package restir

import (
	"errors"
	"fmt"

	"github.com/df07/go-restir-passes/pkg/graph"
)

var ErrInvalidOptions = errors.New("restir: invalid options")

// BiasCorrection selects how reused reservoirs are normalized
type BiasCorrection string

const (
	// BiasCorrectionNone normalizes by the total candidate count. Cheap, but
	// darkens edges where neighbours could not have produced the sample.
	BiasCorrectionNone BiasCorrection = "none"
	// BiasCorrectionBasic only counts neighbours whose target density is
	// non-zero at the chosen sample.
	BiasCorrectionBasic BiasCorrection = "basic"
)

// Options configures a resampling engine
type Options struct {
	InitialLightSamples         int  // RIS candidates per pixel
	TestInitialSampleVisibility bool // Shadow-test the initial winner

	UseTemporalResampling bool
	MaxHistoryLength      int // History M is clamped to this multiple of the current M
	MaxAge                int // Temporal samples older than this many frames are discarded

	UseSpatialResampling bool
	SpatialIterations    int
	SpatialNeighborCount int
	SpatialGatherRadius  float64 // Pixels

	NormalThreshold float64 // Minimum cosine between normals for reuse
	DepthThreshold  float64 // Maximum relative depth difference for reuse

	UseFinalVisibility bool
	BiasCorrection     BiasCorrection

	Seed uint64 // Per-instance random seed
}

// DefaultOptions returns sensible default values
func DefaultOptions() Options {
	return Options{
		InitialLightSamples:         32,
		TestInitialSampleVisibility: true,
		UseTemporalResampling:       true,
		MaxHistoryLength:            20,
		MaxAge:                      100,
		UseSpatialResampling:        true,
		SpatialIterations:           1,
		SpatialNeighborCount:        5,
		SpatialGatherRadius:         30,
		NormalThreshold:             0.5,
		DepthThreshold:              0.1,
		UseFinalVisibility:          true,
		BiasCorrection:              BiasCorrectionBasic,
	}
}

// Validate checks option ranges
func (o Options) Validate() error {
	switch {
	case o.InitialLightSamples < 1:
		return fmt.Errorf("%w: initialLightSamples must be at least 1, got %d", ErrInvalidOptions, o.InitialLightSamples)
	case o.MaxHistoryLength < 0:
		return fmt.Errorf("%w: maxHistoryLength must not be negative", ErrInvalidOptions)
	case o.MaxAge < 0:
		return fmt.Errorf("%w: maxAge must not be negative", ErrInvalidOptions)
	case o.SpatialIterations < 0 || o.SpatialNeighborCount < 0:
		return fmt.Errorf("%w: spatial iteration and neighbour counts must not be negative", ErrInvalidOptions)
	case o.SpatialGatherRadius < 0:
		return fmt.Errorf("%w: spatialGatherRadius must not be negative", ErrInvalidOptions)
	case o.NormalThreshold < -1 || o.NormalThreshold > 1:
		return fmt.Errorf("%w: normalThreshold must be a cosine in [-1, 1]", ErrInvalidOptions)
	case o.DepthThreshold < 0:
		return fmt.Errorf("%w: depthThreshold must not be negative", ErrInvalidOptions)
	case o.BiasCorrection != BiasCorrectionNone && o.BiasCorrection != BiasCorrectionBasic:
		return fmt.Errorf("%w: unknown bias correction %q", ErrInvalidOptions, o.BiasCorrection)
	}
	return nil
}

// Decode reads options from a property set, leaving missing keys untouched
func (o *Options) Decode(d *graph.Decoder) {
	d.Int("initialLightSamples", &o.InitialLightSamples)
	d.Bool("testInitialSampleVisibility", &o.TestInitialSampleVisibility)
	d.Bool("useTemporalResampling", &o.UseTemporalResampling)
	d.Int("maxHistoryLength", &o.MaxHistoryLength)
	d.Int("maxAge", &o.MaxAge)
	d.Bool("useSpatialResampling", &o.UseSpatialResampling)
	d.Int("spatialIterations", &o.SpatialIterations)
	d.Int("spatialNeighborCount", &o.SpatialNeighborCount)
	d.Float("spatialGatherRadius", &o.SpatialGatherRadius)
	d.Float("normalThreshold", &o.NormalThreshold)
	d.Float("depthThreshold", &o.DepthThreshold)
	d.Bool("useFinalVisibility", &o.UseFinalVisibility)

	bc := string(o.BiasCorrection)
	d.Enum("biasCorrection", &bc, string(BiasCorrectionNone), string(BiasCorrectionBasic))
	o.BiasCorrection = BiasCorrection(bc)

	seed := int(o.Seed)
	d.Int("seed", &seed)
	o.Seed = uint64(seed)
}

// Properties serializes the options
func (o Options) Properties() graph.Properties {
	return graph.Properties{
		"initialLightSamples":         o.InitialLightSamples,
		"testInitialSampleVisibility": o.TestInitialSampleVisibility,
		"useTemporalResampling":       o.UseTemporalResampling,
		"maxHistoryLength":            o.MaxHistoryLength,
		"maxAge":                      o.MaxAge,
		"useSpatialResampling":        o.UseSpatialResampling,
		"spatialIterations":           o.SpatialIterations,
		"spatialNeighborCount":        o.SpatialNeighborCount,
		"spatialGatherRadius":         o.SpatialGatherRadius,
		"normalThreshold":             o.NormalThreshold,
		"depthThreshold":              o.DepthThreshold,
		"useFinalVisibility":          o.UseFinalVisibility,
		"biasCorrection":              string(o.BiasCorrection),
		"seed":                        int(o.Seed),
	}
}
