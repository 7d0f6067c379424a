package lights

import (
	"sort"
)

// WeightedLightSampler selects lights with fixed, normalized probabilities
type WeightedLightSampler struct {
	lights  []Light
	weights []float64 // Normalized selection probabilities
	cdf     []float64
}

// NewWeightedLightSampler creates a sampler with the given per-light weights.
// Weights are normalized; all-zero weights fall back to uniform selection.
func NewWeightedLightSampler(lights []Light, weights []float64) *WeightedLightSampler {
	if len(lights) != len(weights) {
		panic("lights and weights must have the same length")
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}

	normalized := make([]float64, len(weights))
	for i, w := range weights {
		if total > 0 {
			normalized[i] = w / total
		} else {
			normalized[i] = 1.0 / float64(len(weights))
		}
	}

	cdf := make([]float64, len(normalized))
	sum := 0.0
	for i, w := range normalized {
		sum += w
		cdf[i] = sum
	}
	if len(cdf) > 0 {
		cdf[len(cdf)-1] = 1.0
	}

	return &WeightedLightSampler{
		lights:  lights,
		weights: normalized,
		cdf:     cdf,
	}
}

// NewUniformLightSampler selects every light with equal probability
func NewUniformLightSampler(lights []Light) *WeightedLightSampler {
	return NewWeightedLightSampler(lights, make([]float64, len(lights)))
}

// NewPowerLightSampler selects lights proportionally to their emitted power
func NewPowerLightSampler(lights []Light) *WeightedLightSampler {
	weights := make([]float64, len(lights))
	for i, light := range lights {
		weights[i] = light.Power()
	}
	return NewWeightedLightSampler(lights, weights)
}

// SampleLight implements LightSampler
func (s *WeightedLightSampler) SampleLight(u float64) (Light, float64, int) {
	if len(s.lights) == 0 {
		return nil, 0, -1
	}
	i := sort.SearchFloat64s(s.cdf, u)
	// Skip zero-probability lights that share a cdf value with their predecessor
	for i < len(s.cdf)-1 && s.weights[i] == 0 {
		i++
	}
	if i >= len(s.lights) {
		i = len(s.lights) - 1
	}
	return s.lights[i], s.weights[i], i
}

// Probability implements LightSampler
func (s *WeightedLightSampler) Probability(lightIndex int) float64 {
	if lightIndex < 0 || lightIndex >= len(s.weights) {
		return 0
	}
	return s.weights[lightIndex]
}

// Light implements LightSampler
func (s *WeightedLightSampler) Light(lightIndex int) Light {
	if lightIndex < 0 || lightIndex >= len(s.lights) {
		return nil
	}
	return s.lights[lightIndex]
}

// LightCount implements LightSampler
func (s *WeightedLightSampler) LightCount() int {
	return len(s.lights)
}
