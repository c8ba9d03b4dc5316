package lights

import (
	"fmt"
	"strings"

	"github.com/df07/lumen/pkg/core"
)

// LightSampler chooses which emitter to sample. The choice does not depend
// on the shading point, so PMF is a plain lookup.
type LightSampler struct {
	strategy string
	dist     *core.Distribution1D
}

// NewUniformLightSampler gives every emitter the same probability
func NewUniformLightSampler(count int) *LightSampler {
	return &LightSampler{strategy: "uniform", dist: core.NewDistribution1D(make([]float64, count))}
}

// NewPowerLightSampler chooses emitters in proportion to their luminous power.
// Call it after the emitters have been preprocessed.
func NewPowerLightSampler(emitters []Emitter) *LightSampler {
	weights := make([]float64, len(emitters))
	for i, e := range emitters {
		weights[i] = max(0, e.Power().Luminance())
	}
	return &LightSampler{strategy: "power", dist: core.NewDistribution1D(weights)}
}

// NewWeightedLightSampler uses caller-supplied weights, one per emitter
func NewWeightedLightSampler(weights []float64) *LightSampler {
	return &LightSampler{strategy: "weighted", dist: core.NewDistribution1D(weights)}
}

// Sample returns the chosen emitter index and its probability; -1 when empty
func (s *LightSampler) Sample(u float64) (int, float64) {
	return s.dist.Sample(u)
}

// PMF returns the probability of choosing emitter i
func (s *LightSampler) PMF(i int) float64 {
	return s.dist.PMF(i)
}

// CDF returns the total probability of the emitters before i
func (s *LightSampler) CDF(i int) float64 {
	return s.dist.CDF(i)
}

func (s *LightSampler) Count() int {
	return s.dist.Count()
}

func (s *LightSampler) String() string {
	if s.Count() == 0 {
		return "LightSampler{no lights}"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "LightSampler{%s, %d lights:", s.strategy, s.Count())
	for i := 0; i < s.Count(); i++ {
		fmt.Fprintf(&b, " [%d] %.1f%%", i, s.PMF(i)*100)
	}
	b.WriteString("}")
	return b.String()
}
