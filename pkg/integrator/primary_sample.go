package integrator

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// Mutation scales of the small step kernel
const (
	smallStepMin = 1.0 / 1024
	smallStepMax = 1.0 / 64
)

// primarySampleValue is one coordinate of the primary sample space
type primarySampleValue struct {
	Value        float64
	LastModified int64 // iteration of the last mutation
	Backup       float64
	BackupMod    int64
}

// PrimarySample is a point in the primary sample space that a Markov chain
// mutates. It implements core.Sampler: coordinates are created when first
// requested and brought up to date with the mutations they missed.
type PrimarySample struct {
	rng *core.RandomStream
	X   []primarySampleValue

	iteration     int64
	lastLargeStep int64
	largeStep     bool
	index         int
}

// NewPrimarySample creates a sample whose coordinates are drawn from a
// stream seeded with seed. The first evaluation is an independent sample.
func NewPrimarySample(seed uint64) *PrimarySample {
	return &PrimarySample{rng: core.NewRandomStream(seed), largeStep: true}
}

// Reseed replaces the stream that drives future mutations. The current
// coordinates are kept.
func (ps *PrimarySample) Reseed(seed uint64) {
	ps.rng.Seed(seed)
}

// Uniform draws from the sample's own stream, outside the primary space
func (ps *PrimarySample) Uniform() float64 {
	return ps.rng.Get1D()
}

// StartIteration begins a proposal; a large step replaces every coordinate
func (ps *PrimarySample) StartIteration(largeStep bool) {
	ps.iteration++
	ps.largeStep = largeStep
	ps.index = 0
}

// Accept keeps the proposal
func (ps *PrimarySample) Accept() {
	if ps.largeStep {
		ps.lastLargeStep = ps.iteration
	}
}

// Reject restores every coordinate touched by the proposal
func (ps *PrimarySample) Reject() {
	for i := range ps.X {
		if ps.X[i].LastModified == ps.iteration {
			ps.X[i].Value = ps.X[i].Backup
			ps.X[i].LastModified = ps.X[i].BackupMod
		}
	}
	ps.iteration--
}

// IsLargeStep reports whether the current proposal is a large step
func (ps *PrimarySample) IsLargeStep() bool {
	return ps.largeStep
}

func (ps *PrimarySample) Get1D() float64 {
	i := ps.index
	ps.index++
	ps.ensureReady(i)
	return ps.X[i].Value
}

func (ps *PrimarySample) Get2D() core.Vec2 {
	return core.NewVec2(ps.Get1D(), ps.Get1D())
}

func (ps *PrimarySample) Get3D() core.Vec3 {
	return core.NewVec3(ps.Get1D(), ps.Get1D(), ps.Get1D())
}

func (ps *PrimarySample) ensureReady(i int) {
	// coordinates nothing has asked for yet start uniformly distributed
	for len(ps.X) <= i {
		ps.X = append(ps.X, primarySampleValue{Value: ps.rng.Get1D(), LastModified: ps.iteration})
	}
	x := &ps.X[i]

	// a large step happened since the coordinate was last used
	if x.LastModified < ps.lastLargeStep {
		x.Value = ps.rng.Get1D()
		x.LastModified = ps.lastLargeStep
	}

	x.Backup, x.BackupMod = x.Value, x.LastModified
	if ps.largeStep {
		x.Value = ps.rng.Get1D()
	} else {
		for n := ps.iteration - x.LastModified; n > 0; n-- {
			x.Value = mutate(x.Value, ps.rng.Get1D(), ps.rng.Get1D())
		}
	}
	x.LastModified = ps.iteration
}

// mutate applies one small step of the Kelemen kernel, wrapping around
// the unit interval
func mutate(value, u1, u2 float64) float64 {
	dv := smallStepMax * math.Exp(-math.Log(smallStepMax/smallStepMin)*u1)
	if u2 < 0.5 {
		value += dv
		if value >= 1 {
			value -= 1
		}
	} else {
		value -= dv
		if value < 0 {
			value += 1
		}
	}
	if value >= 1 || value < 0 {
		value = math.Nextafter(1, 0)
	}
	return value
}
