package integrator

import (
	"fmt"
	"math"
	"time"

	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/renderer"
	"github.com/df07/lumen/pkg/scene"
	"github.com/df07/lumen/pkg/sensor"
)

const (
	bootstrapPhase = iota
	chainPhase

	bootstrapTasks   = 64
	bootstrapSeedKey = 0x6d6c74
)

// PSSMLTIntegrator implements primary sample space Metropolis light
// transport on top of the path tracer or BDPT
type PSSMLTIntegrator struct {
	config Config
}

// NewPSSMLTIntegrator creates a new PSSMLT integrator
func NewPSSMLTIntegrator(config Config) *PSSMLTIntegrator {
	return &PSSMLTIntegrator{config: config}
}

func (m *PSSMLTIntegrator) Name() string {
	return "pssmlt"
}

// mltSample is the full set of film contributions of one primary sample
type mltSample struct {
	splats     []sensor.Splat
	importance float64
}

// chainStats are the statistics of one Markov chain
type chainStats struct {
	Proposed   int64
	Accepted   int64
	LargeSteps int64
	LargeSum   float64 // sum of the importance of large step proposals
}

func (m *PSSMLTIntegrator) technique() Estimator {
	if m.config.Technique == "bdpt" {
		return NewBDPTIntegrator(m.config)
	}
	return NewPathTracingIntegrator(m.config)
}

// Render estimates the normalization b, picks chain seeds among the
// bootstrap samples in proportion to their importance and runs the chains.
// SamplesPerPixel sets the number of mutations per pixel.
func (m *PSSMLTIntegrator) Render(s *scene.Scene, threads int, showProgress bool) (renderer.RenderStats, error) {
	film := s.Sensor.Film
	if film == nil {
		return renderer.RenderStats{}, ErrNotPreprocessed
	}
	film.Reset()
	est := m.technique()

	pool := renderer.NewWorkerPool(threads, s.Seed)
	pool.Start()
	defer pool.Stop()

	start := time.Now()
	weights, err := m.bootstrap(s, est, pool, showProgress)
	if err != nil {
		return collectStats(m.Name(), pool, film, time.Since(start)), err
	}
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	b := sum / float64(len(weights))
	logger.Infof("pssmlt: b = %.6g from %d bootstrap samples", b, len(weights))

	if b == 0 {
		logger.Warning("pssmlt: no bootstrap sample carried light, the image is black")
		stats := collectStats(m.Name(), pool, film, time.Since(start))
		stats.Metrics = map[string]float64{"b": 0}
		return stats, nil
	}

	pixels := int64(film.Width()) * int64(film.Height())
	totalMutations := int64(s.Sensor.SamplesPerPixel) * pixels
	budgets := renderer.SplitBudget(totalMutations, m.config.Chains)
	film.SetSplatScale(float64(pixels) / float64(totalMutations))

	candidates := core.NewDistribution1D(weights)
	chains := make([]chainStats, len(budgets))
	tasks := make([]renderer.Task, len(budgets))
	for i, budget := range budgets {
		tasks[i] = renderer.Task{
			ID:    i,
			Phase: chainPhase,
			Run: func(stream *core.RandomStream) renderer.TaskStats {
				chains[i] = m.runChain(s, est, candidates, b, budget, stream)
				return renderer.TaskStats{Samples: budget}
			},
		}
	}

	logger.Infof("rendering %q with pssmlt (%s): %d chains, %d mutations, %d workers",
		s.Name, m.config.Technique, len(budgets), totalMutations, pool.NumWorkers())
	err = pool.Run(tasks, renderer.NewProgress(m.Name(), len(tasks), showProgress))

	stats := collectStats(m.Name(), pool, film, time.Since(start))
	stats.Metrics = summarizeChains(chains, b)
	if err != nil {
		return stats, err
	}
	logger.Debugf("render statistics:\n%s", stats.Table())
	return stats, nil
}

// bootstrapSeed is the seed of the primary sample of bootstrap candidate i.
// Chains rebuild their starting state from it.
func bootstrapSeed(seed uint64, i int) uint64 {
	return core.MixSeed(core.MixSeed(seed, bootstrapSeedKey), uint64(i))
}

// bootstrap evaluates BootstrapSamples independent primary samples and
// returns their importance
func (m *PSSMLTIntegrator) bootstrap(s *scene.Scene, est Estimator, pool *renderer.WorkerPool, showProgress bool) ([]float64, error) {
	weights := make([]float64, m.config.BootstrapSamples)
	budgets := renderer.SplitBudget(int64(len(weights)), bootstrapTasks)

	tasks := make([]renderer.Task, len(budgets))
	first := 0
	for i, budget := range budgets {
		lo, hi := first, first+int(budget)
		first = hi
		tasks[i] = renderer.Task{
			ID:    i,
			Phase: bootstrapPhase,
			Run: func(*core.RandomStream) renderer.TaskStats {
				for j := lo; j < hi; j++ {
					weights[j] = m.evaluate(s, est, NewPrimarySample(bootstrapSeed(s.Seed, j))).importance
				}
				return renderer.TaskStats{Samples: int64(hi - lo)}
			},
		}
	}

	if err := pool.Run(tasks, renderer.NewProgress("pssmlt bootstrap", len(tasks), showProgress)); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return weights, nil
}

// runChain resamples a starting state and performs budget mutations,
// splatting both the current and the proposed state at every step
func (m *PSSMLTIntegrator) runChain(s *scene.Scene, est Estimator, candidates *core.Distribution1D, b float64, budget int64, stream *core.RandomStream) chainStats {
	var stats chainStats
	film := s.Sensor.Film
	pLarge := m.config.LargeStepProbability

	idx, _ := candidates.Sample(stream.Get1D())
	ps := NewPrimarySample(bootstrapSeed(s.Seed, idx))
	current := m.evaluate(s, est, ps)
	// chains starting from the same candidate must not mutate in lockstep
	ps.Reseed(stream.Uint64())

	for j := int64(0); j < budget; j++ {
		large := ps.Uniform() < pLarge
		ps.StartIteration(large)
		proposed := m.evaluate(s, est, ps)

		a := acceptance(current.importance, proposed.importance)
		largeWeight := 0.0
		if large {
			largeWeight = 1
			stats.LargeSteps++
			stats.LargeSum += proposed.importance
		}

		if proposed.importance > 0 {
			splatAll(film, proposed.splats, (a+largeWeight)/(proposed.importance/b+pLarge))
		}
		if current.importance > 0 {
			splatAll(film, current.splats, (1-a)/(current.importance/b+pLarge))
		}

		stats.Proposed++
		if ps.Uniform() < a {
			ps.Accept()
			current = proposed
			stats.Accepted++
		} else {
			ps.Reject()
		}
	}
	return stats
}

// evaluate runs the estimator on a primary sample. The first two
// coordinates choose the film position.
func (m *PSSMLTIntegrator) evaluate(s *scene.Scene, est Estimator, ps *PrimarySample) mltSample {
	film := s.Sensor.Film
	pFilm := core.NewVec2(ps.Get1D()*float64(film.Width()), ps.Get1D()*float64(film.Height()))
	L, splats := est.RayColor(pFilm, s, ps)

	sample := mltSample{splats: make([]sensor.Splat, 0, len(splats)+1)}
	if !L.IsBlack() {
		sample.splats = append(sample.splats, sensor.Splat{Raster: pFilm, L: L})
	}
	sample.splats = append(sample.splats, splats...)
	for _, sp := range sample.splats {
		sample.importance += max(0, sp.L.Luminance())
	}
	return sample
}

// acceptance is the Metropolis acceptance probability; a chain stuck on a
// zero state always moves
func acceptance(current, proposed float64) float64 {
	if current <= 0 {
		return 1
	}
	a := min(1, proposed/current)
	if math.IsNaN(a) || a < 0 {
		panic(&core.InvariantViolation{What: "pssmlt acceptance", Value: fmt.Sprintf("%g", a)})
	}
	return a
}

func splatAll(film *sensor.Film, splats []sensor.Splat, weight float64) {
	for _, sp := range splats {
		film.Splat(sp.Raster, sp.L.Multiply(weight))
	}
}

// summarizeChains merges the chain statistics into render metrics
func summarizeChains(chains []chainStats, b float64) map[string]float64 {
	var total chainStats
	for _, c := range chains {
		total.Proposed += c.Proposed
		total.Accepted += c.Accepted
		total.LargeSteps += c.LargeSteps
		total.LargeSum += c.LargeSum
	}
	metrics := map[string]float64{
		"b":         b,
		"chains":    float64(len(chains)),
		"mutations": float64(total.Proposed),
	}
	if total.Proposed > 0 {
		metrics["acceptance"] = float64(total.Accepted) / float64(total.Proposed)
	}
	if total.LargeSteps > 0 {
		metrics["b_running"] = total.LargeSum / float64(total.LargeSteps)
	}
	return metrics
}
