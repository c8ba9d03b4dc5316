package integrator

import (
	"math"
	"testing"

	"github.com/df07/lumen/pkg/core"
)

func TestMutate(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		u1, u2   float64
		expected float64
	}{
		{"largest step up", 0.5, 0, 0.2, 0.5 + 1.0/64},
		{"smallest step down", 0.5, 1, 0.7, 0.5 - 1.0/1024},
		{"wraps past one", 0.999, 0, 0.2, 0.999 + 1.0/64 - 1},
		{"wraps below zero", 0.0001, 1, 0.7, 0.0001 - 1.0/1024 + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mutate(tt.value, tt.u1, tt.u2)
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("expected %.12f, got %.12f", tt.expected, got)
			}
			if got < 0 || got >= 1 {
				t.Errorf("mutated value %g outside [0,1)", got)
			}
		})
	}
}

func TestPrimarySampleReproducible(t *testing.T) {
	a := NewPrimarySample(42)
	b := NewPrimarySample(42)
	for i := 0; i < 10; i++ {
		if x, y := a.Get1D(), b.Get1D(); x != y {
			t.Fatalf("coordinate %d: %g != %g", i, x, y)
		}
	}
}

func TestPrimarySampleSmallStepAndReject(t *testing.T) {
	ps := NewPrimarySample(9)
	initial := make([]float64, 6)
	for i := range initial {
		initial[i] = ps.Get1D()
	}

	ps.StartIteration(false)
	for i := range initial {
		v := ps.Get1D()
		if v < 0 || v >= 1 {
			t.Fatalf("coordinate %d outside [0,1): %g", i, v)
		}
		// one small step moves at most 1/64, possibly across the wrap
		d := math.Abs(v - initial[i])
		if d > 0.5 {
			d = 1 - d
		}
		if d > 1.0/64+1e-12 || d < 1.0/1024-1e-12 {
			t.Errorf("coordinate %d moved by %g", i, d)
		}
	}

	ps.Reject()
	for i := range initial {
		if ps.X[i].Value != initial[i] {
			t.Errorf("coordinate %d not restored: %g != %g", i, ps.X[i].Value, initial[i])
		}
	}

	// rejected proposals do not advance the chain
	ps.StartIteration(false)
	ps.Accept()
	if ps.iteration != 1 {
		t.Errorf("expected iteration 1, got %d", ps.iteration)
	}
}

func TestPrimarySampleLargeStep(t *testing.T) {
	ps := NewPrimarySample(5)
	first := ps.Get2D()

	ps.StartIteration(true)
	second := ps.Get2D()
	if first == second {
		t.Error("large step did not replace the coordinates")
	}
	ps.Accept()
	if ps.lastLargeStep != 1 {
		t.Errorf("expected last large step 1, got %d", ps.lastLargeStep)
	}

	// a coordinate untouched since before the large step is redrawn first
	ps.StartIteration(false)
	third := ps.Get3D()
	if third.Z < 0 || third.Z >= 1 {
		t.Errorf("new coordinate outside [0,1): %g", third.Z)
	}
	if len(ps.X) != 3 {
		t.Errorf("expected 3 coordinates, got %d", len(ps.X))
	}
}

func TestAcceptance(t *testing.T) {
	tests := []struct {
		current, proposed, expected float64
	}{
		{0, 0, 1},
		{0, 2, 1},
		{2, 0, 0},
		{2, 1, 0.5},
		{1, 3, 1},
	}
	for _, tt := range tests {
		if got := acceptance(tt.current, tt.proposed); got != tt.expected {
			t.Errorf("acceptance(%g, %g): expected %g, got %g", tt.current, tt.proposed, tt.expected, got)
		}
	}
}

func TestPSSMLT(t *testing.T) {
	tests := []struct {
		name      string
		technique string
	}{
		{"path", "path"},
		{"bdpt", "bdpt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := areaLightScene(t, 32, true)
			pathMean := renderMean(t, NewPathTracingIntegrator(testConfig(3)), s, 4)

			cfg := testConfig(3)
			cfg.Technique = tt.technique
			cfg.BootstrapSamples = 20000
			cfg.Chains = 32
			mlt := NewPSSMLTIntegrator(cfg)

			stats, err := mlt.Render(s, 4, false)
			if err != nil {
				t.Fatalf("render failed: %v", err)
			}

			acceptance := stats.Metrics["acceptance"]
			if acceptance < 0 || acceptance > 1 {
				t.Errorf("acceptance rate %g outside [0,1]", acceptance)
			}
			if acceptance == 0 {
				t.Error("no mutation was accepted")
			}
			if got := stats.Metrics["mutations"]; got != float64(16*12*32) {
				t.Errorf("expected %d mutations, got %g", 16*12*32, got)
			}

			b := stats.Metrics["b"]
			if b <= 0 {
				t.Fatalf("expected positive normalization, got %g", b)
			}
			if rel := math.Abs(stats.Metrics["b_running"]-b) / b; rel > 0.25 {
				t.Errorf("running normalization %g strays from b %g by %.1f%%", stats.Metrics["b_running"], b, 100*rel)
			}

			mltMean := meanLuminance(s.Sensor.Film.Develop())
			if rel := math.Abs(mltMean-pathMean) / pathMean; rel > 0.15 {
				t.Errorf("pssmlt mean %.5f differs from path mean %.5f by %.1f%%", mltMean, pathMean, 100*rel)
			}
		})
	}
}

func TestPSSMLTChainsOnSameCandidateDiverge(t *testing.T) {
	s := areaLightScene(t, 16, true)
	mlt := NewPSSMLTIntegrator(testConfig(3))
	est := mlt.technique()
	candidates := core.NewDistribution1D([]float64{1})

	run := func(seed uint64) (chainStats, []core.Vec3) {
		s.Sensor.Film.Reset()
		stats := mlt.runChain(s, est, candidates, 1, 2000, core.NewRandomStream(seed))
		return stats, s.Sensor.Film.Develop()
	}
	statsA, pixelsA := run(111)
	statsB, pixelsB := run(999)

	identical := 0
	for i := range pixelsA {
		if pixelsA[i] == pixelsB[i] {
			identical++
		}
	}
	if statsA == statsB && identical == len(pixelsA) {
		t.Errorf("chains with different streams produced identical results: %+v", statsA)
	}
	if identical == len(pixelsA) {
		t.Errorf("all %d pixels identical across streams", identical)
	}
}
