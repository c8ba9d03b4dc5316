package core

import (
	"math"
	"testing"
)

func TestRandomStream_Deterministic(t *testing.T) {
	a := NewRandomStream(7)
	b := NewRandomStream(7)
	for i := 0; i < 100; i++ {
		if a.Get1D() != b.Get1D() {
			t.Fatalf("streams with equal seeds diverged at draw %d", i)
		}
	}

	a.Seed(99)
	first := a.Get2D()
	a.Seed(99)
	if again := a.Get2D(); again != first {
		t.Errorf("reseeding should rewind the stream: %v vs %v", first, again)
	}
}

func TestRandomStream_SplitIndependent(t *testing.T) {
	parent := NewRandomStream(1)
	c1 := parent.Split()
	c2 := parent.Split()

	same := 0
	for i := 0; i < 64; i++ {
		if c1.Get1D() == c2.Get1D() {
			same++
		}
	}
	if same > 0 {
		t.Errorf("split streams produced %d identical draws", same)
	}
}

func TestRandomStream_Range(t *testing.T) {
	r := NewRandomStream(3)
	for i := 0; i < 10000; i++ {
		v := r.Get3D()
		for _, c := range []float64{v.X, v.Y, v.Z} {
			if c < 0 || c >= 1 {
				t.Fatalf("sample %v outside [0,1)", c)
			}
		}
	}
}

func TestFrame_Orthonormal(t *testing.T) {
	normals := []Vec3{
		NewVec3(0, 0, 1),
		NewVec3(0, 0, -1),
		NewVec3(1, 0, 0),
		NewVec3(0.3, -0.5, 0.8).Normalize(),
		NewVec3(-0.7, 0.1, -0.2).Normalize(),
	}
	const tolerance = 1e-9

	for _, n := range normals {
		f := NewFrame(n)
		if math.Abs(f.S.Length()-1) > tolerance || math.Abs(f.T.Length()-1) > tolerance {
			t.Errorf("frame around %v has non-unit axes", n)
		}
		if math.Abs(f.S.Dot(f.T)) > tolerance || math.Abs(f.S.Dot(n)) > tolerance || math.Abs(f.T.Dot(n)) > tolerance {
			t.Errorf("frame around %v is not orthogonal", n)
		}

		v := NewVec3(0.2, 0.9, -0.4)
		if back := f.ToWorld(f.ToLocal(v)); back.Subtract(v).Length() > tolerance {
			t.Errorf("round trip through frame changed %v into %v", v, back)
		}
		if local := f.ToLocal(n); math.Abs(local.Z-1) > tolerance {
			t.Errorf("normal should map to +Z, got %v", local)
		}
	}
}

func TestSquareToCosineHemisphere(t *testing.T) {
	r := NewRandomStream(11)
	const n = 200000
	sumCos := 0.0

	for i := 0; i < n; i++ {
		d := SquareToCosineHemisphere(r.Get2D())
		if d.Z < 0 {
			t.Fatalf("direction below the hemisphere: %v", d)
		}
		if math.Abs(d.Length()-1) > 1e-9 {
			t.Fatalf("direction is not unit length: %v", d)
		}
		sumCos += d.Z
	}

	// E[cos] under a cosine-weighted density is 2/3
	if mean := sumCos / n; math.Abs(mean-2.0/3.0) > 0.01 {
		t.Errorf("mean cosine %.4f, expected 0.6667", mean)
	}
}

func TestSquareToUniformCone_WithinCutoff(t *testing.T) {
	r := NewRandomStream(5)
	cosCutoff := math.Cos(0.3)
	for i := 0; i < 1000; i++ {
		d := SquareToUniformCone(r.Get2D(), cosCutoff)
		if d.Z < cosCutoff-1e-12 {
			t.Fatalf("cone sample outside cutoff: %v", d)
		}
	}
	if pdf := UniformConePDF(-1); math.Abs(pdf-UniformSpherePDF) > 1e-12 {
		t.Errorf("full cone density should equal sphere density, got %g", pdf)
	}
}

func TestDistribution1D(t *testing.T) {
	d := NewDistribution1D([]float64{1, 0, 3})

	if d.Count() != 3 || d.Sum() != 4 {
		t.Fatalf("unexpected count/sum %d/%g", d.Count(), d.Sum())
	}
	tests := []struct {
		u        float64
		expected int
		pmf      float64
	}{
		{0.0, 0, 0.25},
		{0.2, 0, 0.25},
		{0.25, 2, 0.75},
		{0.99, 2, 0.75},
	}
	for _, tt := range tests {
		idx, pmf := d.Sample(tt.u)
		if idx != tt.expected || math.Abs(pmf-tt.pmf) > 1e-12 {
			t.Errorf("Sample(%g) = (%d, %g), expected (%d, %g)", tt.u, idx, pmf, tt.expected, tt.pmf)
		}
	}

	uniform := NewDistribution1D([]float64{0, 0})
	if uniform.PMF(1) != 0.5 {
		t.Errorf("all-zero weights should be uniform, got %g", uniform.PMF(1))
	}
}

func TestPowerHeuristic(t *testing.T) {
	if w := PowerHeuristic(1, 1); w != 0.5 {
		t.Errorf("equal densities should give 0.5, got %g", w)
	}
	if w := PowerHeuristic(3, 1) + PowerHeuristic(1, 3); math.Abs(w-1) > 1e-12 {
		t.Errorf("weights of two strategies should sum to one, got %g", w)
	}
	if w := PowerHeuristic(0, 0); w != 0 {
		t.Errorf("zero densities should give zero weight, got %g", w)
	}
}

func TestCheckRadiance_Panics(t *testing.T) {
	defer func() {
		r := recover()
		if _, ok := r.(*InvariantViolation); !ok {
			t.Errorf("expected *InvariantViolation panic, got %v", r)
		}
	}()
	CheckRadiance("throughput", NewVec3(math.NaN(), 0, 0))
}
