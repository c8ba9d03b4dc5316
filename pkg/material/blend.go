package material

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// Blend linearly interpolates between two BSDFs. Weight 0 is all of A.
type Blend struct {
	A      BSDF
	B      BSDF
	Weight float64
}

// NewBlend creates a blend, clamping the weight to [0,1]
func NewBlend(a, b BSDF, weight float64) *Blend {
	return &Blend{A: a, B: b, Weight: math.Max(0, math.Min(weight, 1))}
}

func (m *Blend) Eval(ctx Context, wi, wo core.Vec3) core.Vec3 {
	return m.A.Eval(ctx, wi, wo).Multiply(1 - m.Weight).Add(m.B.Eval(ctx, wi, wo).Multiply(m.Weight))
}

func (m *Blend) PDF(ctx Context, wi, wo core.Vec3) float64 {
	return m.A.PDF(ctx, wi, wo)*(1-m.Weight) + m.B.PDF(ctx, wi, wo)*m.Weight
}

// Sample picks one component with u1 and reuses the remainder of u1 for it
func (m *Blend) Sample(ctx Context, wi core.Vec3, u1 float64, u2 core.Vec2) (Sample, core.Vec3) {
	var s Sample
	var weight core.Vec3
	var prob float64
	if u1 < m.Weight {
		prob = m.Weight
		s, weight = m.B.Sample(ctx, wi, u1/m.Weight, u2)
	} else {
		prob = 1 - m.Weight
		s, weight = m.A.Sample(ctx, wi, (u1-m.Weight)/prob, u2)
	}
	if s.PDF == 0 {
		return Sample{}, core.Vec3{}
	}

	if s.IsDelta() {
		// the other component cannot produce this direction
		s.PDF *= prob
		return s, weight
	}

	s.PDF = m.PDF(ctx, wi, s.Wo)
	if s.PDF == 0 {
		return Sample{}, core.Vec3{}
	}
	return s, m.Eval(ctx, wi, s.Wo).Multiply(1 / s.PDF)
}

func (m *Blend) Flags() Flags {
	return m.A.Flags() | m.B.Flags()
}
