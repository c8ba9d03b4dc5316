package material

import (
	"github.com/df07/lumen/pkg/core"
)

// TwoSidedWrapper mirrors a one-sided BSDF onto the back of the surface
type TwoSidedWrapper struct {
	Nested BSDF
}

func NewTwoSided(nested BSDF) *TwoSidedWrapper {
	return &TwoSidedWrapper{Nested: nested}
}

func flipZ(v core.Vec3) core.Vec3 {
	return core.NewVec3(v.X, v.Y, -v.Z)
}

func (t *TwoSidedWrapper) Sample(ctx Context, wi core.Vec3, u1 float64, u2 core.Vec2) (Sample, core.Vec3) {
	if wi.Z >= 0 {
		return t.Nested.Sample(ctx, wi, u1, u2)
	}
	s, weight := t.Nested.Sample(ctx, flipZ(wi), u1, u2)
	s.Wo = flipZ(s.Wo)
	return s, weight
}

func (t *TwoSidedWrapper) Eval(ctx Context, wi, wo core.Vec3) core.Vec3 {
	if wi.Z < 0 {
		wi, wo = flipZ(wi), flipZ(wo)
	}
	return t.Nested.Eval(ctx, wi, wo)
}

func (t *TwoSidedWrapper) PDF(ctx Context, wi, wo core.Vec3) float64 {
	if wi.Z < 0 {
		wi, wo = flipZ(wi), flipZ(wo)
	}
	return t.Nested.PDF(ctx, wi, wo)
}

func (t *TwoSidedWrapper) Flags() Flags {
	return t.Nested.Flags() | TwoSided
}
