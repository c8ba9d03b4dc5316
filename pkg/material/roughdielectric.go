package material

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// RoughDielectric is a dielectric interface with a microfacet surface
// (Walter et al. 2007). Eta is interior over exterior IOR.
type RoughDielectric struct {
	Distribution          Microfacet
	Eta                   float64
	SpecularReflectance   core.Vec3
	SpecularTransmittance core.Vec3
}

// NewRoughDielectric creates a clear rough dielectric
func NewRoughDielectric(dist Microfacet, eta float64) *RoughDielectric {
	return &RoughDielectric{
		Distribution:          dist,
		Eta:                   eta,
		SpecularReflectance:   core.Splat(1),
		SpecularTransmittance: core.Splat(1),
	}
}

// halfVector returns the generalized half vector oriented toward +Z, the
// relative IOR seen from wi's side and whether the pair is a reflection
func (d *RoughDielectric) halfVector(wi, wo core.Vec3) (core.Vec3, float64, bool) {
	reflectPair := wi.Z*wo.Z > 0

	var h core.Vec3
	eta := 1.0
	if reflectPair {
		h = wi.Add(wo).Normalize()
	} else {
		eta = d.Eta
		if wi.Z < 0 {
			eta = 1 / d.Eta
		}
		h = wi.Add(wo.Multiply(eta)).Normalize()
	}
	if h.Z < 0 {
		h = h.Negate()
	}
	return h, eta, reflectPair
}

// Eval returns the microfacet BSDF times |cosθo| for reflection or refraction
func (d *RoughDielectric) Eval(ctx Context, wi, wo core.Vec3) core.Vec3 {
	if wi.Z == 0 || wo.Z == 0 {
		return core.Vec3{}
	}

	h, eta, reflectPair := d.halfVector(wi, wo)
	dVal := d.Distribution.D(h)
	if dVal == 0 {
		return core.Vec3{}
	}
	f, _ := fresnelDielectric(wi.Dot(h), d.Eta)
	g := d.Distribution.G(wi, wo, h)

	if reflectPair {
		return d.SpecularReflectance.Multiply(f * dVal * g / (4 * math.Abs(wi.Z)))
	}

	// a sidedness mismatch between the macro and micro normals is invalid
	if wi.Dot(h)*wi.Z <= 0 || wo.Dot(h)*wo.Z <= 0 {
		return core.Vec3{}
	}

	sqrtDenom := wi.Dot(h) + eta*wo.Dot(h)
	value := ((1 - f) * dVal * g * eta * eta * wi.Dot(h) * wo.Dot(h)) / (wi.Z * sqrtDenom * sqrtDenom)

	factor := 1.0
	if ctx.Mode == Radiance {
		factor = 1 / eta
	}
	return d.SpecularTransmittance.Multiply(math.Abs(value * factor * factor))
}

// PDF returns the density of wo given the Fresnel-weighted lobe choice
func (d *RoughDielectric) PDF(ctx Context, wi, wo core.Vec3) float64 {
	if wi.Z == 0 || wo.Z == 0 {
		return 0
	}

	h, eta, reflectPair := d.halfVector(wi, wo)

	var dwhDwo float64
	if reflectPair {
		dwhDwo = 1 / (4 * wo.Dot(h))
	} else {
		if wi.Dot(h)*wi.Z <= 0 || wo.Dot(h)*wo.Z <= 0 {
			return 0
		}
		sqrtDenom := wi.Dot(h) + eta*wo.Dot(h)
		dwhDwo = (eta * eta * wo.Dot(h)) / (sqrtDenom * sqrtDenom)
	}

	prob := d.Distribution.PDF(h)
	f, _ := fresnelDielectric(wi.Dot(h), d.Eta)
	if reflectPair {
		prob *= f
	} else {
		prob *= 1 - f
	}
	return math.Abs(prob * dwhDwo)
}

// Sample picks a microfacet normal then reflects or refracts through it
func (d *RoughDielectric) Sample(ctx Context, wi core.Vec3, u1 float64, u2 core.Vec2) (Sample, core.Vec3) {
	if wi.Z == 0 {
		return Sample{}, core.Vec3{}
	}
	h, pdfH := d.Distribution.Sample(u2)
	if pdfH == 0 {
		return Sample{}, core.Vec3{}
	}

	f, cosThetaT := fresnelDielectric(wi.Dot(h), d.Eta)

	var s Sample
	if u1 <= f {
		s.Wo = reflectAbout(wi, h)
		s.Eta = 1
		s.Lobe = GlossyReflection
		if wi.Z*s.Wo.Z <= 0 {
			return Sample{}, core.Vec3{}
		}
	} else {
		if cosThetaT == 0 {
			return Sample{}, core.Vec3{}
		}
		s.Wo = refractAbout(wi, h, d.Eta, cosThetaT)
		s.Eta = d.Eta
		if cosThetaT >= 0 {
			s.Eta = 1 / d.Eta
		}
		s.Lobe = GlossyTransmission
		if wi.Z*s.Wo.Z >= 0 {
			return Sample{}, core.Vec3{}
		}
	}

	s.PDF = d.PDF(ctx, wi, s.Wo)
	if s.PDF <= 0 {
		return Sample{}, core.Vec3{}
	}
	return s, d.Eval(ctx, wi, s.Wo).Multiply(1 / s.PDF)
}

func (d *RoughDielectric) Flags() Flags {
	return GlossyReflection | GlossyTransmission | TwoSided
}
