package material

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// RoughPlastic is a diffuse substrate under a rough dielectric coating.
// The substrate transmittance uses the smooth-interface Fresnel terms.
type RoughPlastic struct {
	Distribution        Microfacet
	Eta                 float64
	DiffuseReflectance  ColorSource
	SpecularReflectance core.Vec3

	fdrInt         float64
	specularWeight float64
}

// NewRoughPlastic creates a rough plastic with relative index eta
func NewRoughPlastic(dist Microfacet, diffuse ColorSource, specular core.Vec3, eta float64) *RoughPlastic {
	p := &RoughPlastic{Distribution: dist, Eta: eta, DiffuseReflectance: diffuse, SpecularReflectance: specular}
	p.fdrInt = fresnelDiffuseReflectance(1 / eta)
	p.specularWeight = specularSamplingWeight(specular, diffuse.Average())
	return p
}

// Eval returns the coat and substrate terms times cosθo
func (p *RoughPlastic) Eval(ctx Context, wi, wo core.Vec3) core.Vec3 {
	if wi.Z <= 0 || wo.Z <= 0 {
		return core.Vec3{}
	}

	h := wi.Add(wo).Normalize()
	d := p.Distribution.D(h)
	f, _ := fresnelDielectric(wi.Dot(h), p.Eta)
	g := p.Distribution.G(wi, wo, h)
	result := p.SpecularReflectance.Multiply(f * d * g / (4 * wi.Z))

	fi, _ := fresnelDielectric(wi.Z, p.Eta)
	fo, _ := fresnelDielectric(wo.Z, p.Eta)
	diff := p.DiffuseReflectance.Evaluate(ctx.UV, ctx.Point).Multiply(1 / (1 - p.fdrInt))
	return result.Add(diff.Multiply(wo.Z / math.Pi * (1 - fi) * (1 - fo) / (p.Eta * p.Eta)))
}

// PDF mixes the microfacet and cosine densities by the coat probability
func (p *RoughPlastic) PDF(ctx Context, wi, wo core.Vec3) float64 {
	if wi.Z <= 0 || wo.Z <= 0 {
		return 0
	}
	fi, _ := fresnelDielectric(wi.Z, p.Eta)
	ps := probSpecular(fi, p.specularWeight)

	h := wi.Add(wo).Normalize()
	specPdf := p.Distribution.PDF(h) / (4 * wo.Dot(h))
	return ps*specPdf + (1-ps)*core.CosineHemispherePDF(wo)
}

// Sample picks the coat with u1 and draws its direction from u2
func (p *RoughPlastic) Sample(ctx Context, wi core.Vec3, u1 float64, u2 core.Vec2) (Sample, core.Vec3) {
	if wi.Z <= 0 {
		return Sample{}, core.Vec3{}
	}
	fi, _ := fresnelDielectric(wi.Z, p.Eta)
	ps := probSpecular(fi, p.specularWeight)

	var s Sample
	if u1 < ps {
		h, pdfH := p.Distribution.Sample(u2)
		if pdfH == 0 {
			return Sample{}, core.Vec3{}
		}
		s.Wo = reflectAbout(wi, h)
		s.Lobe = GlossyReflection
		if s.Wo.Z <= 0 {
			return Sample{}, core.Vec3{}
		}
	} else {
		s.Wo = core.SquareToCosineHemisphere(u2)
		s.Lobe = DiffuseReflection
	}
	s.Eta = 1

	s.PDF = p.PDF(ctx, wi, s.Wo)
	if s.PDF <= 0 {
		return Sample{}, core.Vec3{}
	}
	return s, p.Eval(ctx, wi, s.Wo).Multiply(1 / s.PDF)
}

func (p *RoughPlastic) Flags() Flags {
	return GlossyReflection | DiffuseReflection
}
