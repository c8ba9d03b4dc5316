package material

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// Default indices of refraction for polypropylene in air
const (
	DefaultPlasticIntIOR = 1.49
	DefaultPlasticExtIOR = 1.000277
)

// Plastic is a diffuse substrate under a smooth dielectric coating. Light
// that enters the coating is scattered diffusely and internal reflections
// are accounted for with the Fresnel diffuse reflectance.
type Plastic struct {
	Eta                 float64
	DiffuseReflectance  ColorSource
	SpecularReflectance core.Vec3

	fdrInt         float64
	specularWeight float64
}

// NewPlastic creates a smooth plastic with relative index eta
func NewPlastic(diffuse ColorSource, specular core.Vec3, eta float64) *Plastic {
	p := &Plastic{Eta: eta, DiffuseReflectance: diffuse, SpecularReflectance: specular}
	p.fdrInt = fresnelDiffuseReflectance(1 / eta)
	p.specularWeight = specularSamplingWeight(specular, diffuse.Average())
	return p
}

// specularSamplingWeight is the coat's share of the average albedo
func specularSamplingWeight(specular, diffuse core.Vec3) float64 {
	sAvg, dAvg := specular.Average(), diffuse.Average()
	if sAvg+dAvg == 0 {
		return 0.5
	}
	return sAvg / (sAvg + dAvg)
}

// probSpecular returns the probability of sampling the coat given the
// Fresnel reflectance at the incident angle
func probSpecular(fi, specularWeight float64) float64 {
	spec := fi * specularWeight
	diff := (1 - fi) * (1 - specularWeight)
	if spec+diff == 0 {
		return 0
	}
	return spec / (spec + diff)
}

func (p *Plastic) substrate(ctx Context, fi, cosThetaO float64) core.Vec3 {
	fo, _ := fresnelDielectric(cosThetaO, p.Eta)
	diff := p.DiffuseReflectance.Evaluate(ctx.UV, ctx.Point).Multiply(1 / (1 - p.fdrInt))
	return diff.Multiply(cosThetaO / math.Pi * (1 - fi) * (1 - fo) / (p.Eta * p.Eta))
}

// Eval returns the substrate term; the coat is a delta lobe
func (p *Plastic) Eval(ctx Context, wi, wo core.Vec3) core.Vec3 {
	if wi.Z <= 0 || wo.Z <= 0 {
		return core.Vec3{}
	}
	fi, _ := fresnelDielectric(wi.Z, p.Eta)
	return p.substrate(ctx, fi, wo.Z)
}

// PDF returns the substrate density scaled by its selection probability
func (p *Plastic) PDF(ctx Context, wi, wo core.Vec3) float64 {
	if wi.Z <= 0 || wo.Z <= 0 {
		return 0
	}
	fi, _ := fresnelDielectric(wi.Z, p.Eta)
	return core.CosineHemispherePDF(wo) * (1 - probSpecular(fi, p.specularWeight))
}

// Sample chooses the coat or the substrate in proportion to their energy
func (p *Plastic) Sample(ctx Context, wi core.Vec3, u1 float64, u2 core.Vec2) (Sample, core.Vec3) {
	if wi.Z <= 0 {
		return Sample{}, core.Vec3{}
	}
	fi, _ := fresnelDielectric(wi.Z, p.Eta)
	ps := probSpecular(fi, p.specularWeight)

	if u1 < ps {
		return Sample{Wo: reflect(wi), PDF: ps, Eta: 1, Lobe: DeltaReflection}, p.SpecularReflectance.Multiply(fi / ps)
	}

	wo := core.SquareToCosineHemisphere(u2)
	pdf := core.CosineHemispherePDF(wo) * (1 - ps)
	if pdf == 0 {
		return Sample{}, core.Vec3{}
	}
	return Sample{Wo: wo, PDF: pdf, Eta: 1, Lobe: DiffuseReflection}, p.substrate(ctx, fi, wo.Z).Multiply(1 / pdf)
}

func (p *Plastic) Flags() Flags {
	return DeltaReflection | DiffuseReflection
}
