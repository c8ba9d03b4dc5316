package material

import (
	"github.com/df07/lumen/pkg/core"
)

// Dielectric is a smooth interface between two media, like glass or water.
// Eta is the interior IOR divided by the exterior IOR.
type Dielectric struct {
	Eta                   float64
	SpecularReflectance   core.Vec3
	SpecularTransmittance core.Vec3
}

// NewDielectric creates a clear dielectric with relative index eta
func NewDielectric(eta float64) *Dielectric {
	return &Dielectric{Eta: eta, SpecularReflectance: core.Splat(1), SpecularTransmittance: core.Splat(1)}
}

// Sample chooses reflection with probability equal to the Fresnel reflectance
func (d *Dielectric) Sample(ctx Context, wi core.Vec3, u1 float64, u2 core.Vec2) (Sample, core.Vec3) {
	f, cosThetaT := fresnelDielectric(wi.Z, d.Eta)

	if u1 <= f {
		return Sample{Wo: reflect(wi), PDF: f, Eta: 1, Lobe: DeltaReflection}, d.SpecularReflectance
	}

	eta := d.Eta
	if cosThetaT >= 0 {
		eta = 1 / d.Eta
	}
	weight := d.SpecularTransmittance
	if ctx.Mode == Radiance {
		// radiance is compressed entering a denser medium
		weight = weight.Multiply(1 / (eta * eta))
	}
	return Sample{Wo: refract(wi, d.Eta, cosThetaT), PDF: 1 - f, Eta: eta, Lobe: DeltaTransmission}, weight
}

// Eval is zero for both delta lobes
func (d *Dielectric) Eval(ctx Context, wi, wo core.Vec3) core.Vec3 {
	return core.Vec3{}
}

// PDF is zero for both delta lobes
func (d *Dielectric) PDF(ctx Context, wi, wo core.Vec3) float64 {
	return 0
}

func (d *Dielectric) Flags() Flags {
	return DeltaReflection | DeltaTransmission | TwoSided
}

// ThinDielectric models a thin sheet of glass: internal reflections are
// folded into the reflectance and transmission does not bend the ray.
type ThinDielectric struct {
	Eta                   float64
	SpecularReflectance   core.Vec3
	SpecularTransmittance core.Vec3
}

// NewThinDielectric creates a thin clear sheet with relative index eta
func NewThinDielectric(eta float64) *ThinDielectric {
	return &ThinDielectric{Eta: eta, SpecularReflectance: core.Splat(1), SpecularTransmittance: core.Splat(1)}
}

func (d *ThinDielectric) reflectance(cosThetaI float64) float64 {
	r, _ := fresnelDielectric(abs(cosThetaI), d.Eta)
	if r < 1 {
		// sum of all internal bounces through the sheet
		t := 1 - r
		r += t * t * r / (1 - r*r)
	}
	return r
}

// Sample reflects with the multiple-bounce reflectance or passes straight through
func (d *ThinDielectric) Sample(ctx Context, wi core.Vec3, u1 float64, u2 core.Vec2) (Sample, core.Vec3) {
	r := d.reflectance(wi.Z)
	if u1 <= r {
		return Sample{Wo: reflect(wi), PDF: r, Eta: 1, Lobe: DeltaReflection}, d.SpecularReflectance
	}
	return Sample{Wo: wi.Negate(), PDF: 1 - r, Eta: 1, Lobe: PassThrough}, d.SpecularTransmittance
}

// Eval is zero for both delta lobes
func (d *ThinDielectric) Eval(ctx Context, wi, wo core.Vec3) core.Vec3 {
	return core.Vec3{}
}

// PDF is zero for both delta lobes
func (d *ThinDielectric) PDF(ctx Context, wi, wo core.Vec3) float64 {
	return 0
}

func (d *ThinDielectric) Flags() Flags {
	return DeltaReflection | PassThrough | TwoSided
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
