package material

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// Diffuse is an ideal Lambertian reflector
type Diffuse struct {
	Reflectance ColorSource
}

// NewDiffuse creates a diffuse material with a solid reflectance
func NewDiffuse(reflectance core.Vec3) *Diffuse {
	return &Diffuse{Reflectance: NewSolidColor(reflectance)}
}

// NewTexturedDiffuse creates a diffuse material driven by a texture
func NewTexturedDiffuse(reflectance ColorSource) *Diffuse {
	return &Diffuse{Reflectance: reflectance}
}

// Sample draws a cosine-weighted direction; the weight is the reflectance
func (d *Diffuse) Sample(ctx Context, wi core.Vec3, u1 float64, u2 core.Vec2) (Sample, core.Vec3) {
	if wi.Z <= 0 {
		return Sample{}, core.Vec3{}
	}
	wo := core.SquareToCosineHemisphere(u2)
	pdf := core.CosineHemispherePDF(wo)
	if pdf == 0 {
		return Sample{}, core.Vec3{}
	}
	return Sample{Wo: wo, PDF: pdf, Eta: 1, Lobe: DiffuseReflection}, d.Reflectance.Evaluate(ctx.UV, ctx.Point)
}

// Eval returns ρ/π·cosθo for directions on the front side
func (d *Diffuse) Eval(ctx Context, wi, wo core.Vec3) core.Vec3 {
	if wi.Z <= 0 || wo.Z <= 0 {
		return core.Vec3{}
	}
	return d.Reflectance.Evaluate(ctx.UV, ctx.Point).Multiply(wo.Z / math.Pi)
}

// PDF returns the cosine-weighted density
func (d *Diffuse) PDF(ctx Context, wi, wo core.Vec3) float64 {
	if wi.Z <= 0 {
		return 0
	}
	return core.CosineHemispherePDF(wo)
}

func (d *Diffuse) Flags() Flags {
	return DiffuseReflection
}
