package material

import (
	"github.com/df07/lumen/pkg/core"
)

// RoughConductor is a metal with a microfacet surface (Walter et al. 2007)
type RoughConductor struct {
	Distribution        Microfacet
	Eta                 core.Vec3
	K                   core.Vec3
	SpecularReflectance core.Vec3
}

// NewRoughConductor creates a rough conductor
func NewRoughConductor(dist Microfacet, eta, k, specularReflectance core.Vec3) *RoughConductor {
	return &RoughConductor{Distribution: dist, Eta: eta, K: k, SpecularReflectance: specularReflectance}
}

func (c *RoughConductor) fresnel(cosThetaI float64) core.Vec3 {
	if c.K.IsBlack() && c.Eta.IsBlack() {
		return core.Splat(1)
	}
	return fresnelConductorRGB(cosThetaI, c.Eta, c.K)
}

// Eval returns F·D·G/(4cosθi), the microfacet BRDF times cosθo
func (c *RoughConductor) Eval(ctx Context, wi, wo core.Vec3) core.Vec3 {
	if wi.Z <= 0 || wo.Z <= 0 {
		return core.Vec3{}
	}
	h := wi.Add(wo).Normalize()
	d := c.Distribution.D(h)
	if d == 0 {
		return core.Vec3{}
	}
	g := c.Distribution.G(wi, wo, h)
	f := c.fresnel(wi.Dot(h))
	return c.SpecularReflectance.MultiplyVec(f).Multiply(d * g / (4 * wi.Z))
}

// PDF converts the normal density to the reflected direction's density
func (c *RoughConductor) PDF(ctx Context, wi, wo core.Vec3) float64 {
	if wi.Z <= 0 || wo.Z <= 0 {
		return 0
	}
	h := wi.Add(wo).Normalize()
	return c.Distribution.PDF(h) / (4 * wo.Dot(h))
}

// Sample reflects wi about a sampled microfacet normal
func (c *RoughConductor) Sample(ctx Context, wi core.Vec3, u1 float64, u2 core.Vec2) (Sample, core.Vec3) {
	if wi.Z <= 0 {
		return Sample{}, core.Vec3{}
	}
	h, pdfH := c.Distribution.Sample(u2)
	if pdfH == 0 {
		return Sample{}, core.Vec3{}
	}
	wo := reflectAbout(wi, h)
	if wo.Z <= 0 {
		return Sample{}, core.Vec3{}
	}

	pdf := c.PDF(ctx, wi, wo)
	if pdf <= 0 {
		return Sample{}, core.Vec3{}
	}
	return Sample{Wo: wo, PDF: pdf, Eta: 1, Lobe: GlossyReflection}, c.Eval(ctx, wi, wo).Multiply(1 / pdf)
}

func (c *RoughConductor) Flags() Flags {
	return GlossyReflection
}
