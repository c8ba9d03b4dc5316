package material

import (
	"github.com/df07/lumen/pkg/core"
)

// Conductor is a perfectly smooth metal with complex index of refraction.
// A zero K selects an ideal mirror scaled by SpecularReflectance.
type Conductor struct {
	Eta                 core.Vec3
	K                   core.Vec3
	SpecularReflectance core.Vec3
}

// NewConductor creates a smooth conductor
func NewConductor(eta, k, specularReflectance core.Vec3) *Conductor {
	return &Conductor{Eta: eta, K: k, SpecularReflectance: specularReflectance}
}

// NewMirror creates an ideal mirror
func NewMirror(reflectance core.Vec3) *Conductor {
	return &Conductor{SpecularReflectance: reflectance}
}

func (c *Conductor) fresnel(cosThetaI float64) core.Vec3 {
	if c.K.IsBlack() && c.Eta.IsBlack() {
		return core.Splat(1)
	}
	return fresnelConductorRGB(cosThetaI, c.Eta, c.K)
}

// Sample returns the mirror direction with discrete probability one
func (c *Conductor) Sample(ctx Context, wi core.Vec3, u1 float64, u2 core.Vec2) (Sample, core.Vec3) {
	if wi.Z <= 0 {
		return Sample{}, core.Vec3{}
	}
	weight := c.SpecularReflectance.MultiplyVec(c.fresnel(wi.Z))
	return Sample{Wo: reflect(wi), PDF: 1, Eta: 1, Lobe: DeltaReflection}, weight
}

// Eval is zero: a delta lobe has no finite density
func (c *Conductor) Eval(ctx Context, wi, wo core.Vec3) core.Vec3 {
	return core.Vec3{}
}

// PDF is zero for the delta lobe
func (c *Conductor) PDF(ctx Context, wi, wo core.Vec3) float64 {
	return 0
}

func (c *Conductor) Flags() Flags {
	return DeltaReflection
}
