package material

import (
	"github.com/df07/lumen/pkg/core"
)

// TransportMode says which quantity a path carries. Refraction scales
// radiance by 1/η² but leaves importance unchanged.
type TransportMode int

const (
	Radiance TransportMode = iota
	Importance
)

// Flags describes the lobes a BSDF can produce
type Flags uint32

const (
	DiffuseReflection Flags = 1 << iota
	DiffuseTransmission
	GlossyReflection
	GlossyTransmission
	DeltaReflection
	DeltaTransmission
	PassThrough // null transmission that leaves the ray direction unchanged
	TwoSided

	Delta  = DeltaReflection | DeltaTransmission | PassThrough
	Smooth = DiffuseReflection | DiffuseTransmission | GlossyReflection | GlossyTransmission
)

// HasSmooth reports whether at least one lobe has a finite density, i.e.
// whether next-event estimation and connections make sense.
func (f Flags) HasSmooth() bool {
	return f&Smooth != 0
}

// IsDelta reports whether the set contains only delta lobes
func (f Flags) IsDelta() bool {
	return f&Delta != 0 && f&Smooth == 0
}

// Context carries per-query state that is not a direction
type Context struct {
	Mode  TransportMode
	UV    core.Vec2
	Point core.Vec3
}

// Sample is the result of importance sampling a BSDF
type Sample struct {
	Wo   core.Vec3 // sampled direction in the local shading frame
	PDF  float64   // solid-angle density, or discrete probability for delta lobes; 0 = invalid
	Eta  float64   // relative index of refraction along the sampled lobe
	Lobe Flags     // the single lobe that was sampled
}

// IsDelta reports whether the sampled lobe is a delta lobe
func (s Sample) IsDelta() bool {
	return s.Lobe&Delta != 0
}

// BSDF is a reflectance model evaluated in the local shading frame where
// the surface normal is +Z and wi points toward the previous path vertex.
// Implementations are immutable and safe for concurrent use.
type BSDF interface {
	// Sample draws an outgoing direction and returns the sample weight
	// f·|cosθo|/pdf (for delta lobes: the discrete weight, no cosine).
	Sample(ctx Context, wi core.Vec3, u1 float64, u2 core.Vec2) (Sample, core.Vec3)

	// Eval returns f·|cosθo|; zero for delta lobes.
	Eval(ctx Context, wi, wo core.Vec3) core.Vec3

	// PDF returns the solid-angle density Sample would produce for wo.
	PDF(ctx Context, wi, wo core.Vec3) float64

	Flags() Flags
}

func reflect(wi core.Vec3) core.Vec3 {
	return core.NewVec3(-wi.X, -wi.Y, wi.Z)
}

func reflectAbout(wi, m core.Vec3) core.Vec3 {
	return m.Multiply(2 * wi.Dot(m)).Subtract(wi)
}
