package lights

import (
	"math"

	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/geometry"
)

// AreaLight emits constant radiance from the front side of a shape. Points
// are sampled uniformly by area over all of the shape's primitives.
type AreaLight struct {
	L core.Vec3

	primitives []geometry.Primitive
	areas      *core.Distribution1D
	area       float64
}

// NewAreaLight binds an emitter to the primitives of one shape
func NewAreaLight(radiance core.Vec3, primitives []geometry.Primitive) *AreaLight {
	weights := make([]float64, len(primitives))
	total := 0.0
	for i, p := range primitives {
		weights[i] = p.Area()
		total += weights[i]
	}
	return &AreaLight{L: radiance, primitives: primitives, areas: core.NewDistribution1D(weights), area: total}
}

// SurfaceArea returns the total emitting area
func (l *AreaLight) SurfaceArea() float64 {
	return l.area
}

func (l *AreaLight) samplePoint(u core.Vec2) (core.Vec3, core.Vec3) {
	i, pmf := l.areas.Sample(u.X)
	// reuse the selection sample for the position
	lo := l.areas.CDF(i)
	u.X = max(0, min((u.X-lo)/pmf, math.Nextafter(1, 0)))
	return l.primitives[i].SampleArea(u)
}

func (l *AreaLight) SampleDirect(ref core.Vec3, u core.Vec2, occ Occluder) EmitterSample {
	if l.area == 0 {
		return EmitterSample{}
	}
	p, n := l.samplePoint(u)

	toLight := p.Subtract(ref)
	distance := toLight.Length()
	if distance == 0 {
		return EmitterSample{}
	}
	dir := toLight.Multiply(1 / distance)

	// one-sided: only the front face emits
	cosLight := -n.Dot(dir)
	if cosLight <= 1e-8 {
		return EmitterSample{}
	}

	s := EmitterSample{
		Direction: dir,
		Point:     p,
		Normal:    n,
		Distance:  distance,
		Radiance:  l.L,
		PDF:       distance * distance / (cosLight * l.area),
		Flags:     Area,
	}
	shadowTest(occ, ref, &s)
	return s
}

func (l *AreaLight) PDFDirect(ref, p, n, wi core.Vec3) float64 {
	cosLight := math.Abs(n.Dot(wi))
	if cosLight == 0 || l.area == 0 {
		return 0
	}
	d2 := p.Subtract(ref).LengthSquared()
	return d2 / (cosLight * l.area)
}

func (l *AreaLight) Radiance(p, n, w core.Vec3) core.Vec3 {
	if n.Dot(w) <= 0 {
		return core.Vec3{}
	}
	return l.L
}

func (l *AreaLight) Environment(dir core.Vec3) core.Vec3 {
	return core.Vec3{}
}

// SampleEmission picks a uniform point and a cosine-weighted direction
func (l *AreaLight) SampleEmission(u1, u2 core.Vec2) EmissionSample {
	if l.area == 0 {
		return EmissionSample{}
	}
	p, n := l.samplePoint(u1)
	local := core.SquareToCosineHemisphere(u2)
	return EmissionSample{
		Point:     p,
		Normal:    n,
		Direction: core.NewFrame(n).ToWorld(local),
		Radiance:  l.L,
		PDFPos:    1 / l.area,
		PDFDir:    core.CosineHemispherePDF(local),
	}
}

func (l *AreaLight) PDFEmission(p, n, dir core.Vec3) (float64, float64) {
	if l.area == 0 {
		return 0, 0
	}
	return 1 / l.area, max(0, n.Dot(dir)) / math.Pi
}

func (l *AreaLight) Flags() Flags {
	return Area
}

func (l *AreaLight) Power() core.Vec3 {
	return l.L.Multiply(math.Pi * l.area)
}

func (l *AreaLight) Preprocess(center core.Vec3, radius float64) {}
