package lights

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// PointLight emits uniformly in all directions from a single position
type PointLight struct {
	Position  core.Vec3
	Intensity core.Vec3
}

func NewPointLight(position, intensity core.Vec3) *PointLight {
	return &PointLight{Position: position, Intensity: intensity}
}

func (l *PointLight) SampleDirect(ref core.Vec3, u core.Vec2, occ Occluder) EmitterSample {
	toLight := l.Position.Subtract(ref)
	distance := toLight.Length()
	if distance == 0 {
		return EmitterSample{}
	}

	s := EmitterSample{
		Direction: toLight.Multiply(1 / distance),
		Point:     l.Position,
		Distance:  distance,
		Radiance:  l.Intensity.Multiply(1 / (distance * distance)),
		PDF:       1,
		Flags:     DeltaPosition,
	}
	shadowTest(occ, ref, &s)
	return s
}

// PDFDirect is zero: a point cannot be hit by chance
func (l *PointLight) PDFDirect(ref, p, n, wi core.Vec3) float64 {
	return 0
}

func (l *PointLight) Radiance(p, n, w core.Vec3) core.Vec3 {
	return core.Vec3{}
}

func (l *PointLight) Environment(dir core.Vec3) core.Vec3 {
	return core.Vec3{}
}

func (l *PointLight) SampleEmission(u1, u2 core.Vec2) EmissionSample {
	return EmissionSample{
		Point:     l.Position,
		Direction: core.SquareToUniformSphere(u2),
		Radiance:  l.Intensity,
		PDFPos:    1,
		PDFDir:    core.UniformSpherePDF,
	}
}

func (l *PointLight) PDFEmission(p, n, dir core.Vec3) (float64, float64) {
	return 0, core.UniformSpherePDF
}

func (l *PointLight) Flags() Flags {
	return DeltaPosition
}

func (l *PointLight) Power() core.Vec3 {
	return l.Intensity.Multiply(4 * math.Pi)
}

func (l *PointLight) Preprocess(center core.Vec3, radius float64) {}
