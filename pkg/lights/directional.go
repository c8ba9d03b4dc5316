package lights

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// DirectionalLight is a distant source whose light arrives along a single
// direction, like the sun
type DirectionalLight struct {
	Direction  core.Vec3 // direction the light travels
	Irradiance core.Vec3

	worldCenter core.Vec3
	worldRadius float64
}

func NewDirectionalLight(direction, irradiance core.Vec3) *DirectionalLight {
	return &DirectionalLight{Direction: direction.Normalize(), Irradiance: irradiance}
}

func (l *DirectionalLight) SampleDirect(ref core.Vec3, u core.Vec2, occ Occluder) EmitterSample {
	wi := l.Direction.Negate()
	s := EmitterSample{
		Direction: wi,
		Point:     ref.Add(wi.Multiply(2 * max(l.worldRadius, 1))),
		Distance:  math.Inf(1),
		Radiance:  l.Irradiance,
		PDF:       1,
		Flags:     DeltaDirection,
	}
	shadowTest(occ, ref, &s)
	return s
}

func (l *DirectionalLight) PDFDirect(ref, p, n, wi core.Vec3) float64 {
	return 0
}

func (l *DirectionalLight) Radiance(p, n, w core.Vec3) core.Vec3 {
	return core.Vec3{}
}

func (l *DirectionalLight) Environment(dir core.Vec3) core.Vec3 {
	return core.Vec3{}
}

// SampleEmission starts parallel rays on a disk covering the scene
func (l *DirectionalLight) SampleEmission(u1, u2 core.Vec2) EmissionSample {
	frame := core.NewFrame(l.Direction)
	d := core.SquareToUniformDiskConcentric(u1)
	origin := l.worldCenter.
		Add(frame.S.Multiply(d.X * l.worldRadius)).
		Add(frame.T.Multiply(d.Y * l.worldRadius)).
		Subtract(l.Direction.Multiply(l.worldRadius))

	return EmissionSample{
		Point:     origin,
		Direction: l.Direction,
		Radiance:  l.Irradiance,
		PDFPos:    1 / (math.Pi * l.worldRadius * l.worldRadius),
		PDFDir:    1,
	}
}

func (l *DirectionalLight) PDFEmission(p, n, dir core.Vec3) (float64, float64) {
	return 1 / (math.Pi * l.worldRadius * l.worldRadius), 0
}

func (l *DirectionalLight) Flags() Flags {
	return DeltaDirection
}

func (l *DirectionalLight) Power() core.Vec3 {
	return l.Irradiance.Multiply(math.Pi * l.worldRadius * l.worldRadius)
}

func (l *DirectionalLight) Preprocess(center core.Vec3, radius float64) {
	l.worldCenter = center
	l.worldRadius = radius
}
