package lights

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// EnvironmentLight surrounds the scene at infinity. Radiance blends from
// Bottom to Top along the world Y axis; equal colors give a constant sky.
type EnvironmentLight struct {
	Top    core.Vec3
	Bottom core.Vec3

	worldCenter core.Vec3
	worldRadius float64
}

// NewConstantEnvironment creates a uniform environment
func NewConstantEnvironment(radiance core.Vec3) *EnvironmentLight {
	return &EnvironmentLight{Top: radiance, Bottom: radiance}
}

// NewGradientEnvironment creates a sky blending between two colors
func NewGradientEnvironment(top, bottom core.Vec3) *EnvironmentLight {
	return &EnvironmentLight{Top: top, Bottom: bottom}
}

// Environment maps the direction's Y component from [-1,1] onto the gradient
func (l *EnvironmentLight) Environment(dir core.Vec3) core.Vec3 {
	t := 0.5 * (dir.Normalize().Y + 1)
	return l.Bottom.Multiply(1 - t).Add(l.Top.Multiply(t))
}

// SampleDirect picks a uniform direction on the sphere
func (l *EnvironmentLight) SampleDirect(ref core.Vec3, u core.Vec2, occ Occluder) EmitterSample {
	dir := core.SquareToUniformSphere(u)
	s := EmitterSample{
		Direction: dir,
		Point:     ref.Add(dir.Multiply(2 * max(l.worldRadius, 1))),
		Distance:  math.Inf(1),
		Radiance:  l.Environment(dir),
		PDF:       core.UniformSpherePDF,
		Flags:     Infinite,
	}
	shadowTest(occ, ref, &s)
	return s
}

func (l *EnvironmentLight) PDFDirect(ref, p, n, wi core.Vec3) float64 {
	return core.UniformSpherePDF
}

func (l *EnvironmentLight) Radiance(p, n, w core.Vec3) core.Vec3 {
	return core.Vec3{}
}

// SampleEmission starts a ray on a disk covering the scene, pointing
// inward along a uniformly chosen direction
func (l *EnvironmentLight) SampleEmission(u1, u2 core.Vec2) EmissionSample {
	toLight := core.SquareToUniformSphere(u2)
	dir := toLight.Negate()

	frame := core.NewFrame(dir)
	d := core.SquareToUniformDiskConcentric(u1)
	origin := l.worldCenter.
		Add(frame.S.Multiply(d.X * l.worldRadius)).
		Add(frame.T.Multiply(d.Y * l.worldRadius)).
		Add(toLight.Multiply(l.worldRadius))

	return EmissionSample{
		Point:     origin,
		Direction: dir,
		Radiance:  l.Environment(toLight),
		PDFPos:    1 / (math.Pi * l.worldRadius * l.worldRadius),
		PDFDir:    core.UniformSpherePDF,
	}
}

func (l *EnvironmentLight) PDFEmission(p, n, dir core.Vec3) (float64, float64) {
	return 1 / (math.Pi * l.worldRadius * l.worldRadius), core.UniformSpherePDF
}

func (l *EnvironmentLight) Flags() Flags {
	return Infinite
}

func (l *EnvironmentLight) Power() core.Vec3 {
	avg := l.Top.Add(l.Bottom).Multiply(0.5)
	return avg.Multiply(math.Pi * l.worldRadius * l.worldRadius)
}

func (l *EnvironmentLight) Preprocess(center core.Vec3, radius float64) {
	l.worldCenter = center
	l.worldRadius = radius
}
