package lights

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// SpotLight is a point light restricted to a cone with a smooth falloff
// toward its edge
type SpotLight struct {
	Position  core.Vec3
	Intensity core.Vec3

	frame           core.Frame // z along the spot axis
	cosTotalWidth   float64    // outer edge of the cone
	cosFalloffStart float64    // inner cone at full intensity
}

// NewSpotLight aims a spot from from toward to. coneAngle is the total
// half-angle in degrees and coneDelta the width of the falloff band.
func NewSpotLight(from, to, intensity core.Vec3, coneAngle, coneDelta float64) *SpotLight {
	return &SpotLight{
		Position:        from,
		Intensity:       intensity,
		frame:           core.NewFrame(to.Subtract(from).Normalize()),
		cosTotalWidth:   math.Cos(coneAngle * math.Pi / 180),
		cosFalloffStart: math.Cos((coneAngle - coneDelta) * math.Pi / 180),
	}
}

// falloff is 1 inside the inner cone, 0 outside the cone and quartic between
func (l *SpotLight) falloff(cosAngle float64) float64 {
	if cosAngle < l.cosTotalWidth {
		return 0
	}
	if cosAngle >= l.cosFalloffStart {
		return 1
	}
	delta := (cosAngle - l.cosTotalWidth) / (l.cosFalloffStart - l.cosTotalWidth)
	return delta * delta * delta * delta
}

func (l *SpotLight) SampleDirect(ref core.Vec3, u core.Vec2, occ Occluder) EmitterSample {
	toLight := l.Position.Subtract(ref)
	distance := toLight.Length()
	if distance == 0 {
		return EmitterSample{}
	}
	dir := toLight.Multiply(1 / distance)

	s := EmitterSample{
		Direction: dir,
		Point:     l.Position,
		Distance:  distance,
		Radiance:  l.Intensity.Multiply(l.falloff(l.frame.N.Dot(dir.Negate())) / (distance * distance)),
		PDF:       1,
		Flags:     DeltaPosition,
	}
	if s.Radiance.IsBlack() {
		return s
	}
	shadowTest(occ, ref, &s)
	return s
}

func (l *SpotLight) PDFDirect(ref, p, n, wi core.Vec3) float64 {
	return 0
}

func (l *SpotLight) Radiance(p, n, w core.Vec3) core.Vec3 {
	return core.Vec3{}
}

func (l *SpotLight) Environment(dir core.Vec3) core.Vec3 {
	return core.Vec3{}
}

func (l *SpotLight) SampleEmission(u1, u2 core.Vec2) EmissionSample {
	local := core.SquareToUniformCone(u2, l.cosTotalWidth)
	return EmissionSample{
		Point:     l.Position,
		Direction: l.frame.ToWorld(local),
		Radiance:  l.Intensity.Multiply(l.falloff(local.Z)),
		PDFPos:    1,
		PDFDir:    core.UniformConePDF(l.cosTotalWidth),
	}
}

func (l *SpotLight) PDFEmission(p, n, dir core.Vec3) (float64, float64) {
	if l.frame.N.Dot(dir) < l.cosTotalWidth {
		return 0, 0
	}
	return 0, core.UniformConePDF(l.cosTotalWidth)
}

func (l *SpotLight) Flags() Flags {
	return DeltaPosition
}

// Power approximates the falloff band as half intensity
func (l *SpotLight) Power() core.Vec3 {
	return l.Intensity.Multiply(2 * math.Pi * (1 - 0.5*(l.cosFalloffStart+l.cosTotalWidth)))
}

func (l *SpotLight) Preprocess(center core.Vec3, radius float64) {}
