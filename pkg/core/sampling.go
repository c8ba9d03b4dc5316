package core

import (
	"math"
)

// Sampler provides uniform samples in [0,1) for rendering algorithms.
// Implementations are not safe for concurrent use; each goroutine owns one.
type Sampler interface {
	Get1D() float64
	Get2D() Vec2
	Get3D() Vec3
}

// SquareToCosineHemisphere maps a sample to a cosine-weighted direction around +Z
func SquareToCosineHemisphere(sample Vec2) Vec3 {
	d := SquareToUniformDiskConcentric(sample)
	z := math.Sqrt(max(0, 1-d.X*d.X-d.Y*d.Y))
	return Vec3{d.X, d.Y, z}
}

// CosineHemispherePDF is the solid-angle density of SquareToCosineHemisphere
func CosineHemispherePDF(v Vec3) float64 {
	if v.Z <= 0 {
		return 0
	}
	return v.Z / math.Pi
}

// SquareToUniformSphere generates a uniform direction on the unit sphere
func SquareToUniformSphere(sample Vec2) Vec3 {
	z := 1.0 - 2.0*sample.X
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * sample.Y
	return Vec3{r * math.Cos(phi), r * math.Sin(phi), z}
}

// UniformSpherePDF is the density of SquareToUniformSphere
const UniformSpherePDF = 1 / (4 * math.Pi)

// SquareToUniformCone samples a direction uniformly within a cone around +Z
func SquareToUniformCone(sample Vec2, cosCutoff float64) Vec3 {
	cosTheta := 1.0 - sample.X*(1.0-cosCutoff)
	sinTheta := math.Sqrt(math.Max(0, 1.0-cosTheta*cosTheta))
	phi := 2.0 * math.Pi * sample.Y
	return Vec3{sinTheta * math.Cos(phi), sinTheta * math.Sin(phi), cosTheta}
}

// UniformConePDF is the density of SquareToUniformCone
func UniformConePDF(cosCutoff float64) float64 {
	return 1 / (2 * math.Pi * (1 - cosCutoff))
}

// SquareToUniformDiskConcentric maps the unit square to the unit disk (Shirley-Chiu)
func SquareToUniformDiskConcentric(sample Vec2) Vec2 {
	ox, oy := 2*sample.X-1, 2*sample.Y-1
	if ox == 0 && oy == 0 {
		return Vec2{}
	}

	var theta, r float64
	if math.Abs(ox) > math.Abs(oy) {
		r = ox
		theta = math.Pi / 4 * (oy / ox)
	} else {
		r = oy
		theta = math.Pi/2 - math.Pi/4*(ox/oy)
	}
	return Vec2{r * math.Cos(theta), r * math.Sin(theta)}
}

// SquareToUniformTriangle returns barycentric coordinates (b0, b1) uniform over a triangle
func SquareToUniformTriangle(sample Vec2) Vec2 {
	su0 := math.Sqrt(sample.X)
	return Vec2{1 - su0, sample.Y * su0}
}

// PowerHeuristic returns the MIS weight of strategy f against g (exponent 2).
// Densities may be unnormalised as long as both use the same measure.
func PowerHeuristic(fPdf, gPdf float64) float64 {
	f2, g2 := fPdf*fPdf, gPdf*gPdf
	if f2+g2 == 0 {
		return 0
	}
	if math.IsInf(f2, 1) {
		return 1
	}
	return f2 / (f2 + g2)
}
