package sensor

import (
	"math"
)

// Filter is a separable pixel reconstruction filter centered at the origin
type Filter interface {
	Radius() float64
	Evaluate(x, y float64) float64
}

// BoxFilter weights every sample within the radius equally
type BoxFilter struct {
	radius float64
}

func NewBoxFilter(radius float64) *BoxFilter {
	return &BoxFilter{radius: radius}
}

func (f *BoxFilter) Radius() float64 { return f.radius }

func (f *BoxFilter) Evaluate(x, y float64) float64 {
	if math.Abs(x) > f.radius || math.Abs(y) > f.radius {
		return 0
	}
	return 1
}

// TentFilter falls off linearly to zero at the radius
type TentFilter struct {
	radius float64
}

func NewTentFilter(radius float64) *TentFilter {
	return &TentFilter{radius: radius}
}

func (f *TentFilter) Radius() float64 { return f.radius }

func (f *TentFilter) Evaluate(x, y float64) float64 {
	return max(0, f.radius-math.Abs(x)) * max(0, f.radius-math.Abs(y))
}

// GaussianFilter is a Gaussian shifted down to reach zero at the radius
type GaussianFilter struct {
	radius float64
	alpha  float64
	expR   float64
}

// NewGaussianFilter creates a Gaussian with falloff alpha (2 is a good default)
func NewGaussianFilter(radius, alpha float64) *GaussianFilter {
	return &GaussianFilter{radius: radius, alpha: alpha, expR: math.Exp(-alpha * radius * radius)}
}

func (f *GaussianFilter) Radius() float64 { return f.radius }

func (f *GaussianFilter) gaussian(d float64) float64 {
	return max(0, math.Exp(-f.alpha*d*d)-f.expR)
}

func (f *GaussianFilter) Evaluate(x, y float64) float64 {
	return f.gaussian(x) * f.gaussian(y)
}

// MitchellFilter is the Mitchell-Netravali cubic with parameters B and C
type MitchellFilter struct {
	radius float64
	b, c   float64
}

// NewMitchellFilter creates the filter; B = C = 1/3 is the usual choice
func NewMitchellFilter(radius, b, c float64) *MitchellFilter {
	return &MitchellFilter{radius: radius, b: b, c: c}
}

func (f *MitchellFilter) Radius() float64 { return f.radius }

func (f *MitchellFilter) mitchell1D(x float64) float64 {
	x = math.Abs(2 * x / f.radius)
	b, c := f.b, f.c
	if x > 2 {
		return 0
	}
	if x > 1 {
		return ((-b-6*c)*x*x*x + (6*b+30*c)*x*x + (-12*b-48*c)*x + (8*b + 24*c)) / 6
	}
	return ((12-9*b-6*c)*x*x*x + (-18+12*b+6*c)*x*x + (6 - 2*b)) / 6
}

func (f *MitchellFilter) Evaluate(x, y float64) float64 {
	return f.mitchell1D(x) * f.mitchell1D(y)
}
