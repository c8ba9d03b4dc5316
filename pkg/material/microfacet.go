package material

import (
	"fmt"
	"math"

	"github.com/df07/lumen/pkg/core"
)

// DistributionType selects the microfacet normal distribution
type DistributionType int

const (
	Beckmann DistributionType = iota
	GGX
)

// ParseDistribution maps a distribution name to its type
func ParseDistribution(name string) (DistributionType, error) {
	switch name {
	case "beckmann":
		return Beckmann, nil
	case "ggx":
		return GGX, nil
	}
	return 0, fmt.Errorf("unknown microfacet distribution %q", name)
}

func (t DistributionType) String() string {
	if t == GGX {
		return "ggx"
	}
	return "beckmann"
}

// Microfacet is an anisotropic microfacet distribution. Normals are sampled
// proportional to D(m)·cosθm, so PDF integrates to one over the hemisphere.
type Microfacet struct {
	Type   DistributionType
	AlphaU float64
	AlphaV float64
}

// NewMicrofacet creates a distribution, clamping roughness away from zero
func NewMicrofacet(kind DistributionType, alphaU, alphaV float64) Microfacet {
	return Microfacet{Type: kind, AlphaU: max(alphaU, 1e-4), AlphaV: max(alphaV, 1e-4)}
}

// IsIsotropic reports whether both roughness values agree
func (m Microfacet) IsIsotropic() bool {
	return m.AlphaU == m.AlphaV
}

// D evaluates the normal distribution for microfacet normal h
func (m Microfacet) D(h core.Vec3) float64 {
	if h.Z <= 0 {
		return 0
	}

	cos2 := h.Z * h.Z
	beckmannExp := ((h.X*h.X)/(m.AlphaU*m.AlphaU) + (h.Y*h.Y)/(m.AlphaV*m.AlphaV)) / cos2

	var result float64
	switch m.Type {
	case Beckmann:
		result = math.Exp(-beckmannExp) / (math.Pi * m.AlphaU * m.AlphaV * cos2 * cos2)
	case GGX:
		root := (1 + beckmannExp) * cos2
		result = 1 / (math.Pi * m.AlphaU * m.AlphaV * root * root)
	}

	// prevent numerical issues at grazing angles
	if result*h.Z < 1e-20 {
		return 0
	}
	return result
}

// projectRoughness returns the effective roughness along v's azimuth
func (m Microfacet) projectRoughness(v core.Vec3) float64 {
	invSinTheta2 := 1 / core.SinTheta2(v)
	if m.IsIsotropic() || math.IsInf(invSinTheta2, 0) {
		return m.AlphaU
	}
	cosPhi2 := v.X * v.X * invSinTheta2
	sinPhi2 := v.Y * v.Y * invSinTheta2
	return math.Sqrt(cosPhi2*m.AlphaU*m.AlphaU + sinPhi2*m.AlphaV*m.AlphaV)
}

// G1 is the Smith shadowing-masking term for one direction
func (m Microfacet) G1(v, h core.Vec3) float64 {
	if v.Dot(h)*v.Z <= 0 {
		return 0
	}

	tanTheta := math.Abs(core.TanTheta(v))
	if tanTheta == 0 {
		return 1
	}

	alpha := m.projectRoughness(v)
	switch m.Type {
	case Beckmann:
		a := 1 / (alpha * tanTheta)
		if a >= 1.6 {
			return 1
		}
		// the rational fit overshoots 1 slightly just below the cutoff
		aSqr := a * a
		return min(1, (3.535*a+2.181*aSqr)/(1+2.276*a+2.577*aSqr))
	default:
		root := alpha * tanTheta
		return 2 / (1 + math.Hypot(1, root))
	}
}

// G is the separable shadowing-masking term for a pair of directions
func (m Microfacet) G(wi, wo, h core.Vec3) float64 {
	return m.G1(wi, h) * m.G1(wo, h)
}

// Sample draws a microfacet normal proportional to D(m)·cosθm and returns its density
func (m Microfacet) Sample(sample core.Vec2) (core.Vec3, float64) {
	var cosPhi, sinPhi, alphaSqr float64
	if m.IsIsotropic() {
		phi := 2 * math.Pi * sample.Y
		sinPhi, cosPhi = math.Sincos(phi)
		alphaSqr = m.AlphaU * m.AlphaU
	} else {
		phi := math.Atan(m.AlphaV/m.AlphaU*math.Tan(math.Pi+2*math.Pi*sample.Y)) + math.Pi*math.Floor(2*sample.Y+0.5)
		sinPhi, cosPhi = math.Sincos(phi)
		alphaSqr = 1 / (cosPhi*cosPhi/(m.AlphaU*m.AlphaU) + sinPhi*sinPhi/(m.AlphaV*m.AlphaV))
	}

	var tanThetaSqr float64
	switch m.Type {
	case Beckmann:
		tanThetaSqr = -alphaSqr * math.Log(1-sample.X)
	default:
		tanThetaSqr = alphaSqr * sample.X / (1 - sample.X)
	}

	cosTheta := 1 / math.Sqrt(1+tanThetaSqr)
	sinTheta := math.Sqrt(max(0, 1-cosTheta*cosTheta))
	h := core.NewVec3(sinTheta*cosPhi, sinTheta*sinPhi, cosTheta)

	pdf := m.D(h) * cosTheta
	if pdf < 1e-20 {
		return h, 0
	}
	return h, pdf
}

// PDF returns the density of sampling normal h
func (m Microfacet) PDF(h core.Vec3) float64 {
	return m.D(h) * h.Z
}
