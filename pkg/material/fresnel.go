package material

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// fresnelDielectric returns the unpolarized reflectance at a dielectric
// interface with relative IOR eta (inside/outside) and the signed cosine
// of the transmitted direction (negative when entering the inside).
func fresnelDielectric(cosThetaI, eta float64) (float64, float64) {
	if eta == 1 {
		return 0, -cosThetaI
	}

	scale := eta
	if cosThetaI > 0 {
		scale = 1 / eta
	}
	cosThetaTSqr := 1 - (1-cosThetaI*cosThetaI)*(scale*scale)
	if cosThetaTSqr <= 0 {
		return 1, 0 // total internal reflection
	}

	cosI := math.Abs(cosThetaI)
	cosT := math.Sqrt(cosThetaTSqr)

	rs := (cosI - eta*cosT) / (cosI + eta*cosT)
	rp := (eta*cosI - cosT) / (eta*cosI + cosT)

	if cosThetaI > 0 {
		cosT = -cosT
	}
	return 0.5 * (rs*rs + rp*rp), cosT
}

// refract bends wi through the interface with normal +Z
func refract(wi core.Vec3, eta, cosThetaT float64) core.Vec3 {
	scale := -eta
	if cosThetaT < 0 {
		scale = -1 / eta
	}
	return core.NewVec3(scale*wi.X, scale*wi.Y, cosThetaT)
}

// refractAbout bends wi through a microfacet with normal m
func refractAbout(wi, m core.Vec3, eta, cosThetaT float64) core.Vec3 {
	scale := eta
	if cosThetaT < 0 {
		scale = 1 / eta
	}
	return m.Multiply(wi.Dot(m)*scale + cosThetaT).Subtract(wi.Multiply(scale))
}

// fresnelConductor computes the exact reflectance of a conductor with
// complex IOR eta + i·k for one color channel.
func fresnelConductor(cosThetaI, eta, k float64) float64 {
	cosI2 := cosThetaI * cosThetaI
	sinI2 := 1 - cosI2
	sinI4 := sinI2 * sinI2

	temp1 := eta*eta - k*k - sinI2
	a2pb2 := math.Sqrt(max(0, temp1*temp1+4*k*k*eta*eta))
	a := math.Sqrt(max(0, 0.5*(a2pb2+temp1)))

	term1 := a2pb2 + cosI2
	term2 := 2 * a * cosThetaI
	rs2 := (term1 - term2) / (term1 + term2)

	term3 := a2pb2*cosI2 + sinI4
	term4 := term2 * sinI2
	rp2 := rs2 * (term3 - term4) / (term3 + term4)

	return 0.5 * (rp2 + rs2)
}

func fresnelConductorRGB(cosThetaI float64, eta, k core.Vec3) core.Vec3 {
	return core.NewVec3(
		fresnelConductor(cosThetaI, eta.X, k.X),
		fresnelConductor(cosThetaI, eta.Y, k.Y),
		fresnelConductor(cosThetaI, eta.Z, k.Z),
	)
}

// fresnelDiffuseReflectance integrates the dielectric Fresnel reflectance over
// a cosine-weighted hemisphere: Fdr = ∫ 2μ F(μ) dμ. Simpson's rule.
func fresnelDiffuseReflectance(eta float64) float64 {
	const steps = 256
	h := 1.0 / steps
	f := func(mu float64) float64 {
		r, _ := fresnelDielectric(mu, eta)
		return 2 * mu * r
	}

	sum := f(0) + f(1)
	for i := 1; i < steps; i++ {
		x := float64(i) * h
		if i%2 == 1 {
			sum += 4 * f(x)
		} else {
			sum += 2 * f(x)
		}
	}
	return sum * h / 3
}
