package core

import "math"

// Frame is an orthonormal basis. Local coordinates use N as the z axis,
// which is the convention every BSDF works in.
type Frame struct {
	S, T, N Vec3
}

// NewFrame builds a frame around a unit normal (Duff et al. branchless basis)
func NewFrame(n Vec3) Frame {
	sign := math.Copysign(1, n.Z)
	a := -1 / (sign + n.Z)
	b := n.X * n.Y * a
	s := Vec3{1 + sign*n.X*n.X*a, sign * b, -sign * n.X}
	t := Vec3{b, sign + n.Y*n.Y*a, -n.Y}
	return Frame{S: s, T: t, N: n}
}

// ToLocal expresses a world-space vector in the frame's coordinates
func (f Frame) ToLocal(v Vec3) Vec3 {
	return Vec3{v.Dot(f.S), v.Dot(f.T), v.Dot(f.N)}
}

// ToWorld converts a local vector back to world space
func (f Frame) ToWorld(v Vec3) Vec3 {
	return f.S.Multiply(v.X).Add(f.T.Multiply(v.Y)).Add(f.N.Multiply(v.Z))
}

// CosTheta returns the cosine of the angle between a local vector and the normal
func CosTheta(v Vec3) float64 { return v.Z }

// Cos2Theta returns the squared cosine for a local vector
func Cos2Theta(v Vec3) float64 { return v.Z * v.Z }

// SinTheta2 returns the squared sine for a local vector
func SinTheta2(v Vec3) float64 { return max(0, 1-v.Z*v.Z) }

// TanTheta returns the tangent of the polar angle for a local vector
func TanTheta(v Vec3) float64 {
	if v.Z == 0 {
		return math.Inf(1)
	}
	return math.Sqrt(SinTheta2(v)) / v.Z
}

// SinCosPhi returns the azimuth sine and cosine for a local vector
func SinCosPhi(v Vec3) (float64, float64) {
	sinTheta := math.Sqrt(SinTheta2(v))
	if sinTheta == 0 {
		return 0, 1
	}
	return max(-1, min(1, v.Y/sinTheta)), max(-1, min(1, v.X/sinTheta))
}

// SameHemisphere reports whether two local vectors lie on the same side
func SameHemisphere(a, b Vec3) bool {
	return a.Z*b.Z > 0
}
