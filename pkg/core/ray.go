package core

import "math"

// RayEpsilon is the self-intersection offset applied to spawned rays.
const RayEpsilon = 1e-4

// Ray is a half-line with a valid parametric interval [TMin, TMax].
// Shadow rays only need to know whether anything is hit.
type Ray struct {
	Origin    Vec3
	Direction Vec3
	TMin      float64
	TMax      float64
	Shadow    bool
}

// NewRay creates a ray with an unbounded interval starting at RayEpsilon
func NewRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction, TMin: RayEpsilon, TMax: math.Inf(1)}
}

// NewShadowRay creates an occlusion query between two points. Both endpoints
// are excluded so the surfaces they lie on do not occlude themselves.
func NewShadowRay(from, to Vec3) Ray {
	d := to.Subtract(from)
	dist := d.Length()
	return Ray{
		Origin:    from,
		Direction: d.Multiply(1 / dist),
		TMin:      RayEpsilon,
		TMax:      dist*(1-1e-6) - RayEpsilon,
		Shadow:    true,
	}
}

// NewShadowRayDirection creates an occlusion query toward a point at infinity
func NewShadowRayDirection(from, direction Vec3) Ray {
	return Ray{Origin: from, Direction: direction, TMin: RayEpsilon, TMax: math.Inf(1), Shadow: true}
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(t))
}
