package geometry

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// Quad represents a parallelogram defined by a corner and two edge vectors.
// The outward normal is U × V.
type Quad struct {
	Corner core.Vec3
	U      core.Vec3
	V      core.Vec3
	Normal core.Vec3
	d      float64   // plane constant: normal · p = d
	w      core.Vec3 // cached n / (n · (u × v)) for planar coordinates
	area   float64
}

// NewQuad creates a new quad from a corner point and two edge vectors
func NewQuad(corner, u, v core.Vec3) *Quad {
	cross := u.Cross(v)
	normal := cross.Normalize()
	return &Quad{
		Corner: corner,
		U:      u,
		V:      v,
		Normal: normal,
		d:      normal.Dot(corner),
		w:      cross.Multiply(1.0 / cross.Dot(cross)),
		area:   cross.Length(),
	}
}

// Intersect tests the ray against the quad's plane and parametric bounds
func (q *Quad) Intersect(ray core.Ray, its *Intersection) bool {
	denominator := ray.Direction.Dot(q.Normal)
	if math.Abs(denominator) < 1e-12 {
		return false
	}

	t := (q.d - ray.Origin.Dot(q.Normal)) / denominator
	if t < ray.TMin || t > ray.TMax {
		return false
	}

	hitPoint := ray.At(t)
	hitVector := hitPoint.Subtract(q.Corner)
	alpha := q.w.Dot(hitVector.Cross(q.V))
	beta := q.w.Dot(q.U.Cross(hitVector))
	if alpha < 0 || alpha > 1 || beta < 0 || beta > 1 {
		return false
	}

	its.T = t
	its.Point = hitPoint
	its.Normal = q.Normal
	its.UV = core.NewVec2(alpha, beta)
	return true
}

// BoundingBox returns the box around the four corners, padded on flat axes
func (q *Quad) BoundingBox() core.AABB {
	box := core.NewAABBFromPoints(q.Corner, q.Corner.Add(q.U), q.Corner.Add(q.V), q.Corner.Add(q.U).Add(q.V))
	const pad = 1e-6
	return core.NewAABB(box.Min.Subtract(core.Splat(pad)), box.Max.Add(core.Splat(pad)))
}

// Area returns the quad area
func (q *Quad) Area() float64 {
	return q.area
}

// SampleArea samples a point uniformly on the quad
func (q *Quad) SampleArea(sample core.Vec2) (core.Vec3, core.Vec3) {
	return q.Corner.Add(q.U.Multiply(sample.X)).Add(q.V.Multiply(sample.Y)), q.Normal
}
