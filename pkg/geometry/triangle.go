package geometry

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// Triangle represents a single triangle defined by three vertices.
// The winding V0→V1→V2 defines the outward normal.
type Triangle struct {
	V0, V1, V2    core.Vec3
	UV0, UV1, UV2 core.Vec2
	normal        core.Vec3
	area          float64
	bbox          core.AABB
}

// NewTriangle creates a new triangle from three vertices with barycentric uvs
func NewTriangle(v0, v1, v2 core.Vec3) *Triangle {
	return NewTriangleWithUV(v0, v1, v2, core.NewVec2(0, 0), core.NewVec2(1, 0), core.NewVec2(0, 1))
}

// NewTriangleWithUV creates a triangle carrying per-vertex texture coordinates
func NewTriangleWithUV(v0, v1, v2 core.Vec3, uv0, uv1, uv2 core.Vec2) *Triangle {
	cross := v1.Subtract(v0).Cross(v2.Subtract(v0))
	return &Triangle{
		V0: v0, V1: v1, V2: v2,
		UV0: uv0, UV1: uv1, UV2: uv2,
		normal: cross.Normalize(),
		area:   0.5 * cross.Length(),
		bbox:   core.NewAABBFromPoints(v0, v1, v2),
	}
}

// Intersect tests if a ray intersects the triangle using the Möller-Trumbore algorithm
func (t *Triangle) Intersect(ray core.Ray, its *Intersection) bool {
	const epsilon = 1e-12

	edge1 := t.V1.Subtract(t.V0)
	edge2 := t.V2.Subtract(t.V0)

	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)
	if a > -epsilon && a < epsilon {
		return false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(t.V0)
	u := f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return false
	}

	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return false
	}

	tHit := f * edge2.Dot(q)
	if tHit < ray.TMin || tHit > ray.TMax {
		return false
	}

	w := 1 - u - v
	its.T = tHit
	its.Point = ray.At(tHit)
	its.Normal = t.normal
	its.UV = core.NewVec2(
		w*t.UV0.X+u*t.UV1.X+v*t.UV2.X,
		w*t.UV0.Y+u*t.UV1.Y+v*t.UV2.Y,
	)
	return true
}

// BoundingBox returns the axis-aligned bounding box for this triangle
func (t *Triangle) BoundingBox() core.AABB {
	return t.bbox
}

// Normal returns the triangle's outward normal
func (t *Triangle) Normal() core.Vec3 {
	return t.normal
}

// Area returns the triangle's surface area
func (t *Triangle) Area() float64 {
	return t.area
}

// SampleArea samples a point uniformly over the triangle
func (t *Triangle) SampleArea(sample core.Vec2) (core.Vec3, core.Vec3) {
	b := core.SquareToUniformTriangle(sample)
	p := t.V0.Multiply(b.X).Add(t.V1.Multiply(b.Y)).Add(t.V2.Multiply(1 - b.X - b.Y))
	return p, t.normal
}

// degenerate reports whether the triangle has (numerically) no area
func (t *Triangle) degenerate() bool {
	return t.area <= 1e-16 || math.IsNaN(t.area)
}
