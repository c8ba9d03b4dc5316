package geometry

import (
	"github.com/df07/lumen/pkg/core"
)

// Primitive is a single intersectable surface element. Primitives reject hits
// outside the ray's [TMin, TMax] interval themselves.
type Primitive interface {
	// Intersect fills T, Point, Normal and UV of its when the ray hits.
	// its is left untouched on a miss.
	Intersect(ray core.Ray, its *Intersection) bool
	BoundingBox() core.AABB
	Area() float64
	// SampleArea returns a point chosen uniformly by area and its outward normal.
	SampleArea(sample core.Vec2) (core.Vec3, core.Vec3)
}

// Intersection describes the nearest hit of a ray. The geometric normal is
// the primitive's outward normal and is never flipped toward the ray.
type Intersection struct {
	Point       core.Vec3
	Normal      core.Vec3
	Frame       core.Frame // shading frame, z along Normal
	Wi          core.Vec3  // incident direction in the shading frame, pointing back along the ray
	T           float64
	UV          core.Vec2
	PrimitiveID int
	ShapeID     int
}

// Complete fills the shading frame and the local incident direction.
// Shadow queries skip it.
func (its *Intersection) Complete(ray core.Ray) {
	its.Frame = core.NewFrame(its.Normal)
	its.Wi = its.Frame.ToLocal(ray.Direction.Negate())
}

// ToWorld converts a shading-frame direction to world space
func (its *Intersection) ToWorld(v core.Vec3) core.Vec3 {
	return its.Frame.ToWorld(v)
}

// ToLocal converts a world direction to the shading frame
func (its *Intersection) ToLocal(v core.Vec3) core.Vec3 {
	return its.Frame.ToLocal(v)
}

// OffsetPoint nudges the hit point off the surface on the side dir points to
func (its *Intersection) OffsetPoint(dir core.Vec3) core.Vec3 {
	offset := its.Normal.Multiply(core.RayEpsilon)
	if dir.Dot(its.Normal) < 0 {
		offset = offset.Negate()
	}
	return its.Point.Add(offset)
}

// SpawnRay starts a new ray leaving the surface in direction dir
func (its *Intersection) SpawnRay(dir core.Vec3) core.Ray {
	return core.NewRay(its.OffsetPoint(dir), dir)
}

// SpawnShadowRay builds the occlusion query from the surface to p
func (its *Intersection) SpawnShadowRay(p core.Vec3) core.Ray {
	return core.NewShadowRay(its.OffsetPoint(p.Subtract(its.Point)), p)
}
