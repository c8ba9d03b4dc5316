package geometry

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// Disc represents a one-sided circular disc in 3D space
type Disc struct {
	Center core.Vec3
	Normal core.Vec3
	Radius float64
	frame  core.Frame
}

// NewDisc creates a new disc facing along normal
func NewDisc(center, normal core.Vec3, radius float64) *Disc {
	n := normal.Normalize()
	return &Disc{Center: center, Normal: n, Radius: radius, frame: core.NewFrame(n)}
}

// Intersect tests the ray against the disc's plane and radius
func (d *Disc) Intersect(ray core.Ray, its *Intersection) bool {
	denom := d.Normal.Dot(ray.Direction)
	if math.Abs(denom) < 1e-12 {
		return false
	}

	t := d.Normal.Dot(d.Center.Subtract(ray.Origin)) / denom
	if t < ray.TMin || t > ray.TMax {
		return false
	}

	hitPoint := ray.At(t)
	local := d.frame.ToLocal(hitPoint.Subtract(d.Center))
	r2 := local.X*local.X + local.Y*local.Y
	if r2 > d.Radius*d.Radius {
		return false
	}

	its.T = t
	its.Point = hitPoint
	its.Normal = d.Normal
	phi := math.Atan2(local.Y, local.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	its.UV = core.NewVec2(math.Sqrt(r2)/d.Radius, phi/(2*math.Pi))
	return true
}

// BoundingBox bounds the disc by its extent perpendicular to the normal
func (d *Disc) BoundingBox() core.AABB {
	n := d.Normal
	extent := core.NewVec3(
		d.Radius*math.Sqrt(max(0, 1-n.X*n.X)),
		d.Radius*math.Sqrt(max(0, 1-n.Y*n.Y)),
		d.Radius*math.Sqrt(max(0, 1-n.Z*n.Z)),
	)
	return core.NewAABB(d.Center.Subtract(extent), d.Center.Add(extent))
}

// Area returns the disc area
func (d *Disc) Area() float64 {
	return math.Pi * d.Radius * d.Radius
}

// SampleArea samples a point uniformly on the disc surface
func (d *Disc) SampleArea(sample core.Vec2) (core.Vec3, core.Vec3) {
	p := core.SquareToUniformDiskConcentric(sample)
	local := core.NewVec3(p.X*d.Radius, p.Y*d.Radius, 0)
	return d.Center.Add(d.frame.ToWorld(local)), d.Normal
}
