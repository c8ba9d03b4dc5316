package geometry

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// Cylinder is an open tube between two points, without caps
type Cylinder struct {
	BaseCenter core.Vec3
	TopCenter  core.Vec3
	Radius     float64

	axis   core.Vec3 // unit vector from base to top
	height float64
	frame  core.Frame
}

// NewCylinder creates a cylinder of the given radius around the segment
// from baseCenter to topCenter
func NewCylinder(baseCenter, topCenter core.Vec3, radius float64) *Cylinder {
	axisVector := topCenter.Subtract(baseCenter)
	axis := axisVector.Normalize()
	return &Cylinder{
		BaseCenter: baseCenter,
		TopCenter:  topCenter,
		Radius:     radius,
		axis:       axis,
		height:     axisVector.Length(),
		frame:      core.NewFrame(axis),
	}
}

// BoundingBox bounds the two rims; each rim extends r·sqrt(1-axis²) per axis
func (c *Cylinder) BoundingBox() core.AABB {
	a := c.axis
	extent := core.NewVec3(
		c.Radius*math.Sqrt(max(0, 1-a.X*a.X)),
		c.Radius*math.Sqrt(max(0, 1-a.Y*a.Y)),
		c.Radius*math.Sqrt(max(0, 1-a.Z*a.Z)),
	)
	return core.NewAABB(
		c.BaseCenter.Min(c.TopCenter).Subtract(extent),
		c.BaseCenter.Max(c.TopCenter).Add(extent),
	)
}

// Intersect solves the ray against the infinite cylinder and keeps the
// nearest root within the height and the ray interval
func (c *Cylinder) Intersect(ray core.Ray, its *Intersection) bool {
	delta := ray.Origin.Subtract(c.BaseCenter)
	dv := ray.Direction.Dot(c.axis)
	deltaV := delta.Dot(c.axis)

	a := ray.Direction.LengthSquared() - dv*dv
	if math.Abs(a) < 1e-12 {
		// parallel to the axis
		return false
	}
	b := 2 * (delta.Dot(ray.Direction) - deltaV*dv)
	cc := delta.LengthSquared() - deltaV*deltaV - c.Radius*c.Radius

	discriminant := b*b - 4*a*cc
	if discriminant < 0 {
		return false
	}
	sqrtD := math.Sqrt(discriminant)

	for _, t := range [2]float64{(-b - sqrtD) / (2 * a), (-b + sqrtD) / (2 * a)} {
		if t < ray.TMin || t > ray.TMax {
			continue
		}
		point := ray.At(t)
		h := point.Subtract(c.BaseCenter).Dot(c.axis)
		if h < 0 || h > c.height {
			continue
		}

		its.T = t
		its.Point = point
		its.Normal = point.Subtract(c.BaseCenter.Add(c.axis.Multiply(h))).Normalize()
		local := c.frame.ToLocal(its.Normal)
		phi := math.Atan2(local.Y, local.X)
		if phi < 0 {
			phi += 2 * math.Pi
		}
		its.UV = core.NewVec2(phi/(2*math.Pi), h/c.height)
		return true
	}
	return false
}

// Area of the side surface
func (c *Cylinder) Area() float64 {
	return 2 * math.Pi * c.Radius * c.height
}

// SampleArea samples the side surface uniformly
func (c *Cylinder) SampleArea(sample core.Vec2) (core.Vec3, core.Vec3) {
	phi := 2 * math.Pi * sample.Y
	n := c.frame.ToWorld(core.NewVec3(math.Cos(phi), math.Sin(phi), 0))
	p := c.BaseCenter.Add(c.axis.Multiply(sample.X * c.height)).Add(n.Multiply(c.Radius))
	return p, n
}
