package geometry

import (
	"github.com/df07/lumen/pkg/core"
)

// NewBox returns the six outward-facing quads of a box. Size holds
// half-extents; rotation is in radians around X, Y, Z (applied in that order).
func NewBox(center, size, rotation core.Vec3) []Primitive {
	corner := func(x, y, z float64) core.Vec3 {
		return core.NewVec3(x*size.X, y*size.Y, z*size.Z).Rotate(rotation).Add(center)
	}

	// each face: origin corner plus the two adjacent corners
	faces := [6][3][3]float64{
		{{-1, -1, 1}, {1, -1, 1}, {-1, 1, 1}},    // +Z
		{{1, -1, -1}, {-1, -1, -1}, {1, 1, -1}},  // -Z
		{{1, -1, 1}, {1, -1, -1}, {1, 1, 1}},     // +X
		{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, -1}}, // -X
		{{-1, 1, 1}, {1, 1, 1}, {-1, 1, -1}},     // +Y
		{{-1, -1, -1}, {1, -1, -1}, {-1, -1, 1}}, // -Y
	}

	quads := make([]Primitive, 0, 6)
	for _, f := range faces {
		o := corner(f[0][0], f[0][1], f[0][2])
		u := corner(f[1][0], f[1][1], f[1][2]).Subtract(o)
		v := corner(f[2][0], f[2][1], f[2][2]).Subtract(o)

		q := NewQuad(o, u, v)
		faceCenter := o.Add(u.Multiply(0.5)).Add(v.Multiply(0.5))
		if q.Normal.Dot(faceCenter.Subtract(center)) < 0 {
			q = NewQuad(o, v, u)
		}
		quads = append(quads, q)
	}
	return quads
}
