package geometry

import (
	"fmt"

	"github.com/df07/lumen/pkg/core"
)

// TriangleMesh holds raw vertex and index buffers as produced by mesh loaders
type TriangleMesh struct {
	Vertices []core.Vec3
	Indices  []int
	UVs      []core.Vec2 // optional, one per vertex
}

// TriangleMeshOptions contains optional transforms applied at construction
type TriangleMeshOptions struct {
	Scale     *core.Vec3 // Component-wise scale about Center
	Rotation  *core.Vec3 // Euler rotation in radians about Center
	Center    *core.Vec3 // Pivot for scale and rotation
	Translate *core.Vec3 // Offset applied last
}

// NewTriangleMesh validates the buffers and applies the optional transform
func NewTriangleMesh(vertices []core.Vec3, indices []int, uvs []core.Vec2, options *TriangleMeshOptions) (*TriangleMesh, error) {
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("index count %d is not a multiple of 3", len(indices))
	}
	if uvs != nil && len(uvs) != len(vertices) {
		return nil, fmt.Errorf("uv count %d does not match vertex count %d", len(uvs), len(vertices))
	}
	for i, idx := range indices {
		if idx < 0 || idx >= len(vertices) {
			return nil, fmt.Errorf("index %d at position %d out of range [0,%d)", idx, i, len(vertices))
		}
	}

	working := make([]core.Vec3, len(vertices))
	for i, vertex := range vertices {
		if options != nil {
			vertex = options.apply(vertex)
		}
		working[i] = vertex
	}

	return &TriangleMesh{Vertices: working, Indices: indices, UVs: uvs}, nil
}

func (o *TriangleMeshOptions) apply(v core.Vec3) core.Vec3 {
	if o.Center != nil {
		v = v.Subtract(*o.Center)
	}
	if o.Scale != nil {
		v = v.MultiplyVec(*o.Scale)
	}
	if o.Rotation != nil {
		v = v.Rotate(*o.Rotation)
	}
	if o.Center != nil {
		v = v.Add(*o.Center)
	}
	if o.Translate != nil {
		v = v.Add(*o.Translate)
	}
	return v
}

// TriangleCount returns the number of triangles in this mesh
func (m *TriangleMesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Triangles expands the buffers into individual primitives, dropping
// degenerate triangles
func (m *TriangleMesh) Triangles() []Primitive {
	triangles := make([]Primitive, 0, m.TriangleCount())
	for i := 0; i < m.TriangleCount(); i++ {
		i0, i1, i2 := m.Indices[i*3], m.Indices[i*3+1], m.Indices[i*3+2]

		var tri *Triangle
		if m.UVs != nil {
			tri = NewTriangleWithUV(m.Vertices[i0], m.Vertices[i1], m.Vertices[i2], m.UVs[i0], m.UVs[i1], m.UVs[i2])
		} else {
			tri = NewTriangle(m.Vertices[i0], m.Vertices[i1], m.Vertices[i2])
		}
		if tri.degenerate() {
			continue
		}
		triangles = append(triangles, tri)
	}
	return triangles
}

// BoundingBox returns the bounds of all vertices
func (m *TriangleMesh) BoundingBox() core.AABB {
	return core.NewAABBFromPoints(m.Vertices...)
}
