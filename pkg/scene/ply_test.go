package scene

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/lumen/pkg/core"
)

const asciiQuadPLY = `ply
format ascii 1.0
comment unit quad with uvs
element vertex 4
property float x
property float y
property float z
property float u
property float v
element face 1
property list uchar int vertex_indices
end_header
0 0 0 0 0
1 0 0 1 0
1 1 0 1 1
0 1 0 0 1
4 0 1 2 3
`

func TestReadPLYASCII(t *testing.T) {
	mesh, err := ReadPLY(strings.NewReader(asciiQuadPLY))
	if err != nil {
		t.Fatalf("ReadPLY: %v", err)
	}
	if len(mesh.Vertices) != 4 {
		t.Fatalf("expected 4 vertices, got %d", len(mesh.Vertices))
	}
	if mesh.Vertices[2] != core.NewVec3(1, 1, 0) {
		t.Errorf("vertex 2 = %v", mesh.Vertices[2])
	}
	if len(mesh.UVs) != 4 || mesh.UVs[3] != core.NewVec2(0, 1) {
		t.Errorf("uvs = %v", mesh.UVs)
	}

	// the quad is split into a triangle fan
	expected := []int{0, 1, 2, 0, 2, 3}
	if len(mesh.Indices) != len(expected) {
		t.Fatalf("expected indices %v, got %v", expected, mesh.Indices)
	}
	for i := range expected {
		if mesh.Indices[i] != expected[i] {
			t.Fatalf("expected indices %v, got %v", expected, mesh.Indices)
		}
	}
}

func binaryTrianglePLY(order binary.ByteOrder, format string) []byte {
	var buf bytes.Buffer
	buf.WriteString("ply\nformat " + format + " 1.0\n")
	buf.WriteString("element vertex 3\nproperty float x\nproperty float y\nproperty float z\nproperty uchar red\n")
	buf.WriteString("element face 1\nproperty list uchar uint vertex_indices\nproperty int flags\n")
	buf.WriteString("end_header\n")
	for _, v := range [][3]float32{{0, 0, 0}, {2, 0, 0}, {0, 2, 0}} {
		binary.Write(&buf, order, v)
		buf.WriteByte(200)
	}
	buf.WriteByte(3)
	binary.Write(&buf, order, [3]uint32{0, 1, 2})
	binary.Write(&buf, order, int32(-1))
	return buf.Bytes()
}

func TestReadPLYBinary(t *testing.T) {
	tests := []struct {
		format string
		order  binary.ByteOrder
	}{
		{"binary_little_endian", binary.LittleEndian},
		{"binary_big_endian", binary.BigEndian},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			mesh, err := ReadPLY(bytes.NewReader(binaryTrianglePLY(tt.order, tt.format)))
			if err != nil {
				t.Fatalf("ReadPLY: %v", err)
			}
			if len(mesh.Vertices) != 3 || mesh.Vertices[1] != core.NewVec3(2, 0, 0) {
				t.Errorf("vertices = %v", mesh.Vertices)
			}
			if len(mesh.Indices) != 3 || mesh.Indices[2] != 2 {
				t.Errorf("indices = %v", mesh.Indices)
			}
			if mesh.UVs != nil {
				t.Errorf("expected no uvs, got %v", mesh.UVs)
			}
		})
	}
}

func TestReadPLYErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not a ply file", "obj\n"},
		{"truncated header", "ply\nformat ascii 1.0\nelement vertex 3\n"},
		{"unknown format", "ply\nformat binary_middle_endian 1.0\nend_header\n"},
		{"missing coordinates", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nend_header\n0\n"},
		{"index out of range", "ply\nformat ascii 1.0\nelement vertex 3\nproperty float x\nproperty float y\nproperty float z\n" +
			"element face 1\nproperty list uchar int vertex_indices\nend_header\n0 0 0\n1 0 0\n0 1 0\n3 0 1 7\n"},
		{"truncated data", "ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadPLY(strings.NewReader(tt.data)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestPLYShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.ply")
	if err := os.WriteFile(path, []byte(asciiQuadPLY), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry()
	prims, err := reg.CreateShape(NewPluginDescription("ply", map[string]any{
		"filename":  path,
		"translate": []any{0.0, 0.0, -1.0},
	}))
	if err != nil {
		t.Fatalf("CreateShape: %v", err)
	}
	if len(prims) != 2 {
		t.Fatalf("expected 2 triangles, got %d", len(prims))
	}
	if b := prims[0].BoundingBox(); b.Min.Z > -0.99 || b.Max.Z < -1.01 {
		t.Errorf("translate not applied, bounds %v", b)
	}

	_, err = reg.CreateShape(NewPluginDescription("ply", map[string]any{"filename": filepath.Join(t.TempDir(), "missing.ply")}))
	if !errors.Is(err, ErrInvalidProperty) {
		t.Errorf("expected ErrInvalidProperty for a missing file, got %v", err)
	}
	_, err = reg.CreateShape(NewPluginDescription("ply", nil))
	if !errors.Is(err, ErrMissingProperty) {
		t.Errorf("expected ErrMissingProperty without filename, got %v", err)
	}
}
