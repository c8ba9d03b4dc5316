package scene

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/df07/lumen/pkg/core"
)

// plyProperty is one property line of a PLY element
type plyProperty struct {
	Name     string
	Type     string // scalar type, or the item type of a list
	IsList   bool
	ListType string // type of the list length
}

type plyElement struct {
	Name       string
	Count      int
	Properties []plyProperty
}

// plyHeader is the parsed header of a PLY file
type plyHeader struct {
	Format   string // "ascii", "binary_little_endian" or "binary_big_endian"
	Elements []plyElement
}

// PLYMesh holds the buffers read from a PLY file. Polygons are split into
// triangle fans.
type PLYMesh struct {
	Vertices []core.Vec3
	Indices  []int
	UVs      []core.Vec2 // nil unless the file has u/v (or s/t) properties
}

// LoadPLY reads a PLY mesh from disk
func LoadPLY(path string) (*PLYMesh, error) {
	start := time.Now()
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	mesh, err := ReadPLY(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debugf("loaded %s: %d vertices, %d triangles in %v",
		path, len(mesh.Vertices), len(mesh.Indices)/3, time.Since(start))
	return mesh, nil
}

// ReadPLY decodes an ascii or binary PLY stream with a vertex and a face
// element; other elements are skipped
func ReadPLY(r io.Reader) (*PLYMesh, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	header, err := parsePLYHeader(br)
	if err != nil {
		return nil, fmt.Errorf("parse PLY header: %w", err)
	}

	var read plyReader
	switch header.Format {
	case "ascii":
		read = &plyASCIIReader{r: br}
	case "binary_little_endian":
		read = &plyBinaryReader{r: br, order: binary.LittleEndian}
	case "binary_big_endian":
		read = &plyBinaryReader{r: br, order: binary.BigEndian}
	default:
		return nil, fmt.Errorf("unsupported PLY format %q", header.Format)
	}

	mesh := &PLYMesh{}
	for _, el := range header.Elements {
		switch el.Name {
		case "vertex":
			err = mesh.readVertices(read, el)
		case "face":
			err = mesh.readFaces(read, el)
		default:
			err = skipElement(read, el)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s element: %w", el.Name, err)
		}
	}

	for i, idx := range mesh.Indices {
		if idx < 0 || idx >= len(mesh.Vertices) {
			return nil, fmt.Errorf("face index %d at position %d out of range [0,%d)", idx, i, len(mesh.Vertices))
		}
	}
	return mesh, nil
}

func parsePLYHeader(r *bufio.Reader) (*plyHeader, error) {
	header := &plyHeader{}
	first := true
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("header ended early: %w", err)
		}
		parts := strings.Fields(line)
		if first {
			if len(parts) != 1 || parts[0] != "ply" {
				return nil, fmt.Errorf("not a PLY file")
			}
			first = false
			continue
		}
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "end_header":
			return header, nil
		case "format":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid format line %q", strings.TrimSpace(line))
			}
			header.Format = parts[1]
		case "comment", "obj_info":
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid element line %q", strings.TrimSpace(line))
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("invalid element count %q", parts[2])
			}
			header.Elements = append(header.Elements, plyElement{Name: parts[1], Count: count})
		case "property":
			if len(header.Elements) == 0 {
				return nil, fmt.Errorf("property outside of an element")
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, err
			}
			el := &header.Elements[len(header.Elements)-1]
			el.Properties = append(el.Properties, prop)
		default:
			return nil, fmt.Errorf("unexpected header line %q", strings.TrimSpace(line))
		}
	}
}

func parsePLYProperty(parts []string) (plyProperty, error) {
	if len(parts) >= 4 && parts[0] == "list" {
		return plyProperty{IsList: true, ListType: parts[1], Type: parts[2], Name: parts[3]}, nil
	}
	if len(parts) < 2 {
		return plyProperty{}, fmt.Errorf("invalid property definition %v", parts)
	}
	return plyProperty{Type: parts[0], Name: parts[1]}, nil
}

func (m *PLYMesh) readVertices(read plyReader, el plyElement) error {
	pos := [3]int{-1, -1, -1}
	uv := [2]int{-1, -1}
	for i, p := range el.Properties {
		switch p.Name {
		case "x":
			pos[0] = i
		case "y":
			pos[1] = i
		case "z":
			pos[2] = i
		case "u", "s", "texture_u":
			uv[0] = i
		case "v", "t", "texture_v":
			uv[1] = i
		}
	}
	if pos[0] < 0 || pos[1] < 0 || pos[2] < 0 {
		return fmt.Errorf("vertex element lacks x, y or z")
	}
	hasUV := uv[0] >= 0 && uv[1] >= 0

	m.Vertices = make([]core.Vec3, 0, el.Count)
	if hasUV {
		m.UVs = make([]core.Vec2, 0, el.Count)
	}
	values := make([]float64, len(el.Properties))
	for i := 0; i < el.Count; i++ {
		for j, p := range el.Properties {
			if p.IsList {
				if err := skipList(read, p); err != nil {
					return err
				}
				continue
			}
			v, err := read.scalar(p.Type)
			if err != nil {
				return fmt.Errorf("vertex %d: %w", i, err)
			}
			values[j] = v
		}
		m.Vertices = append(m.Vertices, core.NewVec3(values[pos[0]], values[pos[1]], values[pos[2]]))
		if hasUV {
			m.UVs = append(m.UVs, core.NewVec2(values[uv[0]], values[uv[1]]))
		}
	}
	return nil
}

func (m *PLYMesh) readFaces(read plyReader, el plyElement) error {
	m.Indices = make([]int, 0, 3*el.Count)
	for i := 0; i < el.Count; i++ {
		for _, p := range el.Properties {
			if !p.IsList || (p.Name != "vertex_indices" && p.Name != "vertex_index") {
				if err := skipProperty(read, p); err != nil {
					return err
				}
				continue
			}
			n, err := read.scalar(p.ListType)
			if err != nil {
				return fmt.Errorf("face %d: %w", i, err)
			}
			if n < 3 {
				return fmt.Errorf("face %d has %g vertices", i, n)
			}
			polygon := make([]int, int(n))
			for k := range polygon {
				v, err := read.scalar(p.Type)
				if err != nil {
					return fmt.Errorf("face %d: %w", i, err)
				}
				polygon[k] = int(v)
			}
			for k := 1; k+1 < len(polygon); k++ {
				m.Indices = append(m.Indices, polygon[0], polygon[k], polygon[k+1])
			}
		}
	}
	return nil
}

func skipElement(read plyReader, el plyElement) error {
	for i := 0; i < el.Count; i++ {
		for _, p := range el.Properties {
			if err := skipProperty(read, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func skipProperty(read plyReader, p plyProperty) error {
	if p.IsList {
		return skipList(read, p)
	}
	_, err := read.scalar(p.Type)
	return err
}

func skipList(read plyReader, p plyProperty) error {
	n, err := read.scalar(p.ListType)
	if err != nil {
		return err
	}
	for k := 0; k < int(n); k++ {
		if _, err := read.scalar(p.Type); err != nil {
			return err
		}
	}
	return nil
}

// plyReader reads one scalar of the named PLY type as a float64
type plyReader interface {
	scalar(typ string) (float64, error)
}

type plyASCIIReader struct {
	r      *bufio.Reader
	tokens []string
}

func (a *plyASCIIReader) scalar(typ string) (float64, error) {
	for len(a.tokens) == 0 {
		line, err := a.r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return 0, err
		}
		a.tokens = strings.Fields(line)
	}
	tok := a.tokens[0]
	a.tokens = a.tokens[1:]
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", typ, tok)
	}
	return v, nil
}

type plyBinaryReader struct {
	r     *bufio.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *plyBinaryReader) scalar(typ string) (float64, error) {
	size := plyTypeSize(typ)
	if size == 0 {
		return 0, fmt.Errorf("unknown PLY type %q", typ)
	}
	buf := b.buf[:size]
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return 0, err
	}
	switch typ {
	case "char", "int8":
		return float64(int8(buf[0])), nil
	case "uchar", "uint8":
		return float64(buf[0]), nil
	case "short", "int16":
		return float64(int16(b.order.Uint16(buf))), nil
	case "ushort", "uint16":
		return float64(b.order.Uint16(buf)), nil
	case "int", "int32":
		return float64(int32(b.order.Uint32(buf))), nil
	case "uint", "uint32":
		return float64(b.order.Uint32(buf)), nil
	case "float", "float32":
		return float64(math.Float32frombits(b.order.Uint32(buf))), nil
	default: // double, float64
		return math.Float64frombits(b.order.Uint64(buf)), nil
	}
}

func plyTypeSize(typ string) int {
	switch typ {
	case "char", "int8", "uchar", "uint8":
		return 1
	case "short", "int16", "ushort", "uint16":
		return 2
	case "int", "int32", "uint", "uint32", "float", "float32":
		return 4
	case "double", "float64":
		return 8
	}
	return 0
}
