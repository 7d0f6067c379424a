package loaders

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/df07/go-restir-passes/pkg/core"
)

var (
	ErrNotPLY            = errors.New("loaders: not a PLY file")
	ErrUnsupportedFormat = errors.New("loaders: unsupported PLY format")
)

// PLYHeader represents the parsed header information from a PLY file
type PLYHeader struct {
	Format   string // "binary_little_endian", "binary_big_endian", or "ascii"
	Version  string // Usually "1.0"
	Elements []PLYElement
}

// PLYElement is one element block declared in the header
type PLYElement struct {
	Name       string
	Count      int
	Properties []PLYProperty
}

// PLYProperty represents a property definition in the PLY header
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // For list properties, the type of the count
}

// PLYData contains the triangle data loaded from a PLY file
type PLYData struct {
	Vertices  []core.Vec3 // Vertex positions (x, y, z)
	Faces     []int       // Triangle indices (3 per triangle); polygons are fan-triangulated
	Normals   []core.Vec3 // Per-vertex normals (nx, ny, nz) - empty if not present
	TexCoords []core.Vec2 // Per-vertex texture coordinates (u, v) - empty if not present
}

// LoadPLY loads a PLY file and returns the raw vertex and face data
func LoadPLY(filename string) (*PLYData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PLY file: %w", err)
	}
	defer file.Close()

	data, err := ReadPLY(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return data, nil
}

// ReadPLY parses PLY data from r
func ReadPLY(r io.Reader) (*PLYData, error) {
	reader := bufio.NewReader(r)
	header, err := parsePLYHeader(reader)
	if err != nil {
		return nil, err
	}

	var src valueSource
	switch header.Format {
	case "ascii":
		src = &asciiSource{scanner: newWordScanner(reader)}
	case "binary_little_endian":
		src = &binarySource{r: reader, order: binary.LittleEndian}
	case "binary_big_endian":
		src = &binarySource{r: reader, order: binary.BigEndian}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, header.Format)
	}

	data := &PLYData{}
	for _, elem := range header.Elements {
		switch elem.Name {
		case "vertex":
			err = readVertices(src, elem, data)
		case "face":
			err = readFaces(src, elem, data)
		default:
			err = skipElement(src, elem)
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s element: %w", elem.Name, err)
		}
	}

	for _, idx := range data.Faces {
		if idx < 0 || idx >= len(data.Vertices) {
			return nil, fmt.Errorf("face index %d out of range (%d vertices)", idx, len(data.Vertices))
		}
	}
	return data, nil
}

func parsePLYHeader(reader *bufio.Reader) (*PLYHeader, error) {
	magic, err := reader.ReadString('\n')
	if err != nil || strings.TrimSpace(magic) != "ply" {
		return nil, ErrNotPLY
	}

	header := &PLYHeader{}
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("error reading header: %w", err)
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "end_header":
			return header, nil
		case "format":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid format line: %q", strings.TrimSpace(line))
			}
			header.Format = parts[1]
			header.Version = parts[2]
		case "comment", "obj_info":
			// Ignore comments
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid element line: %q", strings.TrimSpace(line))
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil {
				return nil, fmt.Errorf("invalid element count: %s", parts[2])
			}
			header.Elements = append(header.Elements, PLYElement{Name: parts[1], Count: count})
		case "property":
			if len(header.Elements) == 0 {
				return nil, fmt.Errorf("property before any element")
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, err
			}
			elem := &header.Elements[len(header.Elements)-1]
			elem.Properties = append(elem.Properties, prop)
		}
	}
}

// parsePLYProperty parses a property line from the PLY header
func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) >= 4 && parts[0] == "list" {
		return PLYProperty{Name: parts[3], Type: parts[2], IsList: true, ListType: parts[1]}, nil
	}
	if len(parts) == 2 {
		return PLYProperty{Name: parts[1], Type: parts[0]}, nil
	}
	return PLYProperty{}, fmt.Errorf("invalid property definition: %v", parts)
}

func readVertices(src valueSource, elem PLYElement, data *PLYData) error {
	index := map[string]int{}
	for i, p := range elem.Properties {
		index[p.Name] = i
	}
	has := func(names ...string) bool {
		for _, n := range names {
			if _, ok := index[n]; !ok {
				return false
			}
		}
		return true
	}
	lookup := func(values []float64, names ...string) float64 {
		for _, n := range names {
			if i, ok := index[n]; ok {
				return values[i]
			}
		}
		return 0
	}
	if !has("x", "y", "z") {
		return fmt.Errorf("vertex element has no position")
	}
	hasNormals := has("nx", "ny", "nz")
	hasUV := (has("u") || has("s") || has("texture_u")) && (has("v") || has("t") || has("texture_v"))

	values := make([]float64, len(elem.Properties))
	for v := 0; v < elem.Count; v++ {
		for i, prop := range elem.Properties {
			if prop.IsList {
				if err := skipList(src, prop); err != nil {
					return err
				}
				continue
			}
			val, err := src.next(prop.Type)
			if err != nil {
				return err
			}
			values[i] = val
		}
		data.Vertices = append(data.Vertices, core.NewVec3(values[index["x"]], values[index["y"]], values[index["z"]]))
		if hasNormals {
			data.Normals = append(data.Normals, core.NewVec3(values[index["nx"]], values[index["ny"]], values[index["nz"]]))
		}
		if hasUV {
			data.TexCoords = append(data.TexCoords, core.NewVec2(
				lookup(values, "u", "s", "texture_u"),
				lookup(values, "v", "t", "texture_v"),
			))
		}
	}
	return nil
}

func readFaces(src valueSource, elem PLYElement, data *PLYData) error {
	for f := 0; f < elem.Count; f++ {
		for _, prop := range elem.Properties {
			if !prop.IsList || (prop.Name != "vertex_indices" && prop.Name != "vertex_index") {
				if prop.IsList {
					if err := skipList(src, prop); err != nil {
						return err
					}
				} else if _, err := src.next(prop.Type); err != nil {
					return err
				}
				continue
			}

			n, err := src.next(prop.ListType)
			if err != nil {
				return err
			}
			poly := make([]int, int(n))
			for i := range poly {
				idx, err := src.next(prop.Type)
				if err != nil {
					return err
				}
				poly[i] = int(idx)
			}
			// Fan triangulation
			for i := 1; i+1 < len(poly); i++ {
				data.Faces = append(data.Faces, poly[0], poly[i], poly[i+1])
			}
		}
	}
	return nil
}

func skipElement(src valueSource, elem PLYElement) error {
	for i := 0; i < elem.Count; i++ {
		for _, prop := range elem.Properties {
			var err error
			if prop.IsList {
				err = skipList(src, prop)
			} else {
				_, err = src.next(prop.Type)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func skipList(src valueSource, prop PLYProperty) error {
	n, err := src.next(prop.ListType)
	if err != nil {
		return err
	}
	for i := 0; i < int(n); i++ {
		if _, err := src.next(prop.Type); err != nil {
			return err
		}
	}
	return nil
}

// valueSource yields successive scalar values of the given PLY type
type valueSource interface {
	next(dataType string) (float64, error)
}

type binarySource struct {
	r     io.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *binarySource) next(dataType string) (float64, error) {
	size := getTypeSize(dataType)
	if size == 0 {
		return 0, fmt.Errorf("unknown PLY type %q", dataType)
	}
	buf := b.buf[:size]
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return 0, err
	}
	switch dataType {
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

func getTypeSize(dataType string) int {
	switch dataType {
	case "char", "uchar", "int8", "uint8":
		return 1
	case "short", "ushort", "int16", "uint16":
		return 2
	case "int", "uint", "float", "int32", "uint32", "float32":
		return 4
	case "double", "float64":
		return 8
	default:
		return 0
	}
}

type asciiSource struct {
	scanner *bufio.Scanner
}

func newWordScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	return scanner
}

func (a *asciiSource) next(dataType string) (float64, error) {
	if !a.scanner.Scan() {
		if err := a.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	return strconv.ParseFloat(a.scanner.Text(), 64)
}
