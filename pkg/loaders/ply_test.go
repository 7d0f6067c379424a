package loaders

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-restir-passes/pkg/core"
)

// createTestPLY builds a binary square made of two triangles
func createTestPLY(t *testing.T, order binary.ByteOrder, includeNormals bool) []byte {
	t.Helper()
	var buf bytes.Buffer

	format := "binary_little_endian"
	if order == binary.BigEndian {
		format = "binary_big_endian"
	}
	buf.WriteString("ply\n")
	buf.WriteString("format " + format + " 1.0\n")
	buf.WriteString("comment generated by test\n")
	buf.WriteString("element vertex 4\n")
	buf.WriteString("property float x\n")
	buf.WriteString("property float y\n")
	buf.WriteString("property float z\n")
	if includeNormals {
		buf.WriteString("property float nx\n")
		buf.WriteString("property float ny\n")
		buf.WriteString("property float nz\n")
	}
	buf.WriteString("property uchar red\n")
	buf.WriteString("element face 2\n")
	buf.WriteString("property list uchar int vertex_indices\n")
	buf.WriteString("end_header\n")

	vertices := [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	for _, v := range vertices {
		binary.Write(&buf, order, v)
		if includeNormals {
			binary.Write(&buf, order, [3]float32{0, 0, 1})
		}
		buf.WriteByte(255)
	}

	for _, face := range [][3]int32{{0, 1, 2}, {0, 2, 3}} {
		buf.WriteByte(3)
		binary.Write(&buf, order, face)
	}
	return buf.Bytes()
}

func TestReadPLY_Binary(t *testing.T) {
	tests := []struct {
		name    string
		order   binary.ByteOrder
		normals bool
	}{
		{"little endian", binary.LittleEndian, false},
		{"little endian with normals", binary.LittleEndian, true},
		{"big endian", binary.BigEndian, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ReadPLY(bytes.NewReader(createTestPLY(t, tt.order, tt.normals)))
			if err != nil {
				t.Fatalf("ReadPLY failed: %v", err)
			}
			if len(data.Vertices) != 4 {
				t.Fatalf("Expected 4 vertices, got %d", len(data.Vertices))
			}
			if data.Vertices[2] != core.NewVec3(1, 1, 0) {
				t.Errorf("Vertex 2 = %v", data.Vertices[2])
			}
			want := []int{0, 1, 2, 0, 2, 3}
			if len(data.Faces) != len(want) {
				t.Fatalf("Expected %d indices, got %d", len(want), len(data.Faces))
			}
			for i := range want {
				if data.Faces[i] != want[i] {
					t.Errorf("Faces[%d] = %d, want %d", i, data.Faces[i], want[i])
				}
			}
			if tt.normals && (len(data.Normals) != 4 || data.Normals[0] != core.NewVec3(0, 0, 1)) {
				t.Errorf("Normals = %v", data.Normals)
			}
			if !tt.normals && len(data.Normals) != 0 {
				t.Errorf("Expected no normals, got %d", len(data.Normals))
			}
		})
	}
}

func TestReadPLY_ASCIIQuadIsFanTriangulated(t *testing.T) {
	src := strings.Join([]string{
		"ply",
		"format ascii 1.0",
		"element vertex 4",
		"property float x",
		"property float y",
		"property float z",
		"property float u",
		"property float v",
		"element face 1",
		"property list uchar int vertex_indices",
		"end_header",
		"0 0 0 0 0",
		"1 0 0 1 0",
		"1 1 0 1 1",
		"0 1 0 0 1",
		"4 0 1 2 3",
		"",
	}, "\n")

	data, err := ReadPLY(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadPLY failed: %v", err)
	}
	if len(data.Faces) != 6 {
		t.Fatalf("Expected 6 indices, got %d", len(data.Faces))
	}
	if len(data.TexCoords) != 4 || data.TexCoords[2] != core.NewVec2(1, 1) {
		t.Errorf("TexCoords = %v", data.TexCoords)
	}
}

func TestReadPLY_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{"not ply", "obj\n", ErrNotPLY},
		{"unknown format", "ply\nformat bogus 1.0\nend_header\n", ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPLY(strings.NewReader(tt.src))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	outOfRange := "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\n" +
		"element face 1\nproperty list uchar int vertex_indices\nend_header\n0 0 0\n3 0 1 2\n"
	if _, err := ReadPLY(strings.NewReader(outOfRange)); err == nil {
		t.Error("expected error for out of range face index")
	}
}

func TestLoadPLY_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "square.ply")
	if err := os.WriteFile(path, createTestPLY(t, binary.LittleEndian, false), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := LoadPLY(path)
	if err != nil {
		t.Fatalf("LoadPLY failed: %v", err)
	}
	if len(data.Faces) != 6 {
		t.Errorf("Expected 6 indices, got %d", len(data.Faces))
	}

	if _, err := LoadPLY(filepath.Join(t.TempDir(), "missing.ply")); err == nil {
		t.Error("expected error for missing file")
	}
}
