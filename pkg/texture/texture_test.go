package texture

import (
	"bytes"
	"image/png"
	"math"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"

	"github.com/df07/go-restir-passes/pkg/core"
)

func TestFormatChannels(t *testing.T) {
	tests := []struct {
		format   Format
		channels int
		integer  bool
	}{
		{RGBA32Float, 4, false},
		{RGBA16Float, 4, false},
		{RG32Float, 2, false},
		{R32Float, 1, false},
		{RGBA32Uint, 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			if got := tt.format.Channels(); got != tt.channels {
				t.Errorf("Channels = %d, want %d", got, tt.channels)
			}
			if got := tt.format.IsInteger(); got != tt.integer {
				t.Errorf("IsInteger = %v, want %v", got, tt.integer)
			}
			parsed, ok := ParseFormat(tt.format.String())
			if !ok || parsed != tt.format {
				t.Errorf("ParseFormat(%q) = %v, %v", tt.format.String(), parsed, ok)
			}
		})
	}
}

func TestSetDropsMissingChannels(t *testing.T) {
	tex := New("mvec", RG32Float, 2, 2)
	tex.Set(1, 1, [4]float32{1.5, -2, 3, 4})
	if got := tex.Get(1, 1); got != [4]float32{1.5, -2, 0, 0} {
		t.Errorf("Get = %v", got)
	}
	if got := tex.Get(0, 0); got != [4]float32{} {
		t.Errorf("untouched texel = %v", got)
	}
}

func TestHalfRounding(t *testing.T) {
	inf := float32(math.Inf(1))
	tests := []struct {
		name string
		in   float32
		want float32
	}{
		{"exact", 2, 2},
		{"negative", -0.75, -0.75},
		{"tie rounds to even below", 1 + 1.0/2048, 1},
		{"tie rounds to even above", 1 + 3.0/2048, 1 + 1.0/512},
		{"largest finite", 65504, 65504},
		{"overflow", 1e6, inf},
		{"infinity", inf, inf},
		{"subnormal", 3e-5, 503.0 / (1 << 24)},
		{"underflow", 1e-8, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tex := New("h", RGBA16Float, 1, 1)
			tex.Set(0, 0, [4]float32{tt.in, 0, 0, 0})
			if got := tex.Get(0, 0)[0]; got != tt.want {
				t.Errorf("Set(%v) stored %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	tex := New("h", RGBA16Float, 1, 1)
	tex.Set(0, 0, [4]float32{1.0 / 3.0, float32(math.NaN()), 0, 0})
	got := tex.Get(0, 0)
	if got[0] == float32(1.0/3.0) || math.Abs(float64(got[0])-1.0/3.0) > 1e-3 {
		t.Errorf("1/3 stored as %v", got[0])
	}
	if !math.IsNaN(float64(got[1])) {
		t.Errorf("NaN stored as %v", got[1])
	}
}

func TestUintTexture(t *testing.T) {
	tex := New("vbuffer", RGBA32Uint, 3, 1)
	want := [4]uint32{7, 1 << 31, 0xdeadbeef, 1}
	tex.SetUint(2, 0, want)
	if got := tex.GetUint(2, 0); got != want {
		t.Errorf("GetUint = %v, want %v", got, want)
	}
	tex.Clear()
	if got := tex.GetUint(2, 0); got != [4]uint32{} {
		t.Errorf("after Clear = %v", got)
	}
}

func TestCopyFrom(t *testing.T) {
	a := New("a", RGBA32Float, 2, 1)
	b := New("b", RGBA16Float, 2, 1)
	a.SetVec3(1, 0, core.NewVec3(0.5, 0.25, 1))
	if err := b.CopyFrom(a); err != nil {
		t.Fatal(err)
	}
	if got := b.GetVec3(1, 0); got != core.NewVec3(0.5, 0.25, 1) {
		t.Errorf("copied = %v", got)
	}
	a.Set(0, 0, [4]float32{1 + 1.0/4096, 0, 0, 0})
	if err := b.CopyFrom(a); err != nil {
		t.Fatal(err)
	}
	if got := b.Get(0, 0)[0]; got != 1 {
		t.Errorf("copy into half texture = %v, want 1", got)
	}
	if err := b.CopyFrom(New("c", RGBA32Uint, 2, 1)); err == nil {
		t.Error("expected error copying integer texture into float texture")
	}
}

func TestExportFormats(t *testing.T) {
	tex := New("out", RGBA32Float, 4, 2)
	tex.SetVec3(0, 0, core.NewVec3(1, 0, 2))

	var buf bytes.Buffer
	if err := tex.WritePNG(&buf); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if r != 0xffff || g != 0 || b != 0xffff {
		t.Errorf("pixel = %x %x %x, want clamped red+blue", r, g, b)
	}

	buf.Reset()
	if err := tex.WriteTIFF(&buf); err != nil {
		t.Fatalf("WriteTIFF: %v", err)
	}
	if img, err := tiff.Decode(&buf); err != nil || img.Bounds().Dx() != 4 {
		t.Errorf("tiff round trip failed: %v", err)
	}

	dir := t.TempDir()
	if err := tex.Save(filepath.Join(dir, "frame.png")); err != nil {
		t.Errorf("Save png: %v", err)
	}
	if err := tex.Save(filepath.Join(dir, "frame.exr")); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestPreviewScalesLongestSide(t *testing.T) {
	tex := New("big", RGBA32Float, 400, 200)
	img := tex.Preview(100)
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("preview size = %v, want 100x50", b)
	}
	if b := tex.Preview(1000).Bounds(); b.Dx() != 400 {
		t.Errorf("preview should not upscale, got %v", b)
	}
}
