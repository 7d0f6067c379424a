package texture

import (
	"fmt"

	"github.com/df07/go-restir-passes/pkg/core"
	"github.com/mrjoshuak/go-openexr/half"
)

// Texture is a 2D resource with a fixed format. Float formats are stored as
// float32 regardless of precision; RGBA16Float values are rounded to half
// precision on write, so reads see exactly what a half texture would hold.
// Writers touching disjoint pixels may run concurrently.
type Texture struct {
	Name   string
	Format Format
	Width  int
	Height int

	floats []float32
	uints  []uint32
}

// New allocates a zeroed texture
func New(name string, format Format, width, height int) *Texture {
	t := &Texture{Name: name, Format: format, Width: width, Height: height}
	n := width * height * 4
	if format.IsInteger() {
		t.uints = make([]uint32, n)
	} else {
		t.floats = make([]float32, n)
	}
	return t
}

func (t *Texture) String() string {
	return fmt.Sprintf("%s (%s %dx%d)", t.Name, t.Format, t.Width, t.Height)
}

func (t *Texture) offset(x, y int) int {
	return (y*t.Width + x) * 4
}

// InBounds reports whether (x, y) addresses a texel
func (t *Texture) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < t.Width && y < t.Height
}

// Get returns the float texel at (x, y). Missing channels read as zero.
func (t *Texture) Get(x, y int) [4]float32 {
	if t.Format.IsInteger() {
		u := t.GetUint(x, y)
		return [4]float32{float32(u[0]), float32(u[1]), float32(u[2]), float32(u[3])}
	}
	i := t.offset(x, y)
	return [4]float32(t.floats[i : i+4])
}

// Set writes the float texel at (x, y), dropping channels the format lacks
func (t *Texture) Set(x, y int, v [4]float32) {
	if t.Format.IsInteger() {
		t.SetUint(x, y, [4]uint32{uint32(v[0]), uint32(v[1]), uint32(v[2]), uint32(v[3])})
		return
	}
	i := t.offset(x, y)
	n := t.Format.Channels()
	for c := 0; c < 4; c++ {
		val := v[c]
		if c >= n {
			val = 0
		} else if t.Format == RGBA16Float {
			val = half.FromFloat32(val).Float32()
		}
		t.floats[i+c] = val
	}
}

// GetVec3 returns the first three channels at (x, y)
func (t *Texture) GetVec3(x, y int) core.Vec3 {
	v := t.Get(x, y)
	return core.NewVec3(float64(v[0]), float64(v[1]), float64(v[2]))
}

// SetVec3 writes a color with alpha 1
func (t *Texture) SetVec3(x, y int, c core.Vec3) {
	t.Set(x, y, [4]float32{float32(c.X), float32(c.Y), float32(c.Z), 1})
}

// GetUint returns the integer texel at (x, y)
func (t *Texture) GetUint(x, y int) [4]uint32 {
	if !t.Format.IsInteger() {
		f := t.Get(x, y)
		return [4]uint32{uint32(f[0]), uint32(f[1]), uint32(f[2]), uint32(f[3])}
	}
	i := t.offset(x, y)
	return [4]uint32(t.uints[i : i+4])
}

// SetUint writes the integer texel at (x, y)
func (t *Texture) SetUint(x, y int, v [4]uint32) {
	i := t.offset(x, y)
	copy(t.uints[i:i+4], v[:])
}

// Clear zeroes every texel
func (t *Texture) Clear() {
	clear(t.floats)
	clear(t.uints)
}

// CopyFrom copies texels from src, which must have the same size and storage class.
// Between different float formats each texel goes through Set, so channels the
// destination lacks are dropped and half destinations are rounded.
func (t *Texture) CopyFrom(src *Texture) error {
	if src.Width != t.Width || src.Height != t.Height || src.Format.IsInteger() != t.Format.IsInteger() {
		return fmt.Errorf("texture: cannot copy %v into %v", src, t)
	}
	if src.Format == t.Format || t.Format.IsInteger() {
		copy(t.floats, src.floats)
		copy(t.uints, src.uints)
		return nil
	}
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			t.Set(x, y, src.Get(x, y))
		}
	}
	return nil
}
