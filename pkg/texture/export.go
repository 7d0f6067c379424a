package texture

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// ToImage converts the color channels to an 8-bit image. Values are clamped to
// [0, 1] and written as-is, so the texture should already be display-referred.
func (t *Texture) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			c := t.GetVec3(x, y).Clamp(0, 1)
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(255*c.X + 0.5),
				G: uint8(255*c.Y + 0.5),
				B: uint8(255*c.Z + 0.5),
				A: 255,
			})
		}
	}
	return img
}

// Preview returns the image scaled so its longest side is at most maxSize
func (t *Texture) Preview(maxSize int) image.Image {
	img := t.ToImage()
	longest := max(t.Width, t.Height)
	if maxSize <= 0 || longest <= maxSize {
		return img
	}
	w := max(1, t.Width*maxSize/longest)
	h := max(1, t.Height*maxSize/longest)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// WritePNG encodes the texture as PNG
func (t *Texture) WritePNG(w io.Writer) error {
	return png.Encode(w, t.ToImage())
}

// WriteTIFF encodes the texture as deflate-compressed TIFF
func (t *Texture) WriteTIFF(w io.Writer) error {
	return tiff.Encode(w, t.ToImage(), &tiff.Options{Compression: tiff.Deflate})
}

// Save writes the texture to path, choosing the encoder from the extension
func (t *Texture) Save(path string) error {
	var encode func(io.Writer) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		encode = t.WritePNG
	case ".tif", ".tiff":
		encode = t.WriteTIFF
	default:
		return fmt.Errorf("texture: unsupported image extension %q", filepath.Ext(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
