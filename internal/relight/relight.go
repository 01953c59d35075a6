// Package relight brightens a photo around a point light source.
package relight

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidLight is returned for light positions outside [0,1] or a non-positive intensity.
var ErrInvalidLight = errors.New("relight: invalid light")

// Light places a point light in relative coordinates; (0.5, 0.5) is the center.
// Intensity is the brightness factor at the light, above 1 brightens.
type Light struct {
	X         float64
	Y         float64
	Intensity float64
}

func DefaultLight() Light {
	return Light{X: 0.5, Y: 0.5, Intensity: 1.5}
}

func (l Light) Validate() error {
	if l.X < 0 || l.X > 1 || l.Y < 0 || l.Y > 1 {
		return fmt.Errorf("%w: position (%.2f, %.2f) outside [0,1]", ErrInvalidLight, l.X, l.Y)
	}
	if l.Intensity <= 0 || math.IsNaN(l.Intensity) || math.IsInf(l.Intensity, 0) {
		return fmt.Errorf("%w: intensity %v must be positive", ErrInvalidLight, l.Intensity)
	}
	return nil
}

// Mask returns the blend weight per pixel: full strength at the light, fading
// linearly to zero at the image diagonal. Non-positive strength yields an empty mask.
func Mask(bounds image.Rectangle, l Light, strength float64) *image.Alpha {
	mask := image.NewAlpha(bounds)
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	maxDistance := math.Hypot(w, h)
	if maxDistance == 0 || strength <= 0 {
		return mask
	}
	lx, ly := l.X*w, l.Y*h
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			factor := math.Max(0, 1-math.Hypot(float64(x)-lx, float64(y)-ly)/maxDistance)
			v := 255 * math.Min(1, factor*strength)
			mask.SetAlpha(bounds.Min.X+x, bounds.Min.Y+y, color.Alpha{A: uint8(v)})
		}
	}
	return mask
}

// Apply composites a brightened copy of src over the opaque original through
// the light mask. Alpha is discarded.
func Apply(src image.Image, l Light) (*image.RGBA, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	bounds := src.Bounds()
	base := image.NewRGBA(bounds)
	bright := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			base.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
			bright.SetRGBA(x, y, color.RGBA{
				R: scale(c.R, l.Intensity),
				G: scale(c.G, l.Intensity),
				B: scale(c.B, l.Intensity),
				A: 0xff,
			})
		}
	}
	mask := Mask(bounds, l, l.Intensity-1)
	draw.DrawMask(base, bounds, bright, bounds.Min, mask, bounds.Min, draw.Over)
	return base, nil
}

func scale(v uint8, factor float64) uint8 {
	return uint8(math.Min(255, math.Round(float64(v)*factor)))
}

// File relights the PNG or JPEG at in and writes the result to out, encoded
// by out's extension (.jpg/.jpeg for JPEG, PNG otherwise).
func File(in, out string, l Light) error {
	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("relight: open input: %w", err)
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("relight: decode %s: %w", in, err)
	}

	result, err := Apply(src, l)
	if err != nil {
		return err
	}

	dst, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("relight: create output: %w", err)
	}
	switch strings.ToLower(filepath.Ext(out)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(dst, result, &jpeg.Options{Quality: 95})
	default:
		err = png.Encode(dst, result)
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("relight: encode %s: %w", out, err)
	}
	return nil
}
