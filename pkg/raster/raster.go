// Package raster provides the RGBA8 buffer value type shared by the analysis
// pipeline, together with the resampling, grayscale conversion and intensity
// normalization steps that prepare an image for feature extraction.
package raster

import (
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Image is a width x height raster with 8 bits per channel, stored row-major
// as R,G,B,A quadruplets. Pipeline stages treat values of this type as
// immutable once returned: every stage allocates a fresh buffer for its
// output and never writes to an input buffer.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed RGBA buffer with the given dimensions.
func New(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

// Luma returns the grayscale value at (x, y). It reads the red channel, which
// equals green and blue for buffers produced by ToGrayscale.
func (img *Image) Luma(x, y int) uint8 {
	return img.Pix[(y*img.Width+x)*4]
}

// ToRGBA copies the buffer into a stdlib *image.RGBA for encoding or display.
func (img *Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	copy(out.Pix, img.Pix)
	return out
}

// Resize draws src into a fresh square canvas of the given side using
// Catmull-Rom resampling. The analysis pipeline always requests side 256 so
// that downstream statistics are comparable across differently sized inputs;
// the function itself accepts any positive side.
func Resize(src image.Image, side int) (*Image, error) {
	if side <= 0 {
		return nil, fmt.Errorf("canvas side must be positive, got %d", side)
	}
	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("source image has empty bounds %v", bounds)
	}

	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	xdraw.CatmullRom.Scale(dst, dst.Rect, src, bounds, xdraw.Src, nil)

	return &Image{Width: side, Height: side, Pix: dst.Pix}, nil
}

// ToGrayscale converts img to grayscale using the ITU-R BT.709 luma weights:
// y = round(0.2126*R + 0.7152*G + 0.0722*B). Every output pixel has
// R == G == B; alpha is carried over unchanged.
func ToGrayscale(img *Image) *Image {
	out := New(img.Width, img.Height)
	for i := 0; i < len(img.Pix); i += 4 {
		y := uint8(math.Round(
			0.2126*float64(img.Pix[i]) +
				0.7152*float64(img.Pix[i+1]) +
				0.0722*float64(img.Pix[i+2])))
		out.Pix[i] = y
		out.Pix[i+1] = y
		out.Pix[i+2] = y
		out.Pix[i+3] = img.Pix[i+3]
	}
	return out
}

// NormalizeIntensity stretches the luma range of a grayscale buffer so the
// minimum observed value maps to 0 and the maximum to 255. The range is
// floored at 1, so a constant image normalizes to all zeros rather than
// dividing by zero. Alpha is preserved.
func NormalizeIntensity(gray *Image) *Image {
	minLuma, maxLuma := uint8(255), uint8(0)
	for i := 0; i < len(gray.Pix); i += 4 {
		v := gray.Pix[i]
		if v < minLuma {
			minLuma = v
		}
		if v > maxLuma {
			maxLuma = v
		}
	}

	span := float64(maxLuma) - float64(minLuma)
	if span < 1 {
		span = 1
	}

	out := New(gray.Width, gray.Height)
	for i := 0; i < len(gray.Pix); i += 4 {
		n := math.Round(float64(gray.Pix[i]-minLuma) / span * 255)
		if n < 0 {
			n = 0
		} else if n > 255 {
			n = 255
		}
		v := uint8(n)
		out.Pix[i] = v
		out.Pix[i+1] = v
		out.Pix[i+2] = v
		out.Pix[i+3] = gray.Pix[i+3]
	}
	return out
}
