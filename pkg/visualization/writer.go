// Package visualization writes the pipeline's raster artifacts to disk and
// composes the heatmap over the preprocessed image for display.
package visualization

import (
	"fmt"
	"image/jpeg"
	"image/png"
	"math"
	"os"

	"modalityscan/pkg/raster"
)

// SavePNG writes img to path as a PNG file.
func SavePNG(img *raster.Image, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer file.Close()

	return png.Encode(file, img.ToRGBA())
}

// SaveJPEG writes img to path as a JPEG file at quality 90.
func SaveJPEG(img *raster.Image, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer file.Close()

	return jpeg.Encode(file, img.ToRGBA(), &jpeg.Options{Quality: 90})
}

// Overlay composites overlay onto base with source-over blending driven by
// the overlay's own alpha channel, returning a fresh opaque buffer suitable
// for display. The heatmap's fixed partial opacity lets the underlying
// anatomy show through. Both buffers must share dimensions.
func Overlay(base, overlay *raster.Image) (*raster.Image, error) {
	if base.Width != overlay.Width || base.Height != overlay.Height {
		return nil, fmt.Errorf("dimension mismatch: base %dx%d, overlay %dx%d",
			base.Width, base.Height, overlay.Width, overlay.Height)
	}

	out := raster.New(base.Width, base.Height)
	for i := 0; i < len(base.Pix); i += 4 {
		alpha := float64(overlay.Pix[i+3]) / 255
		for c := 0; c < 3; c++ {
			blended := alpha*float64(overlay.Pix[i+c]) + (1-alpha)*float64(base.Pix[i+c])
			out.Pix[i+c] = uint8(math.Round(blended))
		}
		out.Pix[i+3] = 255
	}
	return out, nil
}
