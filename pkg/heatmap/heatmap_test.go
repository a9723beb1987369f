package heatmap

import (
	"bytes"
	"math"
	"testing"

	"modalityscan/pkg/raster"
)

// grayImage creates a grayscale raster with the given luma pattern.
func grayImage(width, height int, luma func(x, y int) uint8) *raster.Image {
	img := raster.New(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := luma(x, y)
			i := (y*width + x) * 4
			img.Pix[i] = v
			img.Pix[i+1] = v
			img.Pix[i+2] = v
			img.Pix[i+3] = 255
		}
	}
	return img
}

// TestFlatImageHeatmap verifies that a uniform input yields a zero variance
// field and a heatmap uniformly at the v=0 color (0, 0, 255, 180).
func TestFlatImageHeatmap(t *testing.T) {
	img := grayImage(64, 64, func(x, y int) uint8 { return 128 })

	heat, err := Render(img, 1)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	for i := 0; i < len(heat.Pix); i += 4 {
		r, g, b, a := heat.Pix[i], heat.Pix[i+1], heat.Pix[i+2], heat.Pix[i+3]
		if r != 0 || g != 0 || b != 255 || a != 180 {
			t.Fatalf("pixel %d: expected (0,0,255,180) for flat input, got (%d,%d,%d,%d)",
				i/4, r, g, b, a)
		}
	}
}

// TestHeatmapNormalizationExtremes verifies that a non-constant variance
// field attains both ends of the normalized range: the coldest pixel maps to
// full blue and the hottest to full red with no blue.
func TestHeatmapNormalizationExtremes(t *testing.T) {
	// Left half flat, right half 1-pixel checkerboard: variance is zero on
	// the far left and maximal inside the textured half.
	img := grayImage(64, 64, func(x, y int) uint8 {
		if x < 32 {
			return 128
		}
		if (x+y)%2 == 0 {
			return 0
		}
		return 255
	})

	heat, err := Render(img, 1)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	var sawCold, sawHot bool
	for i := 0; i < len(heat.Pix); i += 4 {
		if heat.Pix[i] == 0 && heat.Pix[i+2] == 255 {
			sawCold = true
		}
		if heat.Pix[i] == 255 && heat.Pix[i+2] == 0 {
			sawHot = true
		}
	}
	if !sawCold {
		t.Error("expected at least one pixel at the v=0 color (0,·,255)")
	}
	if !sawHot {
		t.Error("expected at least one pixel at the v=1 color (255,·,0)")
	}
}

// TestRenderDimensionsAndAlpha verifies the output matches the input
// dimensions with the fixed partial opacity everywhere.
func TestRenderDimensionsAndAlpha(t *testing.T) {
	img := grayImage(48, 24, func(x, y int) uint8 { return uint8(x * 5) })

	heat, err := Render(img, 0)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if heat.Width != 48 || heat.Height != 24 {
		t.Errorf("expected 48x24 output, got %dx%d", heat.Width, heat.Height)
	}
	for i := 3; i < len(heat.Pix); i += 4 {
		if heat.Pix[i] != 180 {
			t.Fatalf("pixel %d: expected alpha 180, got %d", i/4, heat.Pix[i])
		}
	}
}

// TestRenderDeterministicAcrossWorkers verifies that row-parallel rendering
// is byte-identical to the single-worker scan.
func TestRenderDeterministicAcrossWorkers(t *testing.T) {
	img := grayImage(96, 96, func(x, y int) uint8 {
		return uint8((x*x + y*3) % 256)
	})

	serial, err := Render(img, 1)
	if err != nil {
		t.Fatalf("serial Render failed: %v", err)
	}
	parallel, err := Render(img, 8)
	if err != nil {
		t.Fatalf("parallel Render failed: %v", err)
	}

	if !bytes.Equal(serial.Pix, parallel.Pix) {
		t.Error("expected identical output for 1 and 8 workers")
	}
}

// TestWindowVariance checks the population variance of a clamped window
// against a hand-computed case.
func TestWindowVariance(t *testing.T) {
	// Single bright pixel at the center of an otherwise black 7x7 image:
	// the window at (3,3) covers it exactly once.
	img := grayImage(7, 7, func(x, y int) uint8 {
		if x == 3 && y == 3 {
			return 250
		}
		return 0
	})

	mean := 250.0 / 25
	expected := (250.0*250.0)/25 - mean*mean
	if got := windowVariance(img, 3, 3); math.Abs(got-expected) > 1e-9 {
		t.Errorf("expected variance %.6f, got %.6f", expected, got)
	}

	// The clamped corner window only replicates pixels from the all-black
	// top-left 3x3 region, so its variance is zero.
	if got := windowVariance(img, 0, 0); got != 0 {
		t.Errorf("expected zero variance at corner, got %.6f", got)
	}
}

// TestRenderDegenerateInput verifies the render-target failure mode.
func TestRenderDegenerateInput(t *testing.T) {
	if _, err := Render(nil, 1); err == nil {
		t.Error("expected error for nil input")
	}
	if _, err := Render(&raster.Image{}, 1); err == nil {
		t.Error("expected error for zero-sized input")
	}
}
