// Package heatmap renders a false-color attention map from local pixel
// variance. It operates on the same normalized grayscale buffer the feature
// extractors see and is fully independent of the classifier branch.
package heatmap

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"modalityscan/pkg/raster"
)

const (
	// windowRadius gives the fixed 5x5 sliding window.
	windowRadius = 2

	// overlayAlpha is the fixed partial opacity of every rendered pixel.
	overlayAlpha = 180

	// rangeFloor prevents division by zero when the variance field is flat.
	rangeFloor = 1e-6
)

// Render computes the local-variance heatmap for a normalized grayscale
// buffer. The output has the same dimensions as the input, alpha fixed at
// 180. Rows of the variance field are scanned on up to workers goroutines;
// each output pixel depends only on its clamped 5x5 window, so the numeric
// result is identical to a serial scan. workers < 1 means one per CPU.
//
// It fails only when a render target of the input's dimensions cannot be
// acquired, i.e. the input buffer is nil or degenerate.
func Render(norm *raster.Image, workers int) (*raster.Image, error) {
	if norm == nil || norm.Width <= 0 || norm.Height <= 0 {
		return nil, fmt.Errorf("cannot acquire a render target for a degenerate input buffer")
	}

	variance := varianceField(norm, workers)

	lo, hi := minMax(variance)
	span := hi - lo
	if span < rangeFloor {
		span = rangeFloor
	}

	out := raster.New(norm.Width, norm.Height)
	for i, v := range variance {
		r, g, b := colormap((v - lo) / span)
		out.Pix[i*4] = r
		out.Pix[i*4+1] = g
		out.Pix[i*4+2] = b
		out.Pix[i*4+3] = overlayAlpha
	}
	return out, nil
}

// varianceField computes the per-pixel local variance grid, partitioned into
// row ranges across worker goroutines. Each goroutine writes a disjoint
// region of the field.
func varianceField(img *raster.Image, workers int) []float64 {
	w, h := img.Width, img.Height
	field := make([]float64, w*h)

	if workers < 1 {
		workers = runtime.NumCPU()
	}
	rowsPerWorker := (h + workers - 1) / workers

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < h; start += rowsPerWorker {
		end := start + rowsPerWorker
		if end > h {
			end = h
		}
		start, end := start, end
		g.Go(func() error {
			for y := start; y < end; y++ {
				for x := 0; x < w; x++ {
					field[y*w+x] = windowVariance(img, x, y)
				}
			}
			return nil
		})
	}
	// Workers never fail; Wait only joins them.
	_ = g.Wait()

	return field
}

// windowVariance returns the population variance (E[x^2]-E[x]^2) of the 5x5
// window centered on (cx, cy), with samples clamped to the nearest valid
// pixel at the borders. Replicated border samples count toward all 25.
func windowVariance(img *raster.Image, cx, cy int) float64 {
	var sum, sumSq float64
	for dy := -windowRadius; dy <= windowRadius; dy++ {
		for dx := -windowRadius; dx <= windowRadius; dx++ {
			x := clampCoord(cx+dx, img.Width-1)
			y := clampCoord(cy+dy, img.Height-1)
			v := float64(img.Luma(x, y))
			sum += v
			sumSq += v * v
		}
	}
	const n = (2*windowRadius + 1) * (2*windowRadius + 1)
	mean := sum / n
	return sumSq/n - mean*mean
}

func clampCoord(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// minMax returns the minimum and maximum values in the field.
func minMax(data []float64) (lo, hi float64) {
	if len(data) == 0 {
		return 0, 0
	}
	lo, hi = data[0], data[0]
	for _, v := range data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// colormap maps a normalized variance in [0, 1] onto the fixed false-color
// ramp: red rises quickly, green peaks mid-range, blue fades out.
func colormap(v float64) (r, g, b uint8) {
	r = clamp255(255 * math.Pow(v, 0.35))
	g = clamp255(255 * math.Pow(v, 1.2) * (1 - v))
	b = clamp255(255 * (1 - v))
	return r, g, b
}

func clamp255(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
