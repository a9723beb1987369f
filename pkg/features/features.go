// Package features extracts the fixed set of statistical and textural scalars
// the modality classifier consumes. All extractors are pure functions over a
// normalized grayscale buffer and keep no state between calls: each invocation
// allocates its own histogram and magnitude grids.
package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"modalityscan/pkg/raster"
)

// Vector holds the nine engineered features in the model's contract order.
type Vector struct {
	HistMean    float64
	HistVar     float64
	HistEntropy float64
	EdgeMean    float64
	EdgeStd     float64
	EdgeP50     float64
	EdgeP90     float64
	EdgeP99     float64
	TextureE    float64
}

// Keys returns the feature names in the fixed order the classifier sums them.
// The order matters only for bit-reproducible scores and deterministic
// iteration, not for the model semantics.
func Keys() []string {
	return []string{
		"histMean", "histVar", "histEntropy",
		"edgeMean", "edgeStd", "edgeP50", "edgeP90", "edgeP99",
		"textureE",
	}
}

// Get returns the value for one of the contract keys, or 0 for unknown keys.
func (v Vector) Get(key string) float64 {
	switch key {
	case "histMean":
		return v.HistMean
	case "histVar":
		return v.HistVar
	case "histEntropy":
		return v.HistEntropy
	case "edgeMean":
		return v.EdgeMean
	case "edgeStd":
		return v.EdgeStd
	case "edgeP50":
		return v.EdgeP50
	case "edgeP90":
		return v.EdgeP90
	case "edgeP99":
		return v.EdgeP99
	case "textureE":
		return v.TextureE
	}
	return 0
}

// Map returns the vector as a map with exactly the nine contract keys.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, 9)
	for _, key := range Keys() {
		m[key] = v.Get(key)
	}
	return m
}

// Extract computes the full feature vector from a normalized grayscale
// buffer. It reads the luma channel only; R == G == B holds for buffers
// produced by raster.ToGrayscale.
func Extract(norm *raster.Image) Vector {
	hist := Histogram(norm)
	histMean, histVar, histEntropy := HistogramStats(hist)

	mags := sobelMagnitudes(norm)
	edgeMean, edgeStd := edgeMoments(mags)

	sorted := append([]float64(nil), mags...)
	sort.Float64s(sorted)

	return Vector{
		HistMean:    histMean,
		HistVar:     histVar,
		HistEntropy: histEntropy,
		EdgeMean:    edgeMean,
		EdgeStd:     edgeStd,
		EdgeP50:     Percentile(sorted, 50),
		EdgeP90:     Percentile(sorted, 90),
		EdgeP99:     Percentile(sorted, 99),
		TextureE:    TextureEnergy(norm),
	}
}

// Histogram computes the 256-bin normalized luma histogram: bin i holds the
// fraction of pixels with luma exactly i, so the bins sum to 1 for any
// non-empty image.
func Histogram(gray *raster.Image) [256]float64 {
	var hist [256]float64
	total := gray.Width * gray.Height
	if total == 0 {
		return hist
	}

	for y := 0; y < gray.Height; y++ {
		for x := 0; x < gray.Width; x++ {
			hist[gray.Luma(x, y)]++
		}
	}
	for i := range hist {
		hist[i] /= float64(total)
	}
	return hist
}

// HistogramStats derives mean, variance and Shannon entropy (base 2, in bits)
// from a normalized histogram. Empty bins contribute nothing to the entropy,
// treating 0*log(0) as 0.
func HistogramStats(hist [256]float64) (mean, variance, entropy float64) {
	for i, p := range hist {
		mean += float64(i) * p
	}
	for i, p := range hist {
		d := float64(i) - mean
		variance += p * d * d
	}
	for _, p := range hist {
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}
	return mean, variance, entropy
}

var (
	sobelX = [3][3]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]float64{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

// sobelMagnitudes applies the 3x3 Sobel operator and returns the gradient
// magnitude grid, same dimensions as the input. Neighbor samples are clamped
// to the nearest valid coordinate, but the outermost output ring is left at 0:
// the kernel only runs over the interior. The zero ring is intentional and
// feeds into the percentile statistics, so it must not be "fixed".
func sobelMagnitudes(gray *raster.Image) []float64 {
	w, h := gray.Width, gray.Height
	mags := make([]float64, w*h)

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					p := float64(lumaClamped(gray, x+kx, y+ky))
					gx += p * sobelX[ky+1][kx+1]
					gy += p * sobelY[ky+1][kx+1]
				}
			}
			mags[y*w+x] = math.Hypot(gx, gy)
		}
	}
	return mags
}

// lumaClamped samples luma with coordinates clamped to the nearest valid
// pixel (edge-replicate boundary).
func lumaClamped(img *raster.Image, x, y int) uint8 {
	if x < 0 {
		x = 0
	} else if x >= img.Width {
		x = img.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= img.Height {
		y = img.Height - 1
	}
	return img.Luma(x, y)
}

// edgeMoments returns the mean and sample standard deviation (n-1
// denominator) of the magnitude grid. Fewer than two samples yield 0.
func edgeMoments(mags []float64) (mean, std float64) {
	if len(mags) == 0 {
		return 0, 0
	}
	mean = stat.Mean(mags, nil)
	if len(mags) < 2 {
		return mean, 0
	}
	return mean, stat.StdDev(mags, nil)
}

// Percentile selects the order statistic at rank round(p/100*(n-1)) from an
// ascending-sorted slice, clamped to the valid index range.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Round(p / 100 * float64(n-1)))
	if idx < 0 {
		idx = 0
	} else if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// TextureEnergy is the mean absolute first difference of luma, horizontal
// plus vertical, over every pixel except the last row and column. The sum is
// averaged over the full width*height pixel count, not the reduced one.
func TextureEnergy(gray *raster.Image) float64 {
	w, h := gray.Width, gray.Height
	if w == 0 || h == 0 {
		return 0
	}

	sum := 0.0
	for y := 0; y < h-1; y++ {
		for x := 0; x < w-1; x++ {
			c := float64(gray.Luma(x, y))
			sum += math.Abs(float64(gray.Luma(x+1, y)) - c)
			sum += math.Abs(float64(gray.Luma(x, y+1)) - c)
		}
	}
	return sum / float64(w*h)
}
