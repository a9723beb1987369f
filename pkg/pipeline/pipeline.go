// Package pipeline orchestrates the full analysis of a single raster image:
// resample onto the fixed canvas, convert to grayscale, normalize intensity,
// extract the feature vector, classify, and independently render the
// local-variance heatmap from the same normalized buffer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"modalityscan/pkg/classifier"
	"modalityscan/pkg/features"
	"modalityscan/pkg/heatmap"
	"modalityscan/pkg/raster"
)

// CanvasSide is the fixed square canvas every input is resampled onto before
// analysis. All downstream statistics assume this size, which keeps feature
// computation constant-cost per image and makes results comparable across
// differently sized inputs.
const CanvasSide = 256

var (
	// ErrUnsupportedInput reports an input image that cannot be drawn onto
	// the analysis canvas. Surfaced to the caller, never retried.
	ErrUnsupportedInput = errors.New("unsupported input image")

	// ErrRenderTargetUnavailable reports that an output raster surface could
	// not be acquired. Fatal to the call that observed it.
	ErrRenderTargetUnavailable = errors.New("render target unavailable")

	// ErrAnalysisInFlight reports an Analyze call made while a prior run on
	// the same Analyzer had not finished. The new submission is rejected
	// rather than allowed to race the buffers of the run in flight.
	ErrAnalysisInFlight = errors.New("analysis already in flight")
)

// Analysis is the complete, immutable result of one pipeline run.
type Analysis struct {
	// Classification carries the modality label, its confidence, and the
	// feature vector that produced them.
	Classification classifier.Result

	// Heatmap is the false-color local-variance map, same dimensions as the
	// analysis canvas, suitable for direct display.
	Heatmap *raster.Image

	// Preprocessed is the normalized grayscale buffer, exposed for display
	// as the "preprocessed" view of the input.
	Preprocessed *raster.Image

	// Generation increases with every completed run of this Analyzer, so a
	// caller holding an older Analysis can tell it has been superseded.
	Generation uint64
}

// Analyzer runs analyses one at a time. It holds no pixel buffers between
// runs; every call allocates fresh ones, so repeated analysis of the same
// input is bit-identical.
type Analyzer struct {
	log     *logrus.Logger
	workers int

	mu         sync.Mutex
	generation atomic.Uint64
}

// New returns an Analyzer that logs through log and uses up to workers
// goroutines for row-parallel raster scans (< 1 means one per CPU). A nil
// logger discards all output.
func New(log *logrus.Logger, workers int) *Analyzer {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Analyzer{log: log, workers: workers}
}

// Analyze runs the full pipeline on src and returns a complete Analysis, or
// an error with no partial state retained. The pipeline is deterministic and
// idempotent, so a failed call may simply be re-invoked on the same input.
//
// A second call made while a prior run is still in flight fails with
// ErrAnalysisInFlight.
func (a *Analyzer) Analyze(ctx context.Context, src image.Image) (*Analysis, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source image", ErrUnsupportedInput)
	}
	if !a.mu.TryLock() {
		return nil, ErrAnalysisInFlight
	}
	defer a.mu.Unlock()

	start := time.Now()

	canvas, err := raster.Resize(src, CanvasSide)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedInput, err)
	}
	gray := raster.ToGrayscale(canvas)
	norm := raster.NormalizeIntensity(gray)
	a.log.WithField("canvas", CanvasSide).Debug("input resampled and normalized")

	// The classification and heatmap branches both read norm and nothing
	// else, so they run concurrently without affecting determinism.
	var (
		result classifier.Result
		heat   *raster.Image
	)
	var g errgroup.Group
	g.Go(func() error {
		result = classifier.Classify(features.Extract(norm))
		return nil
	})
	g.Go(func() error {
		rendered, err := heatmap.Render(norm, a.workers)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRenderTargetUnavailable, err)
		}
		heat = rendered
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.log.WithFields(logrus.Fields{
		"modality":   result.Modality,
		"confidence": result.Confidence,
		"elapsed":    time.Since(start),
	}).Debug("analysis complete")

	return &Analysis{
		Classification: result,
		Heatmap:        heat,
		Preprocessed:   norm,
		Generation:     a.generation.Add(1),
	}, nil
}
