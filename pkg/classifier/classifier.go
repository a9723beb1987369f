// Package classifier implements the fixed linear model that maps the
// engineered feature vector to a CT/MRI label with a confidence. The weights
// and bias are an inseparable part of the documented feature contract and are
// therefore compile-time constants, never configuration.
package classifier

import (
	"math"

	"modalityscan/pkg/features"
)

// Modality is the closed label set the model chooses from.
type Modality string

const (
	CT  Modality = "CT"
	MRI Modality = "MRI"
)

// Model weights, applied in the features.Keys order.
const (
	weightHistMean    = -0.01
	weightHistVar     = -0.002
	weightHistEntropy = 0.8
	weightEdgeMean    = -0.015
	weightEdgeStd     = -0.02
	weightEdgeP50     = -0.001
	weightEdgeP90     = -0.0008
	weightEdgeP99     = -0.0005
	weightTextureE    = -0.004
	bias              = -1.0
)

// Result is the outcome of one classification. Confidence is the probability
// assigned to the predicted label, so it is always at least 0.5. Results are
// created once per analysis and never mutated.
type Result struct {
	Modality   Modality
	Confidence float64
	Features   features.Vector
}

// Score returns the raw linear score for a feature vector. Terms are summed
// in the fixed key order so scores are bit-reproducible across runs.
func Score(v features.Vector) float64 {
	score := bias
	score += v.HistMean * weightHistMean
	score += v.HistVar * weightHistVar
	score += v.HistEntropy * weightHistEntropy
	score += v.EdgeMean * weightEdgeMean
	score += v.EdgeStd * weightEdgeStd
	score += v.EdgeP50 * weightEdgeP50
	score += v.EdgeP90 * weightEdgeP90
	score += v.EdgeP99 * weightEdgeP99
	score += v.TextureE * weightTextureE
	return score
}

// Classify squashes the linear score through the logistic function and picks
// the label on whichever side of 0.5 the MRI probability falls. Purely
// arithmetic; there are no error conditions.
func Classify(v features.Vector) Result {
	probMRI := logistic(Score(v))
	result := Result{Modality: CT, Confidence: 1 - probMRI, Features: v}
	if probMRI > 0.5 {
		result.Modality = MRI
		result.Confidence = probMRI
	}
	return result
}

// logistic maps an unbounded score to (0, 1) via 1/(1+e^-x).
func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
