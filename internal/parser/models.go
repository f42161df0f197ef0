package parser

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FitCurve is the regression line computed upstream, loaded verbatim.
type FitCurve struct {
	X []float64
	Y []float64
}

// ThresholdInputs holds everything read from disk for one warming threshold.
// Nothing in it is modified after loading.
type ThresholdInputs struct {
	Threshold float64

	// X and Y are [scenarios x models]; NaN marks a missing model run.
	X *mat.Dense
	Y *mat.Dense

	// ObsConstraint holds one observationally derived estimate per
	// (scenario, model), indexed model + scenario*nModels.
	ObsConstraint []float64

	Fit FitCurve

	// CombinedX and CombinedY are the paired samples fed to the emergent
	// constraint reduction, with the combined observational mean and spread.
	CombinedX []float64
	CombinedY []float64
	XObs      float64
	DXObs     float64

	Files []string // Paths read, in load order
}

// MaskedField is an observed quantity over space. Mask[i] true means cell i
// has no data and is excluded from statistics.
type MaskedField struct {
	Name  string
	Shape []int
	Data  []float64
	Mask  []bool
}

// Valid returns the unmasked values.
func (f MaskedField) Valid() []float64 {
	out := make([]float64, 0, len(f.Data))
	for i, v := range f.Data {
		if !f.Mask[i] {
			out = append(out, v)
		}
	}
	return out
}

// Observations holds the fixed observational inputs shared by all thresholds.
type Observations struct {
	// PolyCoeffs are the observed temperature relationship coefficients,
	// highest power first.
	PolyCoeffs  []float64
	Temperature MaskedField
	Respiration MaskedField
}

// ShapeError reports an input whose dimensions do not match what the run
// configuration expects.
type ShapeError struct {
	File string
	Want string
	Got  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: expected shape %s, got %s", e.File, e.Want, e.Got)
}
