package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/user/ec_plotter_go/internal/parser"
)

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FiniteValues returns the entries of data that are neither NaN nor
// infinite, in order.
func FiniteValues(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

// FlattenFinite flattens a result table row by row and drops the undefined
// entries, ready for aggregate statistics.
func FlattenFinite(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); isFinite(v) {
				out = append(out, v)
			}
		}
	}
	return out
}

// ObservationalConstraint computes the mean and population standard
// deviation of the finite entries of the constrained estimates, matching
// numpy's nanmean and nanstd.
func ObservationalConstraint(sample []float64) (ObservationalBand, error) {
	valid := FiniteValues(sample)
	if len(valid) == 0 {
		return ObservationalBand{}, fmt.Errorf("observational constraint: %w", ErrNoFiniteValues)
	}
	mean, variance := stat.PopMeanVariance(valid, nil)
	return ObservationalBand{Mean: mean, Std: math.Sqrt(variance), Count: len(valid)}, nil
}

// MaskedMean is the mean of the unmasked, finite cells of a field.
func MaskedMean(f parser.MaskedField) (float64, error) {
	valid := FiniteValues(f.Valid())
	if len(valid) == 0 {
		return math.NaN(), fmt.Errorf("field %s: %w", f.Name, ErrNoFiniteValues)
	}
	return stat.Mean(valid, nil), nil
}

// Poly is a polynomial with coefficients ordered from the highest power down,
// as numpy.poly1d stores them.
type Poly []float64

// Eval evaluates the polynomial at x.
func (p Poly) Eval(x float64) float64 {
	var y float64
	for _, c := range p {
		y = y*x + c
	}
	return y
}

// Degree is the polynomial order; a constant has degree 0.
func (p Poly) Degree() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// ObservationSummary condenses the fixed observational inputs.
type ObservationSummary struct {
	Poly                  Poly
	MeanTemperature       float64
	MeanRespiration       float64
	ValidTemperature      int
	ValidRespiration      int
	PolyAtMeanTemperature float64
}

// SummarizeObservations computes the masked means of the observational fields
// and evaluates the observed relationship at the mean temperature.
func SummarizeObservations(obs *parser.Observations) (ObservationSummary, error) {
	if obs == nil {
		return ObservationSummary{}, fmt.Errorf("observations are nil")
	}
	s := ObservationSummary{Poly: Poly(obs.PolyCoeffs)}

	var err error
	if s.MeanTemperature, err = MaskedMean(obs.Temperature); err != nil {
		return ObservationSummary{}, err
	}
	if s.MeanRespiration, err = MaskedMean(obs.Respiration); err != nil {
		return ObservationSummary{}, err
	}
	s.ValidTemperature = len(FiniteValues(obs.Temperature.Valid()))
	s.ValidRespiration = len(FiniteValues(obs.Respiration.Valid()))
	s.PolyAtMeanTemperature = s.Poly.Eval(s.MeanTemperature)
	return s, nil
}
