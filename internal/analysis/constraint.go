package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// pdfGridPoints is the number of x samples used when integrating the
// constrained density; the grid spans obs ± pdfGridWidth·dobs.
const (
	pdfGridPoints = 801
	pdfGridWidth  = 6.0
)

// ReduceEmergentConstraint combines the ensemble relationship between x and y
// with an observation obs ± dobs of x and returns the constrained estimate of
// y.
//
// Pairs where either value is NaN or infinite are ignored. A straight line is
// fitted to the remaining N pairs by least squares, with prediction error
// sigma = sqrt(RSS/(N-2)). The spread of a prediction at x is
//
//	sigma_f(x) = sigma * sqrt(1 + 1/N + (x - xmean)^2 / Sxx)
//
// and the constrained distribution of y is the Gaussian prediction
// integrated over a Gaussian observation. Its mean and standard deviation
// have closed forms:
//
//	mean = intercept + slope*obs
//	var  = sigma^2 (1 + 1/N + ((obs-xmean)^2 + dobs^2)/Sxx) + slope^2 dobs^2
//
// Lower and Upper are mean ∓ one standard deviation.
func ReduceEmergentConstraint(x, y []float64, obs, dobs float64) (EmergentConstraint, error) {
	if len(x) != len(y) {
		return EmergentConstraint{}, fmt.Errorf("%w: %d x values, %d y values", ErrLengthMismatch, len(x), len(y))
	}
	if !isFinite(obs) || !isFinite(dobs) || dobs < 0 {
		return EmergentConstraint{}, fmt.Errorf("%w: obs=%g dobs=%g", ErrInvalidObservation, obs, dobs)
	}

	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if isFinite(x[i]) && isFinite(y[i]) {
			xs = append(xs, x[i])
			ys = append(ys, y[i])
		}
	}
	n := len(xs)
	if n < 3 {
		return EmergentConstraint{}, fmt.Errorf("%w: got %d", ErrInsufficientPairs, n)
	}

	xMean := stat.Mean(xs, nil)
	var sxx float64
	for _, v := range xs {
		sxx += (v - xMean) * (v - xMean)
	}
	if sxx == 0 {
		return EmergentConstraint{}, ErrDegenerateFit
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	var rss float64
	for i := range xs {
		r := ys[i] - intercept - slope*xs[i]
		rss += r * r
	}
	sigma := math.Sqrt(rss / float64(n-2))

	nf := float64(n)
	dx := obs - xMean
	variance := sigma*sigma*(1+1/nf+(dx*dx+dobs*dobs)/sxx) + slope*slope*dobs*dobs
	std := math.Sqrt(variance)
	mean := intercept + slope*obs

	priorMean, priorVar := stat.PopMeanVariance(ys, nil)

	return EmergentConstraint{
		Mean:      mean,
		Lower:     mean - std,
		Upper:     mean + std,
		Std:       std,
		Slope:     slope,
		Intercept: intercept,
		Sigma:     sigma,
		N:         n,
		XMean:     xMean,
		Sxx:       sxx,
		Obs:       obs,
		DObs:      dobs,
		PriorMean: priorMean,
		PriorStd:  math.Sqrt(priorVar),
	}, nil
}

// PredictionSpread is sigma_f(x), the standard deviation of a prediction of y
// made from the line fit at x.
func (ec EmergentConstraint) PredictionSpread(x float64) float64 {
	d := x - ec.XMean
	return ec.Sigma * math.Sqrt(1+1/float64(ec.N)+d*d/ec.Sxx)
}

// ConstraintPDF evaluates the constrained density of y at each value of ys by
// trapezoidal integration over the observational distribution of x.
func ConstraintPDF(ec EmergentConstraint, ys []float64) ([]float64, error) {
	if ec.Std == 0 {
		return nil, fmt.Errorf("constraint density: %w", ErrZeroSpread)
	}
	out := make([]float64, len(ys))

	if ec.DObs == 0 {
		sf := ec.PredictionSpread(ec.Obs)
		if sf == 0 {
			return nil, fmt.Errorf("constraint density: %w", ErrZeroSpread)
		}
		pred := distuv.Normal{Mu: ec.Mean, Sigma: sf}
		for i, y := range ys {
			out[i] = pred.Prob(y)
		}
		return out, nil
	}

	xs := floats.Span(make([]float64, pdfGridPoints), ec.Obs-pdfGridWidth*ec.DObs, ec.Obs+pdfGridWidth*ec.DObs)
	obsDist := distuv.Normal{Mu: ec.Obs, Sigma: ec.DObs}
	px := make([]float64, len(xs))
	spread := make([]float64, len(xs))
	for j, x := range xs {
		px[j] = obsDist.Prob(x)
		spread[j] = ec.PredictionSpread(x)
	}

	f := make([]float64, len(xs))
	for i, y := range ys {
		for j, x := range xs {
			if spread[j] == 0 {
				f[j] = 0
				continue
			}
			pred := distuv.Normal{Mu: ec.Intercept + ec.Slope*x, Sigma: spread[j]}
			f[j] = pred.Prob(y) * px[j]
		}
		out[i] = integrate.Trapezoidal(xs, f)
	}
	return out, nil
}

// PriorPDF evaluates the unconstrained Gaussian fitted to the ensemble y
// values at each value of ys.
func PriorPDF(ec EmergentConstraint, ys []float64) ([]float64, error) {
	if ec.PriorStd == 0 {
		return nil, fmt.Errorf("prior density: %w", ErrZeroSpread)
	}
	prior := distuv.Normal{Mu: ec.PriorMean, Sigma: ec.PriorStd}
	out := make([]float64, len(ys))
	for i, y := range ys {
		out[i] = prior.Prob(y)
	}
	return out, nil
}
