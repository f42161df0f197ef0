package analysis

import "errors"

var (
	// ErrNoFiniteValues is returned when every entry of a sample is NaN or infinite.
	ErrNoFiniteValues = errors.New("no finite values in sample")
	// ErrLengthMismatch is returned when paired samples differ in length.
	ErrLengthMismatch = errors.New("paired samples differ in length")
	// ErrInsufficientPairs is returned when fewer than three finite (x, y)
	// pairs remain, too few to estimate the prediction error of a line fit.
	ErrInsufficientPairs = errors.New("fewer than three finite (x, y) pairs")
	// ErrDegenerateFit is returned when all x values are identical.
	ErrDegenerateFit = errors.New("x values have zero spread, regression undefined")
	// ErrInvalidObservation is returned for a non-finite observation or a
	// negative or non-finite uncertainty.
	ErrInvalidObservation = errors.New("invalid observational constraint")
	// ErrZeroSpread is returned when a distribution with zero width is asked
	// for its density.
	ErrZeroSpread = errors.New("distribution has zero spread")
)

// ObservationalBand is the observational constraint on the x axis: the mean
// of the constrained estimates and their population standard deviation.
type ObservationalBand struct {
	Mean  float64 // x_obs
	Std   float64 // dx_obs
	Count int     // finite entries used
}

// Lower and Upper are the edges of the ±1 standard deviation band.
func (b ObservationalBand) Lower() float64 { return b.Mean - b.Std }
func (b ObservationalBand) Upper() float64 { return b.Mean + b.Std }

// EmergentConstraint is the result of reducing an ensemble relationship with
// an observation. Lower <= Mean <= Upper always holds.
type EmergentConstraint struct {
	Mean  float64
	Lower float64
	Upper float64
	Std   float64

	// Line fit y = Intercept + Slope*x over the finite pairs.
	Slope     float64
	Intercept float64
	Sigma     float64 // prediction error of the fit
	N         int     // finite pairs
	XMean     float64
	Sxx       float64 // sum of squared x deviations

	Obs  float64
	DObs float64

	// Unconstrained ensemble distribution of y.
	PriorMean float64
	PriorStd  float64
}
