package analysis

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/user/ec_plotter_go/internal/parser"
)

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestObservationalConstraint_IgnoresNaN(t *testing.T) {
	sample := []float64{-300, math.NaN(), -320, -310, math.NaN(), -290}
	band, err := ObservationalConstraint(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// finite values: -300 -320 -310 -290, mean -305
	if !approx(band.Mean, -305, 1e-12) {
		t.Fatalf("mean: %v", band.Mean)
	}
	// population std: sqrt((25+225+25+225)/4) = sqrt(125)
	if !approx(band.Std, math.Sqrt(125), 1e-12) {
		t.Fatalf("std: %v", band.Std)
	}
	if band.Count != 4 {
		t.Fatalf("count: %d", band.Count)
	}
	if !approx(band.Lower(), -305-math.Sqrt(125), 1e-12) || !approx(band.Upper(), -305+math.Sqrt(125), 1e-12) {
		t.Fatalf("band edges: %v %v", band.Lower(), band.Upper())
	}
}

func TestObservationalConstraint_SingleValue(t *testing.T) {
	band, err := ObservationalConstraint([]float64{math.NaN(), -42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if band.Mean != -42 || band.Std != 0 {
		t.Fatalf("got %+v", band)
	}
}

func TestObservationalConstraint_AllNaN(t *testing.T) {
	_, err := ObservationalConstraint([]float64{math.NaN(), math.NaN()})
	if !errors.Is(err, ErrNoFiniteValues) {
		t.Fatalf("want ErrNoFiniteValues, got %v", err)
	}
}

func TestFlattenFinite_OneMissingRun(t *testing.T) {
	const scenarios, models = 3, 9
	data := make([]float64, scenarios*models)
	for i := range data {
		data[i] = -float64(10 * (i + 1))
	}
	data[13] = math.NaN()
	m := mat.NewDense(scenarios, models, data)

	flat := FlattenFinite(m)
	if len(flat) != scenarios*models-1 {
		t.Fatalf("expected %d finite values, got %d", scenarios*models-1, len(flat))
	}
	if flat[0] != -10 || flat[len(flat)-1] != -270 {
		t.Fatalf("row-major order lost: first=%v last=%v", flat[0], flat[len(flat)-1])
	}
	for _, v := range flat {
		if math.IsNaN(v) {
			t.Fatal("NaN leaked into flattened values")
		}
	}
}

func TestFiniteValues_DropsInf(t *testing.T) {
	got := FiniteValues([]float64{1, math.Inf(1), 2, math.Inf(-1), math.NaN()})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v", got)
	}
}

func TestPolyEval(t *testing.T) {
	// 2x^2 - 3x + 1
	p := Poly{2, -3, 1}
	cases := map[float64]float64{0: 1, 1: 0, 2: 3, -1: 6}
	for x, want := range cases {
		if got := p.Eval(x); got != want {
			t.Fatalf("p(%v) = %v, want %v", x, got, want)
		}
	}
	if p.Degree() != 2 {
		t.Fatalf("degree %d", p.Degree())
	}
	if (Poly{}).Eval(3) != 0 {
		t.Fatal("empty poly should evaluate to 0")
	}
}

func TestMaskedMean(t *testing.T) {
	f := parser.MaskedField{
		Name: "temperature",
		Data: []float64{1, 100, 3, math.NaN()},
		Mask: []bool{false, true, false, false},
	}
	m, err := MaskedMean(f)
	if err != nil || m != 2 {
		t.Fatalf("masked mean: %v %v", m, err)
	}
	f.Mask = []bool{true, true, true, true}
	if _, err := MaskedMean(f); !errors.Is(err, ErrNoFiniteValues) {
		t.Fatalf("want ErrNoFiniteValues, got %v", err)
	}
}

func TestSummarizeObservations(t *testing.T) {
	obs := &parser.Observations{
		PolyCoeffs: []float64{1, 0},
		Temperature: parser.MaskedField{
			Name: "temperature", Data: []float64{280, 290, 999}, Mask: []bool{false, false, true},
		},
		Respiration: parser.MaskedField{
			Name: "rh", Data: []float64{0.5, 0.7}, Mask: []bool{false, false},
		},
	}
	s, err := SummarizeObservations(obs)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.MeanTemperature != 285 || s.ValidTemperature != 2 {
		t.Fatalf("temperature summary: %+v", s)
	}
	if !approx(s.MeanRespiration, 0.6, 1e-12) || s.ValidRespiration != 2 {
		t.Fatalf("rh summary: %+v", s)
	}
	if s.PolyAtMeanTemperature != 285 {
		t.Fatalf("poly at mean: %v", s.PolyAtMeanTemperature)
	}
}
