package report

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/user/ec_plotter_go/internal/analysis"
	"github.com/user/ec_plotter_go/internal/config"
	"github.com/user/ec_plotter_go/internal/parser"
	"github.com/user/ec_plotter_go/internal/parser/parsertest"
)

// testRun lays out inputs for the given thresholds under a temp dir and
// returns a config pointing at them.
func testRun(t *testing.T, thresholds ...string) (config.Config, map[string]parsertest.Fixture) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(root, "saved_data")
	cfg.VariablesDir = filepath.Join(root, "saved_variables")
	cfg.Outputs.Default = filepath.Join(root, "paper_plots", "MODELRHcmip5_{T}degreeswarming_CARDrh.pdf")
	cfg.Outputs.Rules = []config.OutputRule{
		{Threshold: 0.5, Path: filepath.Join(root, "final_plots", "cmip5_classicEC_05degreeswarming_CARDrh.pdf")},
	}
	cfg.Summary.Path = filepath.Join(root, "paper_plots", "summary_{ensemble}_CARDrh.pdf")

	fixtures := make(map[string]parsertest.Fixture)
	cfg.Thresholds = nil
	for _, ts := range thresholds {
		f := parsertest.NewFixture(ts, len(cfg.Scenarios), len(cfg.Models))
		f.Write(t, cfg.DataDir)
		fixtures[ts] = f
		v, err := strconv.ParseFloat(ts, 64)
		if err != nil {
			t.Fatal(err)
		}
		cfg.Thresholds = append(cfg.Thresholds, v)
	}
	parsertest.WriteObservations(t, cfg.VariablesDir, 48)
	return cfg, fixtures
}

func readPDF(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("%s is not a PDF", path)
	}
}

func TestRunner_Run(t *testing.T) {
	cfg, fixtures := testRun(t, "0.5", "2")
	r := NewRunner(cfg, nil)
	var steps []string
	r.Status = func(s string) { steps = append(steps, s) }

	res, err := r.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Thresholds) != 2 {
		t.Fatalf("expected 2 threshold results, got %d", len(res.Thresholds))
	}
	if len(steps) == 0 {
		t.Fatal("no status reported")
	}
	if res.SummaryPath != "" {
		t.Fatalf("summary written while disabled: %s", res.SummaryPath)
	}

	for _, tr := range res.Thresholds {
		ts := config.FormatThreshold(tr.Threshold)
		f := fixtures[ts]
		readPDF(t, tr.OutputPath)
		if tr.OutputPath != OutputPath(cfg.Outputs, tr.Threshold) {
			t.Errorf("%s: output %s", ts, tr.OutputPath)
		}

		mean, variance := stat.PopMeanVariance(f.Obs, nil)
		if math.Abs(tr.Band.Mean-mean) > 1e-9 || math.Abs(tr.Band.Std-math.Sqrt(variance)) > 1e-9 {
			t.Errorf("%s: band %+v, want mean %v std %v", ts, tr.Band, mean, math.Sqrt(variance))
		}
		ec := tr.Constraint
		if !(ec.Lower <= ec.Mean && ec.Mean <= ec.Upper) {
			t.Errorf("%s: bounds out of order: %+v", ts, ec)
		}
		if ec.Obs != f.XObs || ec.DObs != f.DXObs {
			t.Errorf("%s: reduction used obs %v ± %v", ts, ec.Obs, ec.DObs)
		}
		if len(tr.Markers) != len(cfg.Scenarios)*len(cfg.Models) || tr.FiniteX != 27 || tr.FiniteY != 27 {
			t.Errorf("%s: markers %d finite %d/%d", ts, len(tr.Markers), tr.FiniteX, tr.FiniteY)
		}
		if tr.Preview != nil {
			t.Errorf("%s: preview kept without Previews", ts)
		}
	}
	if filepath.Base(filepath.Dir(res.Thresholds[0].OutputPath)) != "final_plots" ||
		filepath.Base(filepath.Dir(res.Thresholds[1].OutputPath)) != "paper_plots" {
		t.Errorf("unexpected output locations: %s %s", res.Thresholds[0].OutputPath, res.Thresholds[1].OutputPath)
	}
}

func TestRunner_Summary(t *testing.T) {
	cfg, _ := testRun(t, "2")
	cfg.Summary.Enabled = true
	cfg.Figure.WidthIn, cfg.Figure.HeightIn = 8, 6

	res, err := NewRunner(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := SummaryPath(cfg.Summary, cfg.Ensemble)
	if res.SummaryPath != want {
		t.Fatalf("summary path %q, want %q", res.SummaryPath, want)
	}
	readPDF(t, want)
	if len(res.Thresholds[0].Preview) == 0 {
		t.Fatal("summary run did not keep a figure preview")
	}
	if res.Observations.ValidTemperature == 0 {
		t.Fatalf("observation summary empty: %+v", res.Observations)
	}
}

func TestRunner_Idempotent(t *testing.T) {
	cfg, _ := testRun(t, "2")
	r := NewRunner(cfg, nil)
	a, err := r.Generate(2)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := r.Generate(2)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if a.Constraint != b.Constraint || a.Band != b.Band || len(a.Markers) != len(b.Markers) {
		t.Fatalf("runs differ:\n%+v\n%+v", a, b)
	}
}

func TestRunner_MissingInput(t *testing.T) {
	cfg, fixtures := testRun(t, "2")
	files := parser.NewThresholdFiles(cfg.DataDir, fixtures["2"].Ensemble, "2")
	if err := os.Remove(files.DXObs); err != nil {
		t.Fatal(err)
	}

	_, err := NewRunner(cfg, nil).Run()
	if err == nil {
		t.Fatal("expected error for a missing input")
	}
	if _, statErr := os.Stat(OutputPath(cfg.Outputs, 2)); !os.IsNotExist(statErr) {
		t.Fatalf("figure written despite missing input: %v", statErr)
	}
}

func TestRunner_MissingObservations(t *testing.T) {
	cfg, _ := testRun(t, "2")
	cfg.VariablesDir = filepath.Join(t.TempDir(), "nowhere")
	if _, err := NewRunner(cfg, nil).Run(); err == nil {
		t.Fatal("expected error for missing observations")
	}
}

func TestRunner_DegenerateEnsemble(t *testing.T) {
	cfg, fixtures := testRun(t, "2")
	f := fixtures["2"]
	for i := range f.CombinedX {
		f.CombinedX[i] = -400
	}
	f.Write(t, cfg.DataDir)

	_, err := NewRunner(cfg, nil).Generate(2)
	if !errors.Is(err, analysis.ErrDegenerateFit) {
		t.Fatalf("want ErrDegenerateFit, got %v", err)
	}
}
