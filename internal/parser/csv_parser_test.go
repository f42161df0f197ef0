package parser_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/ec_plotter_go/internal/parser"
	"github.com/user/ec_plotter_go/internal/parser/parsertest"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestReadNumericCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.csv")
	writeFile(t, path, "# header comment\n1.0, 2.5,nan\n\n-3e2,inf,4\n")

	rows, err := parser.ReadNumericCSV(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 2 || len(rows[0]) != 3 {
		t.Fatalf("unexpected dims: %v", rows)
	}
	if rows[0][1] != 2.5 || !math.IsNaN(rows[0][2]) || rows[1][0] != -300 || !math.IsInf(rows[1][1], 1) {
		t.Fatalf("unexpected values: %v", rows)
	}
}

func TestReadNumericCSV_Errors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"ragged":  "1,2,3\n4,5\n",
		"garbage": "1,two,3\n",
		"empty":   "\n\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".csv")
			writeFile(t, path, content)
			if _, err := parser.ReadNumericCSV(path); err == nil {
				t.Fatalf("expected error for %q", content)
			}
		})
	}
	if _, err := parser.ReadNumericCSV(filepath.Join(dir, "missing.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReadTable_ShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.csv")
	parsertest.WriteCSV(t, path, make([]float64, 12), 4)

	if _, err := parser.ReadTable(path, 3, 4); err != nil {
		t.Fatalf("3x4 should load: %v", err)
	}
	_, err := parser.ReadTable(path, 3, 9)
	var se *parser.ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
	if !strings.Contains(se.Error(), "(3, 9)") {
		t.Fatalf("error should name expected shape: %v", se)
	}
}

func TestReadScalar(t *testing.T) {
	dir := t.TempDir()
	one := filepath.Join(dir, "one.csv")
	writeFile(t, one, "-3.105000000000000000e+02\n")
	v, err := parser.ReadScalar(one)
	if err != nil || v != -310.5 {
		t.Fatalf("scalar: %v %v", v, err)
	}
	two := filepath.Join(dir, "two.csv")
	writeFile(t, two, "1\n2\n")
	if _, err := parser.ReadScalar(two); err == nil {
		t.Fatal("expected error for two values")
	}
}

func TestNewThresholdFiles_Names(t *testing.T) {
	f := parser.NewThresholdFiles("saved_data", "cmip5", "2")
	want := map[string]string{
		f.X:             "saved_data/x_2_degree_warming_cmip5.csv",
		f.Y:             "saved_data/y_2_degree_warming_cmip5.csv",
		f.ObsConstraint: "saved_data/obs_constraint_2_degree_warming_cmip5.csv",
		f.XFit:          "saved_data/EC_xfit_2degreewarming_cmip5.csv",
		f.YFit:          "saved_data/EC_yfit_2degreewarming_cmip5.csv",
		f.CombinedX:     "saved_data/combined_x_2_degree_warming_cmip5.csv",
		f.CombinedY:     "saved_data/combined_y_2_degree_warming_cmip5.csv",
		f.XObs:          "saved_data/x_obs_2_degree_warming_cmip5.csv",
		f.DXObs:         "saved_data/dx_obs_2_degree_warming_cmip5.csv",
	}
	for got, exp := range want {
		if got != filepath.FromSlash(exp) {
			t.Fatalf("got %s want %s", got, exp)
		}
	}
}

func TestLoadThresholdInputs(t *testing.T) {
	dir := t.TempDir()
	fx := parsertest.NewFixture("2", 3, 9)
	fx.X[4] = math.NaN()
	fx.Write(t, dir)

	in, err := parser.LoadThresholdInputs(dir, "cmip5", 2, 3, 9)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	r, c := in.X.Dims()
	if r != 3 || c != 9 {
		t.Fatalf("x dims %dx%d", r, c)
	}
	if !math.IsNaN(in.X.At(0, 4)) {
		t.Fatalf("NaN not preserved: %v", in.X.At(0, 4))
	}
	if in.Y.At(2, 8) != fx.Y[26] {
		t.Fatalf("row-major layout broken: %v vs %v", in.Y.At(2, 8), fx.Y[26])
	}
	if len(in.ObsConstraint) != 27 || len(in.Fit.X) != 11 || len(in.CombinedX) != 27 {
		t.Fatalf("unexpected lengths: obs=%d fit=%d comb=%d", len(in.ObsConstraint), len(in.Fit.X), len(in.CombinedX))
	}
	if in.XObs != -310 || in.DXObs != 25 {
		t.Fatalf("scalars: %v %v", in.XObs, in.DXObs)
	}
	if len(in.Files) != 9 {
		t.Fatalf("expected 9 files recorded, got %d", len(in.Files))
	}
}

func TestLoadThresholdInputs_FractionalThreshold(t *testing.T) {
	dir := t.TempDir()
	parsertest.NewFixture("0.5", 3, 9).Write(t, dir)
	if _, err := parser.LoadThresholdInputs(dir, "cmip5", 0.5, 3, 9); err != nil {
		t.Fatalf("load 0.5: %v", err)
	}
}

func TestLoadThresholdInputs_Fatal(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		dir := t.TempDir()
		files := parsertest.NewFixture("2", 3, 9).Write(t, dir)
		if err := os.Remove(files.DXObs); err != nil {
			t.Fatal(err)
		}
		if _, err := parser.LoadThresholdInputs(dir, "cmip5", 2, 3, 9); err == nil {
			t.Fatal("expected error for missing dx_obs")
		}
	})
	t.Run("wrong model count", func(t *testing.T) {
		dir := t.TempDir()
		parsertest.NewFixture("2", 3, 9).Write(t, dir)
		_, err := parser.LoadThresholdInputs(dir, "cmip5", 2, 3, 8)
		var se *parser.ShapeError
		if !errors.As(err, &se) {
			t.Fatalf("expected ShapeError, got %v", err)
		}
	})
	t.Run("short constraint sample", func(t *testing.T) {
		dir := t.TempDir()
		fx := parsertest.NewFixture("2", 3, 9)
		fx.Obs = fx.Obs[:20]
		fx.Write(t, dir)
		_, err := parser.LoadThresholdInputs(dir, "cmip5", 2, 3, 9)
		var se *parser.ShapeError
		if !errors.As(err, &se) {
			t.Fatalf("expected ShapeError, got %v", err)
		}
	})
	t.Run("fit length mismatch", func(t *testing.T) {
		dir := t.TempDir()
		fx := parsertest.NewFixture("2", 3, 9)
		fx.YFit = fx.YFit[:3]
		fx.Write(t, dir)
		if _, err := parser.LoadThresholdInputs(dir, "cmip5", 2, 3, 9); err == nil {
			t.Fatal("expected fit mismatch error")
		}
	})
}
