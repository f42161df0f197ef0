package parser_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/user/ec_plotter_go/internal/parser"
	"github.com/user/ec_plotter_go/internal/parser/parsertest"
)

func TestLoadObservations(t *testing.T) {
	dir := t.TempDir()
	parsertest.WriteObservations(t, dir, 70)

	obs, err := parser.LoadObservations(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(obs.PolyCoeffs) != 3 || obs.PolyCoeffs[0] != 0.002 {
		t.Fatalf("poly: %v", obs.PolyCoeffs)
	}
	if len(obs.Temperature.Data) != 70 || len(obs.Temperature.Mask) != 70 {
		t.Fatalf("temperature lengths: %d %d", len(obs.Temperature.Data), len(obs.Temperature.Mask))
	}
	// every 7th cell is masked
	if got := len(obs.Temperature.Valid()); got != 60 {
		t.Fatalf("expected 60 unmasked cells, got %d", got)
	}
	if obs.Respiration.Name != "rh" {
		t.Fatalf("unexpected field name %q", obs.Respiration.Name)
	}
}

func TestReadMaskedField_ShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "d.npy")
	mask := filepath.Join(dir, "m.npy")
	parsertest.WriteNpy(t, data, []float64{1, 2, 3, 4})
	parsertest.WriteNpy(t, mask, []bool{false, true, false})

	_, err := parser.ReadMaskedField("t", data, mask)
	var se *parser.ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
}

func TestLoadObservations_Missing(t *testing.T) {
	if _, err := parser.LoadObservations(t.TempDir()); err == nil {
		t.Fatal("expected error for empty variables dir")
	}
}
