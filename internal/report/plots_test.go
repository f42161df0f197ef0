package report

import (
	"bytes"
	"math"
	"testing"

	"github.com/user/ec_plotter_go/internal/analysis"
	"github.com/user/ec_plotter_go/internal/parser"
)

var pngMagic = []byte("\x89PNG")

func TestFieldGrid(t *testing.T) {
	f := parser.MaskedField{
		Name:  "temperature",
		Shape: []int{2, 3},
		Data:  []float64{1, 2, 3, 4, math.Inf(1), 6},
		Mask:  []bool{false, true, false, false, false, false},
	}
	g, err := newFieldGrid(f)
	if err != nil {
		t.Fatalf("newFieldGrid: %v", err)
	}
	if c, r := g.Dims(); c != 3 || r != 2 {
		t.Fatalf("dims %dx%d", c, r)
	}
	if g.Z(0, 0) != 1 || g.Z(2, 1) != 6 {
		t.Fatalf("row-major lookup broken: %v %v", g.Z(0, 0), g.Z(2, 1))
	}
	if !math.IsNaN(g.Z(1, 0)) {
		t.Fatal("masked cell should read as NaN")
	}
	if !math.IsNaN(g.Z(1, 1)) {
		t.Fatal("infinite cell should read as NaN")
	}

	f.Shape = []int{4}
	if _, err := newFieldGrid(f); err == nil {
		t.Fatal("expected error when rows do not divide the data")
	}
}

func TestCreateFieldHeatmap(t *testing.T) {
	f := parser.MaskedField{
		Name:  "rh",
		Shape: []int{3, 4},
		Data:  []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.1, 1.2},
		Mask:  make([]bool, 12),
	}
	f.Mask[5] = true
	img, err := CreateFieldHeatmap(f, "Observed rh")
	if err != nil {
		t.Fatalf("CreateFieldHeatmap: %v", err)
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Fatal("heatmap is not a PNG")
	}

	for i := range f.Mask {
		f.Mask[i] = true
	}
	if _, err := CreateFieldHeatmap(f, "Observed rh"); err == nil {
		t.Fatal("expected error for a fully masked field")
	}
}

func TestCreateDensityPlot(t *testing.T) {
	x := []float64{-600, -500, -400, -300, -200, -150}
	y := []float64{-560, -440, -375, -260, -195, -120}
	ec, err := analysis.ReduceEmergentConstraint(x, y, -350, 20)
	if err != nil {
		t.Fatal(err)
	}
	img, err := CreateDensityPlot(ec, "density")
	if err != nil {
		t.Fatalf("CreateDensityPlot: %v", err)
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Fatal("density plot is not a PNG")
	}

	if _, err := CreateDensityPlot(analysis.EmergentConstraint{}, "empty"); err == nil {
		t.Fatal("expected error for an empty constraint")
	}
}
