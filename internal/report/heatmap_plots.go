package report

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/user/ec_plotter_go/internal/analysis"
	"github.com/user/ec_plotter_go/internal/parser"
)

var maskedCellColor = color.Gray{Y: 200}

// fieldGrid exposes a masked field as a plotter.GridXYZ. The last dimension
// of the field runs along x; all leading dimensions are stacked along y.
// Masked and non-finite cells read as NaN.
type fieldGrid struct {
	field      parser.MaskedField
	cols, rows int
}

func newFieldGrid(f parser.MaskedField) (*fieldGrid, error) {
	if len(f.Data) == 0 {
		return nil, fmt.Errorf("field %s is empty", f.Name)
	}
	if len(f.Mask) != len(f.Data) {
		return nil, fmt.Errorf("field %s: mask has %d cells for %d values", f.Name, len(f.Mask), len(f.Data))
	}
	cols := len(f.Data)
	if n := len(f.Shape); n > 0 && f.Shape[n-1] > 0 {
		cols = f.Shape[n-1]
	}
	if len(f.Data)%cols != 0 {
		return nil, fmt.Errorf("field %s: %d values do not fill rows of %d", f.Name, len(f.Data), cols)
	}
	return &fieldGrid{field: f, cols: cols, rows: len(f.Data) / cols}, nil
}

func (g *fieldGrid) Dims() (c, r int) { return g.cols, g.rows }

func (g *fieldGrid) Z(c, r int) float64 {
	i := r*g.cols + c
	if g.field.Mask[i] {
		return math.NaN()
	}
	v := g.field.Data[i]
	if math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

func (g *fieldGrid) X(c int) float64 { return float64(c) }
func (g *fieldGrid) Y(r int) float64 { return float64(r) }

// CreateFieldHeatmap renders an observational field with masked cells in grey
// and returns the PNG bytes.
func CreateFieldHeatmap(f parser.MaskedField, plotTitle string) ([]byte, error) {
	grid, err := newFieldGrid(f)
	if err != nil {
		return nil, err
	}
	valid := analysis.FiniteValues(f.Valid())
	if len(valid) == 0 {
		return nil, fmt.Errorf("field %s has no unmasked data", f.Name)
	}

	hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	hm.Min, hm.Max = floats.Min(valid), floats.Max(valid)
	if hm.Min == hm.Max {
		hm.Max = hm.Min + 1
	}
	hm.NaN = maskedCellColor

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%.3g to %.3g, %d of %d cells)", plotTitle, floats.Min(valid), floats.Max(valid), len(valid), len(f.Data))
	p.X.Label.Text = "Column"
	p.Y.Label.Text = "Row"
	p.Add(hm)
	p.X.Min, p.X.Max = -0.5, float64(grid.cols)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(grid.rows)-0.5

	writer, err := p.WriterTo(vg.Points(1000), vg.Points(500), "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create heatmap writer: %v", err)
	}
	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write heatmap to buffer: %v", err)
	}
	return buf.Bytes(), nil
}
