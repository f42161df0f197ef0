package report

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/user/ec_plotter_go/internal/analysis"
)

const densityPoints = 400

// CreateDensityPlot draws the unconstrained ensemble distribution of y next
// to the emergent constraint distribution and returns the PNG bytes.
func CreateDensityPlot(ec analysis.EmergentConstraint, title string) ([]byte, error) {
	if ec.N == 0 {
		return nil, fmt.Errorf("no emergent constraint to plot")
	}

	lo, hi := densityRange(ec)
	ys := floats.Span(make([]float64, densityPoints), lo, hi)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "ΔCs,τ (PgC)"
	p.Y.Label.Text = "Probability density"
	p.X.Min, p.X.Max = lo, hi
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	curves := []struct {
		label string
		clr   color.Color
		dash  []vg.Length
		pdf   func(analysis.EmergentConstraint, []float64) ([]float64, error)
	}{
		{"Model ensemble", color.RGBA{R: 128, G: 128, B: 128, A: 255}, []vg.Length{vg.Points(5), vg.Points(5)}, analysis.PriorPDF},
		{"Emergent constraint", ecLineColor, nil, analysis.ConstraintPDF},
	}
	plotted := 0
	for _, c := range curves {
		dens, err := c.pdf(ec, ys)
		if err != nil {
			// a zero-width distribution has no curve to draw
			continue
		}
		pts := make(plotter.XYs, len(ys))
		for i := range ys {
			pts[i] = plotter.XY{X: ys[i], Y: dens[i]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s line: %v", c.label, err)
		}
		line.Color = c.clr
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Dashes = c.dash
		p.Add(line)
		p.Legend.Add(c.label, line)
		plotted++
	}
	if plotted == 0 {
		return nil, fmt.Errorf("no density with non-zero spread to plot")
	}

	p.Legend.Top = true
	p.Legend.XOffs = -vg.Points(10)

	writer, err := p.WriterTo(vg.Points(800), vg.Points(400), "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %v", err)
	}
	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write plot to buffer: %v", err)
	}
	return buf.Bytes(), nil
}

// densityRange covers four standard deviations of both distributions.
func densityRange(ec analysis.EmergentConstraint) (lo, hi float64) {
	lo = math.Min(ec.Mean-4*ec.Std, ec.PriorMean-4*ec.PriorStd)
	hi = math.Max(ec.Mean+4*ec.Std, ec.PriorMean+4*ec.PriorStd)
	if hi <= lo {
		lo, hi = ec.Mean-1, ec.Mean+1
	}
	return lo, hi
}
