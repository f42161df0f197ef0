package report

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/user/ec_plotter_go/internal/analysis"
	"github.com/user/ec_plotter_go/internal/config"
	"github.com/user/ec_plotter_go/internal/logging"
	"github.com/user/ec_plotter_go/internal/parser"
)

var (
	obsLineColor   = mustColor("darkgreen")
	obsBandColor   = mustColor("lightgreen")
	ecLineColor    = mustColor("b")
	ecBandColor    = mustColor("lightblue")
	oneToOneColor  = mustColor("darkgrey")
	legendInkColor = mustColor("k")
)

func mustColor(name string) color.NRGBA {
	c, err := config.ParseColor(name)
	if err != nil {
		panic(err)
	}
	return c
}

// ErrFigureClosed is returned by drawing calls on a closed Figure.
var ErrFigureClosed = errors.New("figure is closed")

// Marker is one ensemble member's point on the scatter figure.
type Marker struct {
	Scenario      string
	ScenarioIndex int
	Model         string
	ModelIndex    int
	X, Y          float64
	Color         color.NRGBA
	Shape         string // matplotlib marker code of the model
}

// BuildMarkers returns a marker for every (scenario, model) pair whose x and
// y are both finite. x and y are [scenarios x models].
func BuildMarkers(cfg config.Config, x, y mat.Matrix, log *logging.Logger) ([]Marker, error) {
	xr, xc := x.Dims()
	yr, yc := y.Dims()
	if xr != len(cfg.Scenarios) || xc != len(cfg.Models) || yr != xr || yc != xc {
		return nil, fmt.Errorf("result tables are %dx%d and %dx%d, expected %dx%d",
			xr, xc, yr, yc, len(cfg.Scenarios), len(cfg.Models))
	}

	var markers []Marker
	for si, sc := range cfg.Scenarios {
		clr, err := config.ParseColor(sc.Color)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		for mi, m := range cfg.Models {
			log.Debugf("%s %s", sc.Name, m.Name)
			xv, yv := x.At(si, mi), y.At(si, mi)
			if math.IsNaN(xv) || math.IsNaN(yv) || math.IsInf(xv, 0) || math.IsInf(yv, 0) {
				continue
			}
			markers = append(markers, Marker{
				Scenario:      sc.Name,
				ScenarioIndex: si,
				Model:         m.Name,
				ModelIndex:    mi,
				X:             xv,
				Y:             yv,
				Color:         clr,
				Shape:         m.Marker,
			})
		}
	}
	return markers, nil
}

// Figure composes the emergent constraint figure for a single threshold. It
// owns its plot; Close releases it and any later call fails.
type Figure struct {
	cfg   config.Config
	p     *plot.Plot
	spans []plot.Plotter // drawn last, above markers and lines

	modelLegend    plot.Legend
	scenarioLegend plot.Legend
	markers        int
}

// NewFigure returns an empty figure with the configured axes and legends.
func NewFigure(cfg config.Config) *Figure {
	fontSize := vg.Points(cfg.Figure.FontSize)

	p := plot.New()
	p.X.Label.Text = cfg.Figure.XLabel
	p.Y.Label.Text = cfg.Figure.YLabel
	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		ax.Label.TextStyle.Font.Size = fontSize
		ax.Tick.Label.Font.Size = fontSize
		ax.Tick.Length = vg.Points(8)
		ax.LineStyle.Width = vg.Points(1.5)
	}

	f := &Figure{
		cfg:            cfg,
		p:              p,
		modelLegend:    newLegend(fontSize, true),
		scenarioLegend: newLegend(fontSize, false),
	}
	return f
}

func newLegend(fontSize vg.Length, left bool) plot.Legend {
	l := plot.NewLegend()
	l.TextStyle.Font.Size = fontSize
	l.Top = false
	l.Left = left
	l.Padding = vg.Points(4)
	l.ThumbnailWidth = vg.Points(40)
	pad := vg.Points(12)
	if left {
		l.XOffs = pad
	} else {
		l.XOffs = -pad
	}
	l.YOffs = pad
	return l
}

func (f *Figure) alpha(c color.NRGBA) color.NRGBA {
	c.A = uint8(math.Round(255 * f.cfg.Figure.BandAlpha))
	return c
}

func (f *Figure) lineWidth() vg.Length { return vg.Points(f.cfg.Figure.LineWidth) }

// AddMarkers plots the ensemble points and fills both legends with the model
// and scenario entries.
func (f *Figure) AddMarkers(markers []Marker) error {
	if f.p == nil {
		return ErrFigureClosed
	}
	radius := vg.Points(f.cfg.Figure.MarkerSize / 2)
	width := vg.Points(f.cfg.Figure.MarkerEdgeWidth)

	for _, m := range markers {
		g, err := newMarkerGlyph(m.Shape, width)
		if err != nil {
			return fmt.Errorf("model %s: %w", m.Model, err)
		}
		s, err := plotter.NewScatter(plotter.XYs{{X: m.X, Y: m.Y}})
		if err != nil {
			return fmt.Errorf("marker %s/%s: %w", m.Scenario, m.Model, err)
		}
		s.GlyphStyle = draw.GlyphStyle{Color: m.Color, Radius: radius, Shape: g}
		f.p.Add(s)
	}
	f.markers += len(markers)

	for _, m := range f.cfg.Models {
		g, err := newMarkerGlyph(m.Marker, width)
		if err != nil {
			return fmt.Errorf("model %s: %w", m.Name, err)
		}
		f.modelLegend.Add(m.Name, glyphThumb{Style: draw.GlyphStyle{Color: legendInkColor, Radius: radius, Shape: g}})
	}
	for _, sc := range f.cfg.Scenarios {
		clr, err := config.ParseColor(sc.Color)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		f.scenarioLegend.Add(sc.Label, swatch{Color: clr})
	}
	return nil
}

// AddObservationalConstraint draws the line at x_obs and the ±1 standard
// deviation band around it across the full y range.
func (f *Figure) AddObservationalConstraint(band analysis.ObservationalBand) error {
	if f.p == nil {
		return ErrFigureClosed
	}
	ax := f.cfg.Axis
	line, err := plotter.NewLine(plotter.XYs{{X: band.Mean, Y: ax.Min}, {X: band.Mean, Y: ax.Max}})
	if err != nil {
		return fmt.Errorf("observational line: %w", err)
	}
	line.Color = obsLineColor
	line.Width = f.lineWidth()
	f.p.Add(line)

	span, err := rectangle(band.Lower(), band.Upper(), ax.Min, ax.Max)
	if err != nil {
		return fmt.Errorf("observational band: %w", err)
	}
	span.Color = f.alpha(obsBandColor)
	f.spans = append(f.spans, span)
	f.modelLegend.Add("Observational Constraint", swatch{Color: span.Color})
	return nil
}

// AddEmergentConstraint draws the emergent constraint estimate as a line and
// a horizontal band. Both stop at the left edge of the observational band.
func (f *Figure) AddEmergentConstraint(ec analysis.EmergentConstraint, band analysis.ObservationalBand) error {
	if f.p == nil {
		return ErrFigureClosed
	}
	left, right := f.cfg.Axis.Min, band.Lower()
	bandColor := f.alpha(ecBandColor)
	f.modelLegend.Add("Emergent Constraint", swatch{Color: bandColor})
	if right <= left {
		return nil
	}

	line, err := plotter.NewLine(plotter.XYs{{X: left, Y: ec.Mean}, {X: right, Y: ec.Mean}})
	if err != nil {
		return fmt.Errorf("emergent constraint line: %w", err)
	}
	line.Color = ecLineColor
	line.Width = f.lineWidth()
	f.p.Add(line)

	if ec.Upper > ec.Lower {
		span, err := rectangle(left, right, ec.Lower, ec.Upper)
		if err != nil {
			return fmt.Errorf("emergent constraint band: %w", err)
		}
		span.Color = bandColor
		f.spans = append(f.spans, span)
	}
	return nil
}

// AddFitCurve draws the precomputed regression line. Points with an undefined
// coordinate are skipped.
func (f *Figure) AddFitCurve(fit parser.FitCurve) error {
	if f.p == nil {
		return ErrFigureClosed
	}
	pts := make(plotter.XYs, 0, len(fit.X))
	for i := range fit.X {
		if i < len(fit.Y) && !math.IsNaN(fit.X[i]) && !math.IsNaN(fit.Y[i]) {
			pts = append(pts, plotter.XY{X: fit.X[i], Y: fit.Y[i]})
		}
	}
	if len(pts) < 2 {
		return nil
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("fit curve: %w", err)
	}
	line.Color = legendInkColor
	line.Width = f.lineWidth()
	f.p.Add(line)
	return nil
}

// AddOneToOne draws the y = x reference diagonal across the axes.
func (f *Figure) AddOneToOne() error {
	if f.p == nil {
		return ErrFigureClosed
	}
	ax := f.cfg.Axis
	line, err := plotter.NewLine(plotter.XYs{{X: ax.Min, Y: ax.Min}, {X: ax.Max, Y: ax.Max}})
	if err != nil {
		return fmt.Errorf("one-to-one line: %w", err)
	}
	line.Color = oneToOneColor
	line.Width = vg.Points(0.25)
	f.p.Add(line)
	return nil
}

// Markers is the number of ensemble points on the figure.
func (f *Figure) Markers() int { return f.markers }

// WriteTo renders the figure in the given format ("pdf", "png", "svg", ...).
func (f *Figure) WriteTo(w io.Writer, format string) (int64, error) {
	if f.p == nil {
		return 0, ErrFigureClosed
	}
	for _, s := range f.spans {
		f.p.Add(s)
	}
	f.spans = nil
	ax := f.cfg.Axis
	f.p.X.Min, f.p.X.Max = ax.Min, ax.Max
	f.p.Y.Min, f.p.Y.Max = ax.Min, ax.Max

	width := vg.Length(f.cfg.Figure.WidthIn) * vg.Inch
	height := vg.Length(f.cfg.Figure.HeightIn) * vg.Inch
	c, err := draw.NewFormattedCanvas(width, height, format)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s canvas: %w", format, err)
	}
	dc := draw.New(c)
	f.p.Draw(dc)

	da := f.p.DataCanvas(dc)
	f.placeLegends(da)
	f.modelLegend.Draw(da)
	f.scenarioLegend.Draw(da)

	return c.WriteTo(w)
}

// placeLegends moves the scenario legend to the top right corner if it would
// collide with the model legend at the bottom.
func (f *Figure) placeLegends(da draw.Canvas) {
	if f.scenarioLegend.Top {
		return
	}
	if overlaps(legendBounds(&f.modelLegend, da), legendBounds(&f.scenarioLegend, da)) {
		f.scenarioLegend.Top = true
		f.scenarioLegend.YOffs = -f.scenarioLegend.YOffs
	}
}

// legendBounds is the area l covers when drawn on c. Legend.Rectangle only
// gives the size: it anchors Left legends on the right edge and ignores the
// offsets, so the position is derived here the way Legend.Draw places it.
func legendBounds(l *plot.Legend, c draw.Canvas) vg.Rectangle {
	size := l.Rectangle(c).Size()
	var r vg.Rectangle
	if l.Left {
		r.Min.X = c.Min.X + l.XOffs
		r.Max.X = r.Min.X + size.X
	} else {
		r.Max.X = c.Max.X + l.XOffs
		r.Min.X = r.Max.X - size.X
	}
	if l.Top {
		r.Max.Y = c.Max.Y - l.TextStyle.FontExtents().Descent + l.YOffs
		r.Min.Y = r.Max.Y - size.Y
	} else {
		r.Min.Y = c.Min.Y + l.YOffs
		r.Max.Y = r.Min.Y + size.Y
	}
	return r
}

func overlaps(a, b vg.Rectangle) bool {
	return a.Max.X > b.Min.X && a.Min.X < b.Max.X && a.Max.Y > b.Min.Y && a.Min.Y < b.Max.Y
}

// Encode renders the figure into memory.
func (f *Figure) Encode(format string) ([]byte, error) {
	buf := new(bytes.Buffer)
	if _, err := f.WriteTo(buf, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the figure to path, creating parent directories. The format
// follows the file extension.
func (f *Figure) Save(path string) error {
	if f.p == nil {
		return ErrFigureClosed
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		return fmt.Errorf("output path %s has no extension", path)
	}
	data, err := f.Encode(format)
	if err != nil {
		return err
	}
	if err := ensureParent(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write figure: %w", err)
	}
	return nil
}

// Close releases the plot. It is safe to call more than once.
func (f *Figure) Close() {
	f.p = nil
	f.spans = nil
	f.modelLegend = plot.Legend{}
	f.scenarioLegend = plot.Legend{}
}

func rectangle(x0, x1, y0, y1 float64) (*plotter.Polygon, error) {
	poly, err := plotter.NewPolygon(plotter.XYs{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
	})
	if err != nil {
		return nil, err
	}
	poly.LineStyle.Width = 0
	return poly, nil
}
