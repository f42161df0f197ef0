package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// markerGlyph draws the matplotlib marker set used for the ensemble members.
// Filled shapes get an outline of Width in the fill colour, as matplotlib's
// edge width does; the line shapes ("1", "x", "+") are stroked with it.
type markerGlyph struct {
	Code  string
	Width vg.Length
}

// newMarkerGlyph returns the glyph for a matplotlib marker code.
func newMarkerGlyph(code string, width vg.Length) (markerGlyph, error) {
	switch code {
	case "o", "^", "v", "1", "s", "*", "x", "+", "d":
		return markerGlyph{Code: code, Width: width}, nil
	}
	return markerGlyph{}, fmt.Errorf("unsupported marker %q", code)
}

// DrawGlyph implements draw.GlyphDrawer.
func (g markerGlyph) DrawGlyph(c *draw.Canvas, sty draw.GlyphStyle, pt vg.Point) {
	r := sty.Radius
	switch g.Code {
	case "o":
		var p vg.Path
		p.Move(vg.Point{X: pt.X + r, Y: pt.Y})
		p.Arc(pt, r, 0, 2*math.Pi)
		p.Close()
		g.fill(c, sty.Color, p)
	case "^":
		g.fill(c, sty.Color, polygonPath(regularPolygon(pt, r, 3, math.Pi/2)))
	case "v":
		g.fill(c, sty.Color, polygonPath(regularPolygon(pt, r, 3, -math.Pi/2)))
	case "s":
		g.fill(c, sty.Color, polygonPath(regularPolygon(pt, r, 4, math.Pi/4)))
	case "d":
		g.fill(c, sty.Color, polygonPath([]vg.Point{
			{X: pt.X, Y: pt.Y + r},
			{X: pt.X + 0.6*r, Y: pt.Y},
			{X: pt.X, Y: pt.Y - r},
			{X: pt.X - 0.6*r, Y: pt.Y},
		}))
	case "*":
		g.fill(c, sty.Color, polygonPath(star(pt, r, 0.38*r, 5)))
	case "1":
		ls := g.lineStyle(sty.Color)
		for _, v := range regularPolygon(pt, r, 3, -math.Pi/2) {
			c.StrokeLine2(ls, pt.X, pt.Y, v.X, v.Y)
		}
	case "x":
		ls := g.lineStyle(sty.Color)
		d := r * math.Sqrt2 / 2
		c.StrokeLine2(ls, pt.X-d, pt.Y-d, pt.X+d, pt.Y+d)
		c.StrokeLine2(ls, pt.X-d, pt.Y+d, pt.X+d, pt.Y-d)
	case "+":
		ls := g.lineStyle(sty.Color)
		c.StrokeLine2(ls, pt.X-r, pt.Y, pt.X+r, pt.Y)
		c.StrokeLine2(ls, pt.X, pt.Y-r, pt.X, pt.Y+r)
	}
}

// fill paints p and, when Width is set, strokes its outline in the same
// colour.
func (g markerGlyph) fill(c *draw.Canvas, clr color.Color, p vg.Path) {
	c.SetColor(clr)
	c.Fill(p)
	if g.Width > 0 {
		c.SetLineStyle(draw.LineStyle{Color: clr, Width: g.Width})
		c.Stroke(p)
	}
}

func polygonPath(pts []vg.Point) vg.Path {
	p := make(vg.Path, 0, len(pts)+1)
	p.Move(pts[0])
	for _, pt := range pts[1:] {
		p.Line(pt)
	}
	p.Close()
	return p
}

func (g markerGlyph) lineStyle(clr color.Color) draw.LineStyle {
	w := g.Width
	if w <= 0 {
		w = vg.Points(1)
	}
	return draw.LineStyle{Color: clr, Width: w}
}

// regularPolygon returns the n vertices of a polygon of circumradius r
// centred on pt, the first vertex at angle start.
func regularPolygon(pt vg.Point, r vg.Length, n int, start float64) []vg.Point {
	pts := make([]vg.Point, n)
	for i := range pts {
		a := start + 2*math.Pi*float64(i)/float64(n)
		pts[i] = vg.Point{X: pt.X + r*vg.Length(math.Cos(a)), Y: pt.Y + r*vg.Length(math.Sin(a))}
	}
	return pts
}

func star(pt vg.Point, outer, inner vg.Length, points int) []vg.Point {
	pts := make([]vg.Point, 0, 2*points)
	for i := 0; i < 2*points; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		a := math.Pi/2 + math.Pi*float64(i)/float64(points)
		pts = append(pts, vg.Point{X: pt.X + r*vg.Length(math.Cos(a)), Y: pt.Y + r*vg.Length(math.Sin(a))})
	}
	return pts
}

// glyphThumb shows a single glyph in a legend entry.
type glyphThumb struct {
	Style draw.GlyphStyle
}

func (g glyphThumb) Thumbnail(c *draw.Canvas) {
	pt := vg.Point{X: (c.Min.X + c.Max.X) / 2, Y: (c.Min.Y + c.Max.Y) / 2}
	c.DrawGlyph(g.Style, pt)
}

// swatch fills a legend entry with a solid colour.
type swatch struct {
	Color color.Color
}

func (s swatch) Thumbnail(c *draw.Canvas) {
	c.FillPolygon(s.Color, []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Max.X, Y: c.Min.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Min.X, Y: c.Max.Y},
	})
}
