package report

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/user/ec_plotter_go/internal/config"
)

const (
	inchToMm               = 25.4
	pdfPageWidthLandscape  = 11 * inchToMm // Letter landscape
	pdfPageHeightLandscape = 8.5 * inchToMm
	pdfMargin              = 0.5 * inchToMm
	pdfContentWidth        = pdfPageWidthLandscape - (2 * pdfMargin)
)

// pdfStyler holds reusable styling and state for PDF generation
type pdfStyler struct {
	pdf         *gofpdf.Fpdf
	styles      map[string]func() // style name to function that sets font, colour etc.
	lineHeight  float64
	currentY    float64 // manually tracked Y position for flowing content
	pageHeight  float64
	contentTopY float64 // top Y after margin
}

func newPDFStyler(pdf *gofpdf.Fpdf) *pdfStyler {
	s := &pdfStyler{
		pdf:         pdf,
		styles:      make(map[string]func()),
		lineHeight:  6, // mm
		pageHeight:  pdfPageHeightLandscape - pdfMargin,
		contentTopY: pdfMargin,
	}
	s.currentY = s.contentTopY
	s.defineStyles()
	return s
}

func (s *pdfStyler) defineStyles() {
	s.styles["h1"] = func() {
		s.pdf.SetFont("Arial", "B", 16)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["h2"] = func() {
		s.pdf.SetFont("Arial", "B", 14)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["normal"] = func() {
		s.pdf.SetFont("Arial", "", 10)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableHeader"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetFillColor(200, 200, 200)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableCell"] = func() {
		s.pdf.SetFont("Arial", "", 9)
		s.pdf.SetTextColor(50, 50, 50)
	}
	s.styles["tableCellBlue"] = func() { // constrained estimate columns
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetTextColor(0, 0, 170)
	}
}

func (s *pdfStyler) applyStyle(styleName string) {
	if fn, ok := s.styles[styleName]; ok {
		fn()
	} else {
		s.styles["normal"]()
	}
}

func (s *pdfStyler) checkAddPage(neededHeight float64) {
	if s.currentY+neededHeight > s.pageHeight {
		s.newPage()
	}
}

func (s *pdfStyler) newPage() {
	s.pdf.AddPage()
	s.currentY = s.contentTopY
}

func (s *pdfStyler) writeParagraph(text string, styleName string, align string) {
	s.applyStyle(styleName)
	lines := s.pdf.SplitLines([]byte(text), pdfContentWidth)
	s.checkAddPage(math.Max(1, float64(len(lines))) * s.lineHeight)

	s.pdf.SetXY(pdfMargin, s.currentY)
	s.pdf.MultiCell(pdfContentWidth, s.lineHeight, text, "", align, false)
	s.currentY = s.pdf.GetY() + 1
}

func (s *pdfStyler) addSpacer(height float64) {
	s.checkAddPage(height)
	s.currentY += height
}

func (s *pdfStyler) addImage(imageBytes []byte, imageName string, width float64, height float64, caption string, styleName string) {
	s.pdf.RegisterImageOptionsReader(imageName, gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}, bytes.NewReader(imageBytes))

	if width > pdfContentWidth {
		ratio := pdfContentWidth / width
		width = pdfContentWidth
		height *= ratio
	}

	captionHeight := 0.0
	if caption != "" {
		captionHeight = s.lineHeight + 1
	}
	s.checkAddPage(height + captionHeight)

	s.pdf.ImageOptions(imageName, pdfMargin+(pdfContentWidth-width)/2, s.currentY, width, height, false,
		gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	s.currentY += height

	if caption != "" {
		s.addSpacer(1)
		s.writeParagraph(caption, styleName, "C")
	}
	s.addSpacer(2)
}

// table writes a header row and the given rows, breaking pages as needed.
// Columns listed in highlight use the tableCellBlue style.
func (s *pdfStyler) table(headers []string, widthsRel []float64, rows [][]string, highlight map[int]bool) {
	widths := make([]float64, len(widthsRel))
	for i, rel := range widthsRel {
		widths[i] = rel * pdfContentWidth
	}
	header := func() {
		s.applyStyle("tableHeader")
		x := pdfMargin
		for i, h := range headers {
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(widths[i], s.lineHeight, h, "1", 0, "C", true, 0, "")
			x += widths[i]
		}
		s.currentY += s.lineHeight
	}

	s.checkAddPage(2 * s.lineHeight)
	header()
	for _, row := range rows {
		if s.currentY+s.lineHeight > s.pageHeight {
			s.newPage()
			header()
		}
		x := pdfMargin
		for i, cell := range row {
			if highlight[i] {
				s.applyStyle("tableCellBlue")
			} else {
				s.applyStyle("tableCell")
			}
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(widths[i], s.lineHeight, cell, "1", 0, "C", false, 0, "")
			x += widths[i]
		}
		s.currentY += s.lineHeight
	}
}

// BuildSummaryPDF writes the run summary sheet: a statistics table per
// threshold, the observational input summary, and the rendered plots found
// in plotImages.
func BuildSummaryPDF(path string, cfg config.Config, run *RunResult, plotImages map[string][]byte) error {
	if run == nil {
		return fmt.Errorf("no run results to summarize")
	}

	pdf := gofpdf.New("L", "mm", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetTitle(fmt.Sprintf("Emergent constraint summary (%s)", cfg.Ensemble), false)
	pdf.AddPage()

	styler := newPDFStyler(pdf)

	styler.writeParagraph(fmt.Sprintf("Emergent Constraint Summary (%s, %d models x %d scenarios)",
		strings.ToUpper(cfg.Ensemble), len(cfg.Models), len(cfg.Scenarios)), "h1", "C")
	styler.addSpacer(5)
	styler.writeParagraph(fmt.Sprintf("Model results: %s   Observations: %s", cfg.DataDir, cfg.VariablesDir), "normal", "L")
	styler.addSpacer(5)

	styler.writeParagraph("Constraint by Warming Threshold", "h2", "L")
	if len(run.Thresholds) == 0 {
		styler.writeParagraph("No thresholds were processed.", "normal", "L")
	} else {
		headers := []string{"Threshold", "x_obs", "dx_obs", "EC mean", "EC lower", "EC upper", "EC std",
			"Prior mean", "Prior std", "Markers", "Figure"}
		widths := []float64{0.07, 0.07, 0.07, 0.08, 0.08, 0.08, 0.07, 0.08, 0.07, 0.06, 0.27}
		rows := make([][]string, 0, len(run.Thresholds))
		for _, tr := range run.Thresholds {
			ec := tr.Constraint
			rows = append(rows, []string{
				config.FormatThreshold(tr.Threshold),
				fmt.Sprintf("%.2f", tr.Band.Mean),
				fmt.Sprintf("%.2f", tr.Band.Std),
				fmt.Sprintf("%.2f", ec.Mean),
				fmt.Sprintf("%.2f", ec.Lower),
				fmt.Sprintf("%.2f", ec.Upper),
				fmt.Sprintf("%.2f", ec.Upper-ec.Mean),
				fmt.Sprintf("%.2f", ec.PriorMean),
				fmt.Sprintf("%.2f", ec.PriorStd),
				fmt.Sprintf("%d/%d", len(tr.Markers), len(cfg.Models)*len(cfg.Scenarios)),
				tr.OutputPath,
			})
		}
		styler.table(headers, widths, rows, map[int]bool{3: true, 4: true, 5: true, 6: true})
	}
	styler.addSpacer(5)

	obs := run.Observations
	styler.writeParagraph("Observational Inputs", "h2", "L")
	coeffs := make([]string, len(obs.Poly))
	for i, c := range obs.Poly {
		coeffs[i] = fmt.Sprintf("%.4g", c)
	}
	styler.writeParagraph(fmt.Sprintf("Temperature: masked mean %.3f over %d cells", obs.MeanTemperature, obs.ValidTemperature), "normal", "L")
	styler.writeParagraph(fmt.Sprintf("Heterotrophic respiration: masked mean %.4g over %d cells", obs.MeanRespiration, obs.ValidRespiration), "normal", "L")
	styler.writeParagraph(fmt.Sprintf("Observed relationship (degree %d, highest power first): [%s]; value at mean temperature %.4g",
		obs.Poly.Degree(), strings.Join(coeffs, ", "), obs.PolyAtMeanTemperature), "normal", "L")

	figWidth := pdfContentWidth * 0.6
	densWidth := pdfContentWidth * 0.8
	for _, tr := range run.Thresholds {
		ts := config.FormatThreshold(tr.Threshold)
		styler.newPage()
		styler.writeParagraph(fmt.Sprintf("%s Degrees of Warming", ts), "h1", "C")
		styler.addSpacer(3)
		if len(tr.Preview) > 0 {
			h := figWidth * cfg.Figure.HeightIn / cfg.Figure.WidthIn
			styler.addImage(tr.Preview, "figure_"+ts, figWidth, h, tr.OutputPath, "normal")
		} else {
			styler.writeParagraph(fmt.Sprintf("Figure preview for %s not available.", ts), "normal", "L")
		}

		key := densityKey(tr.Threshold)
		styler.newPage()
		styler.writeParagraph(fmt.Sprintf("Prior and Constrained Distributions (%s degrees)", ts), "h2", "L")
		if img, ok := plotImages[key]; ok && len(img) > 0 {
			styler.addImage(img, key, densWidth, densWidth/2, "Model ensemble vs emergent constraint", "normal")
		} else {
			styler.writeParagraph("Density plot not available.", "normal", "L")
		}
	}

	heatmaps := []struct {
		Field   string
		Title   string
		Caption string
	}{
		{"temperature", "Observed Temperature", "Observational temperature field, masked cells in grey"},
		{"rh", "Observed Heterotrophic Respiration", "Observational respiration field, masked cells in grey"},
	}
	heatWidth := pdfContentWidth * 0.9
	for _, hm := range heatmaps {
		styler.newPage()
		styler.writeParagraph(hm.Title, "h2", "L")
		key := heatmapKey(hm.Field)
		if img, ok := plotImages[key]; ok && len(img) > 0 {
			styler.addImage(img, key, heatWidth, heatWidth/2, hm.Caption, "normal")
		} else {
			styler.writeParagraph(fmt.Sprintf("Heatmap for %s not available.", hm.Field), "normal", "L")
		}
	}

	if err := ensureParent(path); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(path)
}
