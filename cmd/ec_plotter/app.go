package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/ec_plotter_go/internal/config"
	"github.com/user/ec_plotter_go/internal/logging"
	"github.com/user/ec_plotter_go/internal/parser"
	"github.com/user/ec_plotter_go/internal/report"
)

var (
	headerStyle = lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230")).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Faint(true)
	labelStyle  = lipgloss.NewStyle().Bold(true)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	pathStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// App drives a run from the command line: it forwards progress to the
// terminal and prints the results when done.
type App struct {
	cfg config.Config
	log *logging.Logger
	out io.Writer // results
	err io.Writer // progress
}

// NewApp creates an App writing results to out and progress to errOut.
func NewApp(cfg config.Config, log *logging.Logger, out, errOut io.Writer) *App {
	return &App{cfg: cfg, log: log, out: out, err: errOut}
}

func (a *App) sendStatus(message string) {
	fmt.Fprintln(a.err, statusStyle.Render(message))
}

// Render generates the figures, and the summary sheet if enabled.
func (a *App) Render() (*report.RunResult, error) {
	start := time.Now()
	a.sendStatus(fmt.Sprintf("Request: data=[%s], observations=[%s], thresholds=%v",
		a.cfg.DataDir, a.cfg.VariablesDir, a.cfg.Thresholds))

	r := report.NewRunner(a.cfg, a.log)
	r.Status = a.sendStatus
	res, err := r.Run()
	if err != nil {
		a.sendStatus(errorStyle.Render(fmt.Sprintf("Error generating figures: %v", err)))
		return res, err
	}

	fmt.Fprint(a.out, renderResults(res))
	a.sendStatus(fmt.Sprintf("Rendered %d figure(s) in %s", len(res.Thresholds), time.Since(start).Round(time.Millisecond)))
	return res, nil
}

// CheckInputs loads every input without rendering and prints the shapes.
func (a *App) CheckInputs() error {
	cfg := a.cfg
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("Inputs") + "\n")

	obs, err := parser.LoadObservations(cfg.VariablesDir)
	if err != nil {
		return fmt.Errorf("observations: %w", err)
	}
	sb.WriteString(row("poly coefficients", fmt.Sprintf("%d", len(obs.PolyCoeffs))))
	for _, f := range []parser.MaskedField{obs.Temperature, obs.Respiration} {
		sb.WriteString(row(f.Name, fmt.Sprintf("shape %v, %d unmasked", f.Shape, len(f.Valid()))))
	}

	for _, t := range cfg.Thresholds {
		ts := config.FormatThreshold(t)
		a.sendStatus(fmt.Sprintf("Checking inputs for %s degrees", ts))
		in, err := parser.LoadThresholdInputs(cfg.DataDir, cfg.Ensemble, t, len(cfg.Scenarios), len(cfg.Models))
		if err != nil {
			return fmt.Errorf("threshold %s: %w", ts, err)
		}
		rows, cols := in.X.Dims()
		sb.WriteString(row(ts+" degrees", fmt.Sprintf("tables %dx%d, constraint %d, fit %d, combined %d, x_obs %g ± %g",
			rows, cols, len(in.ObsConstraint), len(in.Fit.X), len(in.CombinedX), in.XObs, in.DXObs)))
		a.log.Debugf("threshold %s read %d files", ts, len(in.Files))
	}
	fmt.Fprint(a.out, sb.String())
	return nil
}

func row(label, value string) string {
	return fmt.Sprintf("  %s %s\n", labelStyle.Render(fmt.Sprintf("%-18s", label)), valueStyle.Render(value))
}

// renderResults formats the run results for the terminal.
func renderResults(res *report.RunResult) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("Emergent constraint") + "\n")
	for _, tr := range res.Thresholds {
		ec := tr.Constraint
		sb.WriteString(row(config.FormatThreshold(tr.Threshold)+" degrees",
			fmt.Sprintf("x_obs %.2f ± %.2f  new mean %.2f  new std %.2f  [%.2f, %.2f]",
				tr.Band.Mean, tr.Band.Std, ec.Mean, ec.Upper-ec.Mean, ec.Lower, ec.Upper)))
		sb.WriteString("  " + strings.Repeat(" ", 19) + pathStyle.Render(tr.OutputPath) + "\n")
	}
	if res.SummaryPath != "" {
		sb.WriteString(row("summary", res.SummaryPath))
	}
	return sb.String()
}
