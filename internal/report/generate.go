package report

import (
	"fmt"

	"github.com/user/ec_plotter_go/internal/analysis"
	"github.com/user/ec_plotter_go/internal/config"
	"github.com/user/ec_plotter_go/internal/logging"
	"github.com/user/ec_plotter_go/internal/parser"
)

// ThresholdResult is what one threshold iteration produced.
type ThresholdResult struct {
	Threshold  float64
	Band       analysis.ObservationalBand
	Constraint analysis.EmergentConstraint
	Markers    []Marker
	FiniteX    int // finite entries of the x table
	FiniteY    int
	OutputPath string

	// Preview is a PNG rendering of the figure, set when Runner.Previews is.
	Preview []byte
}

// RunResult collects the outcome of a full run.
type RunResult struct {
	Thresholds   []ThresholdResult
	Observations analysis.ObservationSummary
	SummaryPath  string // empty when no summary sheet was written
}

// Runner renders one figure per configured threshold.
type Runner struct {
	Config config.Config
	Log    *logging.Logger

	// Previews keeps a PNG copy of each figure in memory. It is implied
	// when the summary sheet is enabled.
	Previews bool

	// Status, if set, receives a line per processing step.
	Status func(string)
}

// NewRunner returns a runner for cfg. A nil log discards messages.
func NewRunner(cfg config.Config, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.Discard()
	}
	return &Runner{Config: cfg, Log: log}
}

func (r *Runner) sendStatus(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Log.Infof("%s", msg)
	if r.Status != nil {
		r.Status(msg)
	}
}

// Run loads the observational inputs, renders every threshold in order and,
// if enabled, writes the summary sheet. The first failing threshold aborts
// the run.
func (r *Runner) Run() (*RunResult, error) {
	cfg := r.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.sendStatus("Loading observations from %s", cfg.VariablesDir)
	obs, err := parser.LoadObservations(cfg.VariablesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load observations: %w", err)
	}
	summary, err := analysis.SummarizeObservations(obs)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize observations: %w", err)
	}

	res := &RunResult{Observations: summary}
	for _, t := range cfg.Thresholds {
		tr, err := r.Generate(t)
		if err != nil {
			return res, fmt.Errorf("threshold %s: %w", config.FormatThreshold(t), err)
		}
		res.Thresholds = append(res.Thresholds, *tr)
	}

	if cfg.Summary.Enabled {
		path := SummaryPath(cfg.Summary, cfg.Ensemble)
		r.sendStatus("Generating summary sheet: %s", path)
		images := r.summaryImages(res, obs)
		if err := BuildSummaryPDF(path, cfg, res, images); err != nil {
			return res, fmt.Errorf("failed to write summary sheet: %w", err)
		}
		res.SummaryPath = path
	}
	return res, nil
}

// Generate runs a single threshold: load, compute, draw, save.
func (r *Runner) Generate(t float64) (*ThresholdResult, error) {
	cfg := r.Config
	ts := config.FormatThreshold(t)

	r.sendStatus("Loading inputs for %s degrees of warming", ts)
	in, err := parser.LoadThresholdInputs(cfg.DataDir, cfg.Ensemble, t, len(cfg.Scenarios), len(cfg.Models))
	if err != nil {
		return nil, err
	}

	band, err := analysis.ObservationalConstraint(in.ObsConstraint)
	if err != nil {
		return nil, err
	}
	ec, err := analysis.ReduceEmergentConstraint(in.CombinedX, in.CombinedY, in.XObs, in.DXObs)
	if err != nil {
		return nil, fmt.Errorf("emergent constraint: %w", err)
	}
	r.Log.Infof("new mean: %v", ec.Mean)
	r.Log.Infof("new std: %v", ec.Upper-ec.Mean)

	markers, err := BuildMarkers(cfg, in.X, in.Y, r.Log)
	if err != nil {
		return nil, err
	}

	res := &ThresholdResult{
		Threshold:  t,
		Band:       band,
		Constraint: ec,
		Markers:    markers,
		FiniteX:    len(analysis.FlattenFinite(in.X)),
		FiniteY:    len(analysis.FlattenFinite(in.Y)),
		OutputPath: OutputPath(cfg.Outputs, t),
	}

	fig := NewFigure(cfg)
	defer fig.Close()
	if err := fig.AddMarkers(markers); err != nil {
		return nil, err
	}
	if err := fig.AddObservationalConstraint(band); err != nil {
		return nil, err
	}
	if err := fig.AddEmergentConstraint(ec, band); err != nil {
		return nil, err
	}
	if err := fig.AddFitCurve(in.Fit); err != nil {
		return nil, err
	}
	if err := fig.AddOneToOne(); err != nil {
		return nil, err
	}

	r.sendStatus("Saving figure: %s", res.OutputPath)
	if err := fig.Save(res.OutputPath); err != nil {
		return nil, err
	}
	if r.Previews || cfg.Summary.Enabled {
		if res.Preview, err = fig.Encode("png"); err != nil {
			return nil, fmt.Errorf("figure preview: %w", err)
		}
	}
	r.Log.Debugf("threshold %s: %d markers, x_obs=%v dx_obs=%v", ts, len(markers), band.Mean, band.Std)
	return res, nil
}

// summaryImages renders the plots of the summary sheet. A plot that cannot
// be drawn is reported and left out.
func (r *Runner) summaryImages(res *RunResult, obs *parser.Observations) map[string][]byte {
	images := make(map[string][]byte)
	for _, f := range []parser.MaskedField{obs.Temperature, obs.Respiration} {
		img, err := CreateFieldHeatmap(f, "Observed "+f.Name)
		if err != nil {
			r.sendStatus("Error generating heatmap %s: %v", f.Name, err)
			continue
		}
		images[heatmapKey(f.Name)] = img
	}
	for _, tr := range res.Thresholds {
		ts := config.FormatThreshold(tr.Threshold)
		img, err := CreateDensityPlot(tr.Constraint, fmt.Sprintf("ΔCs,τ at %s degrees of warming", ts))
		if err != nil {
			r.sendStatus("Error generating density plot for %s: %v", ts, err)
			continue
		}
		images[densityKey(tr.Threshold)] = img
	}
	return images
}

func heatmapKey(field string) string { return "heatmap_" + field }

func densityKey(t float64) string { return "density_" + config.FormatThreshold(t) }
