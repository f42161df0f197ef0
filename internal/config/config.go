package config

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. ECPLOT_DATA_DIR.
const EnvPrefix = "ECPLOT"

// Model is one ensemble member and the marker shape it is drawn with.
type Model struct {
	Name   string `mapstructure:"name"`
	Marker string `mapstructure:"marker"` // matplotlib marker code: o ^ v 1 s * x + d
}

// Scenario is one emission pathway. Row order in the result tables follows
// the order of Config.Scenarios.
type Scenario struct {
	Name  string `mapstructure:"name"`  // e.g. "rcp85"
	Label string `mapstructure:"label"` // legend text, e.g. "RCP8.5"
	Color string `mapstructure:"color"`
}

// Axis holds the limits shared by the x and y axes.
type Axis struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// Figure holds the geometry and typography of the scatter figure.
type Figure struct {
	WidthIn         float64 `mapstructure:"width_in"`
	HeightIn        float64 `mapstructure:"height_in"`
	FontSize        float64 `mapstructure:"font_size"`         // points
	LineWidth       float64 `mapstructure:"line_width"`        // points
	MarkerSize      float64 `mapstructure:"marker_size"`       // points, glyph diameter
	MarkerEdgeWidth float64 `mapstructure:"marker_edge_width"` // points
	BandAlpha       float64 `mapstructure:"band_alpha"`
	XLabel          string  `mapstructure:"x_label"`
	YLabel          string  `mapstructure:"y_label"`
}

// OutputRule sends the figure of one threshold to a dedicated path.
type OutputRule struct {
	Threshold float64 `mapstructure:"threshold"`
	Path      string  `mapstructure:"path"`
}

// Outputs maps thresholds to figure paths. Paths may contain "{T}", which is
// replaced with the formatted threshold.
type Outputs struct {
	Rules   []OutputRule `mapstructure:"rules"`
	Default string       `mapstructure:"default"`
}

// Summary controls the optional multi-page summary sheet.
type Summary struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Log controls the application logger.
type Log struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Config is the complete, immutable run configuration. It is produced once by
// Load and passed by value to everything that needs it.
type Config struct {
	DataDir      string     `mapstructure:"data_dir"`
	VariablesDir string     `mapstructure:"variables_dir"`
	Ensemble     string     `mapstructure:"ensemble"`
	Models       []Model    `mapstructure:"models"`
	Scenarios    []Scenario `mapstructure:"scenarios"`
	Thresholds   []float64  `mapstructure:"thresholds"`
	Axis         Axis       `mapstructure:"axis"`
	Figure       Figure     `mapstructure:"figure"`
	Outputs      Outputs    `mapstructure:"outputs"`
	Summary      Summary    `mapstructure:"summary"`
	Log          Log        `mapstructure:"log"`
}

// ValidMarkers lists the marker codes the figure knows how to draw.
var ValidMarkers = []string{"o", "^", "v", "1", "s", "*", "x", "+", "d"}

// SetDefaults registers the CMIP5 defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "saved_data")
	v.SetDefault("variables_dir", "saved_variables")
	v.SetDefault("ensemble", "cmip5")
	v.SetDefault("models", []map[string]any{
		{"name": "BNU-ESM", "marker": "o"},
		{"name": "CanESM2", "marker": "^"},
		{"name": "CESM1-CAM5", "marker": "v"},
		{"name": "GFDL-ESM2G", "marker": "1"},
		{"name": "GISS-E2-R", "marker": "s"},
		{"name": "HadGEM2-ES", "marker": "*"},
		{"name": "IPSL-CM5A-LR", "marker": "x"},
		{"name": "MIROC-ESM", "marker": "+"},
		{"name": "NorESM1-M", "marker": "d"},
	})
	v.SetDefault("scenarios", []map[string]any{
		{"name": "rcp26", "label": "RCP2.6", "color": "b"},
		{"name": "rcp45", "label": "RCP4.5", "color": "g"},
		{"name": "rcp85", "label": "RCP8.5", "color": "r"},
	})
	v.SetDefault("thresholds", []float64{2})
	v.SetDefault("axis.min", -750.0)
	v.SetDefault("axis.max", 0.0)

	v.SetDefault("figure.width_in", 24.0)
	v.SetDefault("figure.height_in", 18.0)
	v.SetDefault("figure.font_size", 30.0)
	v.SetDefault("figure.line_width", 2.0)
	v.SetDefault("figure.marker_size", 20.0)
	v.SetDefault("figure.marker_edge_width", 5.0)
	v.SetDefault("figure.band_alpha", 0.8)
	v.SetDefault("figure.x_label", "Relationship derived ΔCs,τ")
	v.SetDefault("figure.y_label", "Model calculated ΔCs,τ")

	v.SetDefault("outputs.rules", []map[string]any{
		{"threshold": 0.5, "path": "final_plots/cmip5_classicEC_05degreeswarming_CARDrh.pdf"},
	})
	v.SetDefault("outputs.default", "paper_plots/MODELRHcmip5_{T}degreeswarming_CARDrh.pdf")

	v.SetDefault("summary.enabled", false)
	v.SetDefault("summary.path", "paper_plots/summary_{ensemble}_CARDrh.pdf")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load reads the optional config file at path (empty means defaults only),
// applies environment overrides and any flags already bound to v, and
// returns the validated configuration.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	cfg, err := Load(viper.New(), "")
	if err != nil {
		// The built-in defaults are expected to be valid.
		panic(err)
	}
	return cfg
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.Ensemble == "" {
		errs = append(errs, errors.New("ensemble must not be empty"))
	}

	if len(c.Models) == 0 {
		errs = append(errs, errors.New("at least one model is required"))
	}
	seen := make(map[string]bool)
	for i, m := range c.Models {
		if m.Name == "" {
			errs = append(errs, fmt.Errorf("model %d has no name", i))
		}
		if seen[m.Name] {
			errs = append(errs, fmt.Errorf("duplicate model %q", m.Name))
		}
		seen[m.Name] = true
		if !isValidMarker(m.Marker) {
			errs = append(errs, fmt.Errorf("model %q: unknown marker %q", m.Name, m.Marker))
		}
	}

	if len(c.Scenarios) == 0 {
		errs = append(errs, errors.New("at least one scenario is required"))
	}
	seen = make(map[string]bool)
	for i, s := range c.Scenarios {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("scenario %d has no name", i))
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("duplicate scenario %q", s.Name))
		}
		seen[s.Name] = true
		if _, err := ParseColor(s.Color); err != nil {
			errs = append(errs, fmt.Errorf("scenario %q: %w", s.Name, err))
		}
	}

	if len(c.Thresholds) == 0 {
		errs = append(errs, errors.New("at least one threshold is required"))
	}
	if !(c.Axis.Min < c.Axis.Max) {
		errs = append(errs, fmt.Errorf("axis min (%g) must be below axis max (%g)", c.Axis.Min, c.Axis.Max))
	}
	if c.Figure.WidthIn <= 0 || c.Figure.HeightIn <= 0 {
		errs = append(errs, fmt.Errorf("figure size %gx%g in is not positive", c.Figure.WidthIn, c.Figure.HeightIn))
	}
	if c.Figure.BandAlpha < 0 || c.Figure.BandAlpha > 1 {
		errs = append(errs, fmt.Errorf("figure band_alpha %g outside [0, 1]", c.Figure.BandAlpha))
	}
	if c.Outputs.Default == "" {
		errs = append(errs, errors.New("outputs.default must not be empty"))
	}
	for _, r := range c.Outputs.Rules {
		if r.Path == "" {
			errs = append(errs, fmt.Errorf("output rule for threshold %g has no path", r.Threshold))
		}
	}
	if c.Summary.Enabled && c.Summary.Path == "" {
		errs = append(errs, errors.New("summary.path must be set when the summary is enabled"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// WithThresholds returns a copy of c with the threshold list replaced.
func (c Config) WithThresholds(thresholds []float64) Config {
	c.Thresholds = append([]float64(nil), thresholds...)
	return c
}

// ModelNames returns the model names in table-column order.
func (c Config) ModelNames() []string {
	names := make([]string, len(c.Models))
	for i, m := range c.Models {
		names[i] = m.Name
	}
	return names
}

// FormatThreshold renders a threshold the way the upstream pipeline embeds it
// in file names: 2 -> "2", 0.5 -> "0.5".
func FormatThreshold(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

func isValidMarker(m string) bool {
	for _, v := range ValidMarkers {
		if v == m {
			return true
		}
	}
	return false
}

var namedColors = map[string]color.NRGBA{
	"b":          {B: 255, A: 255},
	"blue":       {B: 255, A: 255},
	"g":          {G: 128, A: 255},
	"green":      {G: 128, A: 255},
	"r":          {R: 255, A: 255},
	"red":        {R: 255, A: 255},
	"k":          {A: 255},
	"black":      {A: 255},
	"darkgreen":  {G: 100, A: 255},
	"lightgreen": {R: 144, G: 238, B: 144, A: 255},
	"lightblue":  {R: 173, G: 216, B: 230, A: 255},
	"darkgrey":   {R: 169, G: 169, B: 169, A: 255},
	"darkgray":   {R: 169, G: 169, B: 169, A: 255},
}

// ParseColor accepts the matplotlib single-letter codes, a handful of named
// colours and "#rrggbb".
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") && len(s) == 7 {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err == nil {
			return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
		}
	}
	return color.NRGBA{}, fmt.Errorf("unknown colour %q", s)
}
