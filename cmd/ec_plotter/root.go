package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/user/ec_plotter_go/internal/config"
	"github.com/user/ec_plotter_go/internal/logging"
)

// rootOptions carries the state shared by every subcommand: the viper
// instance the persistent flags are bound to and the flags that are applied
// after the configuration is decoded.
type rootOptions struct {
	v          *viper.Viper
	configFile string
	thresholds []float64
}

// flagKeys maps persistent flags to their configuration keys.
var flagKeys = map[string]string{
	"data-dir":      "data_dir",
	"variables-dir": "variables_dir",
	"log-level":     "log.level",
	"log-file":      "log.file",
	"summary":       "summary.enabled",
	"summary-path":  "summary.path",
}

// newRootCmd builds the command tree. Each call returns an independent tree
// with its own configuration state.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	root := &cobra.Command{
		Use:   "ec_plotter",
		Short: "Render emergent constraint scatter figures",
		Long: `ec_plotter reads the per-threshold CMIP5 result tables and observational
constraints written by the upstream analysis, reduces them to an emergent
constraint on the soil carbon response and renders one scatter figure per
warming threshold.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	pf.String("data-dir", "", "directory holding the per-threshold CSV inputs")
	pf.String("variables-dir", "", "directory holding the observational .npy inputs")
	pf.Float64SliceVar(&opts.thresholds, "threshold", nil, "warming threshold to render (repeatable)")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("log-file", "", "also write JSON logs to this file")
	pf.Bool("summary", false, "write the PDF summary sheet")
	pf.String("summary-path", "", "summary sheet path; {ensemble} is substituted")
	for flag, key := range flagKeys {
		// Bind only errors on a nil flag.
		_ = opts.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(newRenderCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newInputsCmd(opts))
	return root
}

// load resolves the configuration from defaults, file, environment and
// flags, in increasing precedence.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.v, o.configFile)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("threshold") {
		cfg = cfg.WithThresholds(o.thresholds)
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// logger opens the logger configured in cfg. Console output goes to the
// command's stderr.
func (o *rootOptions) logger(cmd *cobra.Command, cfg config.Config) (*logging.Logger, error) {
	log, err := logging.New(cfg.Log.Level, cfg.Log.File, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return log, nil
}

// Execute runs the root command. It prints any returned error and exits the
// process with a non-zero status on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
