package main

import (
	"io"
	"os"

	"github.com/k0kubun/pp"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// newConfigCmd groups the configuration subcommands. It performs no action
// on its own.
func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Group commands for inspecting the configuration",
		Long:  `The 'config' command groups subcommands that inspect the resolved configuration. It performs no action on its own.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Long:  `The 'show' subcommand prints the configuration after defaults, the config file, environment variables and flags have been applied.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			pp.ColoringEnabled = isTerminal(out)
			_, err = pp.Fprintln(out, cfg)
			return err
		},
	})
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
