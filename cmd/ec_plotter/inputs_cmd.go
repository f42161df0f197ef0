package main

import (
	"github.com/spf13/cobra"
)

// newInputsCmd groups the input subcommands. It performs no action on its own.
func newInputsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inputs",
		Short: "Group commands for inspecting the inputs",
		Long:  `The 'inputs' command groups subcommands that work on the input files. It performs no action on its own.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load every input and report its shape",
		Long:  `The 'check' subcommand reads the observational inputs and the inputs of every configured threshold, validates their shapes and prints a summary without rendering anything.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			log, err := opts.logger(cmd, cfg)
			if err != nil {
				return err
			}
			defer log.Close()
			return NewApp(cfg, log, cmd.OutOrStdout(), cmd.ErrOrStderr()).CheckInputs()
		},
	})
	return cmd
}
