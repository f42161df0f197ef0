package main

import (
	"github.com/spf13/cobra"
)

// newRenderCmd implements 'render', which draws one figure per configured
// threshold.
func newRenderCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Render the emergent constraint figures",
		Long: `The 'render' command loads the inputs for every configured threshold,
computes the observational and emergent constraints and writes one figure per
threshold. With --summary it also writes a PDF summary sheet.`,
		Args: cobra.NoArgs,
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

			_, err = NewApp(cfg, log, cmd.OutOrStdout(), cmd.ErrOrStderr()).Render()
			return err
		},
	}
}
