package main

import (
	"github.com/spf13/cobra"

	"panelcast/internal/daemonrun"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	var opts daemonrun.Options

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run stage workers in the foreground",
		Long: "Run stage workers in the foreground until interrupted. Voice and video\n" +
			"workers may run in separate processes that share a redis or sqlite backend.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Stage, "stage", daemonrun.StageAll, "Stage to work: voice, video, or all")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&opts.SkipPreflight, "skip-preflight", false, "Start even when required checks fail")
	return cmd
}
