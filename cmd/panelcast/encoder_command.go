package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"panelcast/internal/encoder"
	"panelcast/internal/logging"
)

func newEncoderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "encoder",
		Short: "Show the video encoder this host would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sel := encoder.NewSelector(cfg, logging.NewNop()).Select(cmd.Context())

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			kind := statusOK
			if !sel.Codec.Hardware() {
				kind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Codec", kind, string(sel.Codec), colorize))
			fmt.Fprintln(out, renderStatusLine("Vendor", statusInfo, string(sel.Vendor), colorize))
			fmt.Fprintln(out, renderStatusLine("Source", statusInfo, sel.Source, colorize))
			if sel.Detail != "" {
				fmt.Fprintln(out, renderStatusLine("Detail", statusInfo, sel.Detail, colorize))
			}
			return nil
		},
	}
}
