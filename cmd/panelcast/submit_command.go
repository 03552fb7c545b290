package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"panelcast/internal/narration"
	"panelcast/internal/workflow"
)

type submission struct {
	Chapter    string `json:"chapterName"`
	Title      string `json:"title"`
	PipelineID string `json:"pipelineId,omitempty"`
	Error      string `json:"error,omitempty"`
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "submit <narration.json>",
		Short: "Submit every chapter in a narration document as a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chapters, err := narration.Load(args[0])
			if err != nil {
				return err
			}

			var results []submission
			var errs []error
			err = ctx.withCoordinator(cmd.Context(), func(coord *workflow.Coordinator) error {
				for _, ch := range chapters {
					id, err := coord.Submit(cmd.Context(), ch)
					entry := submission{Chapter: ch.Name, Title: narration.DisplayTitle(ch.Name), PipelineID: id}
					if err != nil {
						entry.Error = err.Error()
						errs = append(errs, fmt.Errorf("submit %q: %w", ch.Name, err))
					}
					results = append(results, entry)
				}
				return nil
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
				return errors.Join(errs...)
			}

			out := cmd.OutOrStdout()
			for _, r := range results {
				if r.Error != "" {
					fmt.Fprintf(out, "Failed %s: %s\n", r.Title, r.Error)
					continue
				}
				fmt.Fprintf(out, "Submitted %s as %s\n", r.Title, r.PipelineID)
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print submissions as JSON")
	return cmd
}
