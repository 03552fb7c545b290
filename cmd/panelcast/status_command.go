package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"panelcast/internal/services"
	"panelcast/internal/status"
	"panelcast/internal/workflow"
)

// pendingLabel is shown for ids with no record yet: submission has not
// reached the store, or the id is unknown.
const pendingLabel = "pending"

type statusView struct {
	ID        string     `json:"id"`
	Stage     string     `json:"stage"`
	Progress  *int       `json:"progress,omitempty"`
	Message   string     `json:"message,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <pipeline-id>...",
		Short: "Show pipeline stage, progress and message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			views := make([]statusView, 0, len(args))
			err := ctx.withCoordinator(cmd.Context(), func(coord *workflow.Coordinator) error {
				for _, id := range args {
					inst, err := coord.GetStatus(cmd.Context(), id)
					switch {
					case errors.Is(err, services.ErrNotFound):
						views = append(views, statusView{ID: id, Stage: pendingLabel})
					case err != nil:
						return fmt.Errorf("status %s: %w", id, err)
					default:
						views = append(views, viewFromInstance(inst))
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, statusRow(v, colorize))
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Stage", "Progress", "Message", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print statuses as JSON")
	return cmd
}

func viewFromInstance(inst status.Instance) statusView {
	progress := inst.Progress
	updated := inst.UpdatedAt
	return statusView{
		ID:        inst.ID,
		Stage:     string(inst.Stage),
		Progress:  &progress,
		Message:   inst.Message,
		UpdatedAt: &updated,
	}
}

func statusRow(v statusView, colorize bool) []string {
	if v.Progress == nil {
		return []string{v.ID, renderStage(v.Stage, statusWarn, colorize), "-", "not recorded yet", "-"}
	}
	updated := "-"
	if v.UpdatedAt != nil && !v.UpdatedAt.IsZero() {
		updated = v.UpdatedAt.Local().Format(time.DateTime)
	}
	kind := statusWarn
	if stage, err := status.ParseStage(v.Stage); err == nil {
		kind = stageKind(stage)
	}
	return []string{
		v.ID,
		renderStage(v.Stage, kind, colorize),
		strconv.Itoa(*v.Progress) + "%",
		v.Message,
		updated,
	}
}
