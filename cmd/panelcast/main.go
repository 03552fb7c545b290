package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"panelcast/internal/services"
)

// Exit codes: 2 for input or configuration the user must fix, 1 otherwise.
const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "panelcast:", err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch services.Kind(err) {
	case services.KindValidation, services.KindConfiguration:
		return exitUsage
	default:
		return exitFailure
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
