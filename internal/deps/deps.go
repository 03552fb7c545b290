package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"panelcast/internal/config"
)

// Requirement defines an external dependency panelcast relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the render and voice stages execute.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{Name: "FFmpeg", Command: cfg.FFmpegBinary(), Description: "Renders panel clips and concatenates chapters"},
		{Name: "FFprobe", Command: cfg.FFprobeBinary(), Description: "Measures narration audio and panel images"},
		{Name: "nvidia-smi", Command: "nvidia-smi", Description: "Fallback NVIDIA GPU detection", Optional: true},
	}
	if len(cfg.Voice.Command) > 0 {
		reqs = append(reqs, Requirement{
			Name:        "Voice synthesizer",
			Command:     cfg.Voice.Command[0],
			Description: "Generates narration audio for panels without it",
			Optional:    true,
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of unavailable, non-optional dependencies.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s.Name)
		}
	}
	return missing
}
