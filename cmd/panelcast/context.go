package main

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"panelcast/internal/backend"
	"panelcast/internal/config"
	"panelcast/internal/logging"
	"panelcast/internal/workflow"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withCoordinator opens the configured state backend for the duration of fn.
// CLI commands log nothing themselves; backend warnings go to stderr.
func (c *commandContext) withCoordinator(ctx context.Context, fn func(*workflow.Coordinator) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	state, err := backend.Open(ctx, cfg, logging.NewNop())
	if err != nil {
		return err
	}
	defer state.Close()
	return fn(workflow.NewCoordinator(state.Status, state.Queue, logging.NewNop()))
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
