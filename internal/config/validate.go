package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case "redis":
		if c.Redis.DB < 0 {
			return errors.New("redis.db must be >= 0")
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("store.backend: unsupported value %q (supported: redis, sqlite, memory)", c.Store.Backend)
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.FrameHeight <= 0 || c.Render.FrameHeight%2 != 0 {
		return errors.New("render.frame_height must be a positive even number")
	}
	if c.Render.FrameRate <= 0 {
		return errors.New("render.frame_rate must be positive")
	}
	switch c.Render.Encoder {
	case "auto", "nvenc", "qsv", "x264":
	default:
		return fmt.Errorf("render.encoder: unsupported value %q (supported: auto, nvenc, qsv, x264)", c.Render.Encoder)
	}
	return nil
}

func (c *Config) validateDownload() error {
	if c.Download.RequestsPerSecond < 0 {
		return errors.New("download.requests_per_second must be >= 0")
	}
	return ensurePositiveMap(map[string]int{
		"download.timeout_seconds": c.Download.TimeoutSeconds,
		"voice.timeout_seconds":    c.Voice.TimeoutSeconds,
	})
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.dequeue_timeout":      c.Workflow.DequeueTimeout,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
