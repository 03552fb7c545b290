// Package config loads, normalizes, and validates panelcast configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// REDIS_HOST and REDIS_PORT. The Config type centralizes every knob the
// workers and CLI need so directories, backends, and render settings are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
