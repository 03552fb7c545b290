// Package services defines shared utilities consumed by the stage handlers
// and the external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp pipeline IDs, job IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify stage
//     failures and carry the human-readable message recorded on a failed
//     pipeline.
//
// Use these helpers when wiring new stage logic so failure handling and
// observability stay uniform across the pipeline.
package services
