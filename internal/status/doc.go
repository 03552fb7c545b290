// Package status records the externally visible state of every pipeline.
//
// A pipeline instance moves linearly through queued, voice, voice-done,
// video, and video-done, or lands in failed from any non-terminal stage.
// Each stage carries a canonical progress value; the video stage additionally
// reports intermediate progress while panel batches complete.
//
// Store implementations exist for redis (the shared default), sqlite, and an
// in-process memory map. Get reports ErrNotFound for unknown identifiers,
// which callers surface as "pending" rather than as a failure.
package status
