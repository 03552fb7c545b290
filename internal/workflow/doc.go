// Package workflow coordinates pipelines through the voice and video stages.
//
// The Coordinator owns the pipeline status records: Submit writes the queued
// record and enqueues the voice job, Advance overwrites progress, Fail records
// the terminal failure. The Manager runs one lane per stage kind. Each lane
// blocks on its queue, records stage entry, runs the stage handler, records
// completion, and enqueues exactly one job for the next stage. Stage-fatal
// errors mark the pipeline failed and stop the chain; nothing is retried.
package workflow
