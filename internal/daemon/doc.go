// Package daemon owns the lifecycle of a long-running panelcast worker
// process.
//
// A Daemon holds a flock-based lock per stage set so two processes never run
// the same lanes against one state directory, starts and stops the workflow
// manager, and serves the ops HTTP endpoints (/metrics, /healthz and
// /pipelines/{id}).
package daemon
