// Package preflight provides readiness checks for the filesystem paths,
// external binaries, and state backend that panelcast depends on.
//
// The doctor command prints every Result; the daemon runs RunAll at startup
// and refuses to start workers when a required check fails.
package preflight
