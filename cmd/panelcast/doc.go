// Package main hosts the panelcast CLI.
//
// Commands submit narration documents as chapter pipelines, report pipeline
// status from the shared state backend, inspect hardware encoder selection,
// run preflight checks, and start stage workers in the foreground. Heavy
// lifting lives in the internal packages; this package only resolves
// configuration and renders output.
package main
