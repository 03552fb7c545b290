// Package voice implements the first pipeline stage. It does not synthesize
// speech itself; it resolves every panel's narration audio from an explicit
// path, the conventional audio directory layout, or an optional external
// synthesizer command, and hands the resolved chapter to the video stage.
package voice
