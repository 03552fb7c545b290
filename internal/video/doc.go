// Package video implements the second pipeline stage: it renders every panel
// of a resolved chapter in batches, reports batch progress, and assembles the
// surviving clips into the chapter video.
package video
