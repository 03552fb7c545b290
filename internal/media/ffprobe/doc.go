// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and decodes its streams and format sections. Result
// helpers answer the two questions the renderer asks: how long a narration
// track plays (AudioDuration) and how large a panel image is (VideoSize).
// Still images are reported by ffprobe as a single video stream.
package ffprobe
