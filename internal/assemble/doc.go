// Package assemble concatenates a chapter's rendered clips into the final
// video with ffmpeg's concat demuxer and stream copy.
//
// Clips are ordered by panel index, never by completion time. Failed panels
// are skipped; a chapter with no rendered panel yields an Empty result rather
// than an error. A JSON manifest describing which panels made it into the
// video is written atomically next to the output.
package assemble
