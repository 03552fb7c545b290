// Package render turns one narrated panel into a video clip.
//
// The panel image is downloaded into a scoped temp file, the narration audio
// and the image are measured with ffprobe, and ffmpeg loops the still image
// while a crop window pans from the top of the panel to the bottom over
// exactly the audio duration. Every failure becomes an Outcome with a
// reason; Render never returns an error so one broken panel cannot sink a
// chapter.
package render
