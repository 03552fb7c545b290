package render

import (
	"fmt"
	"strconv"
)

// CropOffset returns the top edge of the viewport at time t for a clip of
// duration d. The window travels linearly from 0 to imageHeight-viewHeight
// and is clamped to that range. Images no taller than the viewport do not
// travel.
func CropOffset(t, d float64, imageHeight, viewHeight int) float64 {
	travel := float64(imageHeight - viewHeight)
	if travel <= 0 || d <= 0 {
		return 0
	}
	y := travel * (t / d)
	switch {
	case y < 0:
		return 0
	case y > travel:
		return travel
	default:
		return y
	}
}

// OutputWidth forces a width down to the nearest even value, as yuv420p
// requires.
func OutputWidth(width int) int {
	if width < 2 {
		return 2
	}
	return width - width%2
}

// PanFilter builds the ffmpeg filter graph for an imageWidth x imageHeight
// panel panned over duration seconds inside a viewHeight viewport. The graph
// reads input 0 and labels its output [cropped].
func PanFilter(imageWidth, imageHeight, viewHeight int, duration float64) string {
	if imageHeight < viewHeight {
		return fmt.Sprintf("[0:v]scale=-2:%d[scaled];[scaled]crop=w=iw:h=%d:x=0:y=0[cropped]",
			viewHeight, viewHeight)
	}
	return fmt.Sprintf("[0:v]scale=%d:ih[scaled];[scaled]crop=w=iw:h=%d:x=0:y='%s'[cropped]",
		OutputWidth(imageWidth), viewHeight, OffsetExpr(viewHeight, duration))
}

// OffsetExpr is the ffmpeg crop y expression equivalent to CropOffset, with
// ih standing for the image height and t for the frame time.
func OffsetExpr(viewHeight int, duration float64) string {
	return fmt.Sprintf("min(max((ih-%d)*(t/%s),0),ih-%d)", viewHeight, FormatSeconds(duration), viewHeight)
}

// FormatSeconds renders seconds the way ffmpeg arguments expect them.
func FormatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}
