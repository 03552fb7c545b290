package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"panelcast/internal/config"
)

// fakeFFmpeg appends every invocation to ffmpeg.log next to itself.
//   - "-encoders" prints a listing with libx264 and aac.
//   - "-f concat" concatenates the files named in the list into the output.
//   - otherwise the output receives "clip <audio basename>".
//
// An input path containing "fail-encode" makes it exit 1 with a stderr message.
const fakeFFmpeg = `#!/bin/sh
log="$(dirname "$0")/ffmpeg.log"
printf '%s\n' "$*" >> "$log"
out=""
first=""
audio=""
seen=0
prev=""
encoders=""
concat=""
for arg in "$@"; do
  if [ "$prev" = "-i" ]; then
    seen=$((seen+1))
    if [ "$seen" = 1 ]; then first="$arg"; else audio="$arg"; fi
  fi
  case "$arg" in
    -encoders) encoders=1 ;;
    concat) concat=1 ;;
  esac
  prev="$arg"
  out="$arg"
done
if [ -n "$encoders" ]; then
  printf 'Encoders:\n V..... = Video\n ------\n V....D libx264   libx264 H.264\n A....D aac   AAC\n'
  exit 0
fi
case "$first$audio" in
  *fail-encode*)
    echo "frame=    0 fps=0.0 q=0.0 size=       0kB" >&2
    echo "Conversion failed: fail-encode requested" >&2
    exit 1
    ;;
esac
if [ -n "$concat" ]; then
  : > "$out"
  sed -n "s/^file '\(.*\)'\$/\1/p" "$first" | while IFS= read -r clip; do
    cat "$clip" >> "$out"
  done
  exit 0
fi
printf 'clip %s\n' "$(basename "$audio")" > "$out"
`

// fakeFFprobe reports a video stream for files carrying a "size=WxH" line and
// an audio stream whose duration comes from a "duration=" line otherwise.
const fakeFFprobe = `#!/bin/sh
f=""
for arg in "$@"; do f="$arg"; done
if [ ! -f "$f" ]; then
  echo "$f: No such file or directory" >&2
  exit 1
fi
if grep -q '^size=' "$f" 2>/dev/null; then
  w=$(sed -n 's/^size=\([0-9]*\)x\([0-9]*\)$/\1/p' "$f" | head -n 1)
  h=$(sed -n 's/^size=\([0-9]*\)x\([0-9]*\)$/\2/p' "$f" | head -n 1)
  printf '{"streams":[{"index":0,"codec_name":"png","codec_type":"video","width":%s,"height":%s}],"format":{"duration":"N/A"}}\n' "$w" "$h"
  exit 0
fi
d=$(sed -n 's/^duration=//p' "$f" | head -n 1)
[ -n "$d" ] || d="N/A"
printf '{"streams":[{"index":0,"codec_name":"mp3","codec_type":"audio","duration":"%s"}],"format":{"duration":"%s"}}\n' "$d" "$d"
`

const pngMagic = "\x89PNG\r\n\x1a\n"

// FakeImage returns bytes that sniff as PNG and that the fake ffprobe reports
// as width x height.
func FakeImage(width, height int) []byte {
	return []byte(fmt.Sprintf("%s\nsize=%dx%d\n", pngMagic, width, height))
}

// WriteAudio writes a narration file the fake ffprobe reports as lasting
// seconds. A value <= 0 writes a file without a usable duration.
func WriteAudio(t testing.TB, path string, seconds float64) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	body := "ID3 fake narration\n"
	if seconds > 0 {
		body += fmt.Sprintf("duration=%g\n", seconds)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// FFmpegCalls returns the argument lines recorded by the fake ffmpeg.
func FFmpegCalls(t testing.TB, cfg *config.Config) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(filepath.Dir(cfg.FFmpegBinary()), "ffmpeg.log"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read ffmpeg log: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}
