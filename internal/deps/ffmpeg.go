package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ListEncoders returns the encoder names compiled into the ffmpeg binary, as
// reported by "ffmpeg -hide_banner -encoders".
func ListEncoders(ctx context.Context, ffmpeg string) (map[string]struct{}, error) {
	ffmpeg = strings.TrimSpace(ffmpeg)
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	out, err := exec.CommandContext(ctx, ffmpeg, "-hide_banner", "-encoders").Output()
	if err != nil {
		return nil, fmt.Errorf("list ffmpeg encoders: %w", err)
	}
	return parseEncoders(out), nil
}

// parseEncoders reads the table that follows the " ------" separator. Each
// row is a capability flag column followed by the encoder name.
func parseEncoders(out []byte) map[string]struct{} {
	encoders := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(out))
	inTable := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !inTable {
			if strings.HasPrefix(line, "---") {
				inTable = true
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		encoders[fields[1]] = struct{}{}
	}
	return encoders
}

// HasEncoder reports whether ffmpeg lists name.
func HasEncoder(ctx context.Context, ffmpeg, name string) (bool, error) {
	encoders, err := ListEncoders(ctx, ffmpeg)
	if err != nil {
		return false, err
	}
	_, ok := encoders[name]
	return ok, nil
}
