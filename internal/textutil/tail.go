package textutil

import (
	"slices"
	"strings"
	"sync"
)

// Tail is an io.Writer that keeps only the last Max bytes written.
type Tail struct {
	Max int

	mu  sync.Mutex
	buf []byte
}

// NewTail returns a Tail bounded to max bytes.
func NewTail(max int) *Tail {
	return &Tail{Max: max}
}

func (t *Tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.Max; t.Max > 0 && over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

// String returns the retained bytes.
func (t *Tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// LastLines returns up to n trailing non-blank lines, oldest first.
func (t *Tail) LastLines(n int) string {
	return LastLines(t.String(), n)
}

// LastLines returns up to n trailing non-blank lines of s, oldest first.
func LastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			kept = append(kept, line)
		}
	}
	slices.Reverse(kept)
	return strings.Join(kept, "\n")
}

// Truncate shortens s to at most max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
