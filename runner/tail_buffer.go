package runner

import (
	"sync"
)

// DefaultOutputTail is how much of a test's output is kept for its report
const DefaultOutputTail = 5 * 1024 * 1024

const truncatedMarker = "[output truncated]\n"

// tailBuffer retains the most recent bytes written to it
type tailBuffer struct {
	limit int

	mu        sync.Mutex
	buf       []byte
	truncated bool
}

func newTailBuffer(limit int) *tailBuffer {
	if limit <= 0 {
		limit = DefaultOutputTail
	}
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)
	if drop := len(b.buf) - b.limit; drop > 0 {
		b.buf = append(b.buf[:0], b.buf[drop:]...)
		b.truncated = true
	}
	return len(p), nil
}

// String returns the retained output, marked when older output was dropped
func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return truncatedMarker + string(b.buf)
	}
	return string(b.buf)
}

func (b *tailBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
