// Package logio adapts between io.Writer streams and printf-style logging
// functions, e.g. routing runtime output into testing.T.Logf or log/slog.
package logio

import (
	"bytes"
	"sync"
)

// Writer implements an io.Writer around a formatted logging function,
// emitting one Logf call per completed line.
type Writer struct {
	Logf func(string, ...interface{})

	// Prefix, if non-empty, is prepended to every emitted line.
	Prefix string

	mu  sync.Mutex
	buf bytes.Buffer
}

// Write buffers p, then flushes any completed lines through Logf; this is all
// done while holding a lock, so that writing is safe from multiple goroutines.
func (lw *Writer) Write(p []byte) (n int, err error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.buf.Write(p)
	lw.flushLines(false)
	return len(p), nil
}

// Sync flushes any partial line remaining in the internal buffer.
func (lw *Writer) Sync() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.flushLines(true)
	return nil
}

// Close calls Sync.
func (lw *Writer) Close() error { return lw.Sync() }

func (lw *Writer) flushLines(all bool) {
	for lw.buf.Len() > 0 {
		i := bytes.IndexByte(lw.buf.Bytes(), '\n')
		if i < 0 && !all {
			break
		}
		if i < 0 {
			i = lw.buf.Len()
		}
		lw.Logf("%s%s", lw.Prefix, lw.buf.Next(i))
		if lw.buf.Len() > 0 {
			lw.buf.Next(1)
		}
	}
}
