package flushio

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriteFlusher(t *testing.T) {
	assert.Equal(t, discardWriteFlusher, NewWriteFlusher(nil))
	assert.Equal(t, discardWriteFlusher, NewWriteFlusher(io.Discard))

	var buf bytes.Buffer
	assert.Equal(t, nopFlusher{&buf}, NewWriteFlusher(&buf))

	bw := bufio.NewWriter(&buf)
	assert.Same(t, bw, NewWriteFlusher(bw))

	_, isBuffered := NewWriteFlusher(os.Stderr).(*bufio.Writer)
	assert.True(t, isBuffered)
}

func TestWriteFlushers(t *testing.T) {
	assert.Equal(t, discardWriteFlusher, WriteFlushers())
	assert.Equal(t, discardWriteFlusher, WriteFlushers(nil, NewWriteFlusher(nil)))

	var a, b bytes.Buffer
	bw := bufio.NewWriter(&b)
	wf := WriteFlushers(NewWriteFlusher(nil), NewWriteFlusher(&a), WriteFlushers(bw))
	_, err := wf.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", a.String())
	assert.Equal(t, "", b.String(), "expected buffered until flush")
	require.NoError(t, wf.Flush())
	assert.Equal(t, "hello", b.String())
}
