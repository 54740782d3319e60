package tail

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendTo(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestReadFromReturnsOnlyAppendedBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	appendTo(t, path, "first\n")

	data, offset := ReadFrom(path, 0)
	assert.Equal(t, "first\n", string(data))
	assert.Equal(t, int64(6), offset)

	data, offset = ReadFrom(path, offset)
	assert.Empty(t, data)
	assert.Equal(t, int64(6), offset)

	appendTo(t, path, "second\n")
	data, offset = ReadFrom(path, offset)
	assert.Equal(t, "second\n", string(data))
	assert.Equal(t, int64(13), offset)
}

func TestReadFromToleratesMissingFile(t *testing.T) {
	data, offset := ReadFrom(filepath.Join(t.TempDir(), "gone.jsonl"), 42)
	assert.Nil(t, data)
	assert.Equal(t, int64(42), offset)
}

func TestReadFromToleratesShrink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	appendTo(t, path, "0123456789\n")
	_, offset := ReadFrom(path, 0)

	require.NoError(t, os.WriteFile(path, []byte("abc\n"), 0644))
	data, next := ReadFrom(path, offset)
	assert.Nil(t, data)
	assert.Equal(t, offset, next, "offset is left for the next successful read")
}

func TestLineBufferHoldsPartialLine(t *testing.T) {
	var b LineBuffer

	assert.Empty(t, b.Push([]byte("ab")))
	assert.Equal(t, "ab", string(b.Pending()))

	lines := b.Push([]byte("c\nd"))
	assert.Equal(t, []string{"abc"}, lines)
	assert.Equal(t, "d", string(b.Pending()))

	lines = b.Push([]byte("\n"))
	assert.Equal(t, []string{"d"}, lines)
	assert.Empty(t, b.Pending())
}

func TestLineBufferSplitsManyLines(t *testing.T) {
	var b LineBuffer

	lines := b.Push([]byte("one\r\ntwo\n\nthree"))
	assert.Equal(t, []string{"one", "two", ""}, lines)
	assert.Equal(t, "three", string(b.Pending()))

	assert.Nil(t, b.Push(nil))
	assert.Equal(t, "three", string(b.Pending()), "an empty read keeps the partial line")
}

func TestReaderAndBufferTogether(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	var b LineBuffer

	appendTo(t, path, "ab")
	data, offset := ReadFrom(path, 0)
	assert.Empty(t, b.Push(data))

	appendTo(t, path, "c\nd")
	data, _ = ReadFrom(path, offset)
	assert.Equal(t, []string{"abc"}, b.Push(data))
	assert.Equal(t, "d", string(b.Pending()))
}
