// Package tail reads the bytes appended to a transcript since the last read
// and splits them into complete lines.
package tail

import (
	"bytes"
	"io"
	"os"

	"github.com/vanpelt/monorail/internal/logger"
)

// ReadFrom returns every byte appended to path since offset together with the
// new offset, which is the end of the file at read time. A file that has
// disappeared or shrunk below offset yields no content and leaves the offset
// unchanged; the next read that finds the file grown again picks up from there.
func ReadFrom(path string, offset int64) ([]byte, int64) {
	file, err := os.Open(path)
	if err != nil {
		logger.Debugf("📄 Transcript %s unreadable: %v", path, err)
		return nil, offset
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset
	}

	size := info.Size()
	if size < offset {
		logger.Debugf("📄 Transcript %s shrank below offset %d (size %d), waiting", path, offset, size)
		return nil, offset
	}
	if size == offset {
		return nil, offset
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset
	}

	// Only the bytes present at Stat time are consumed; anything written
	// after that arrives with the next notification.
	data := make([]byte, size-offset)
	n, err := io.ReadFull(file, data)
	if err != nil && err != io.ErrUnexpectedEOF {
		logger.Debugf("📄 Transcript %s read failed: %v", path, err)
		return nil, offset
	}
	return data[:n], offset + int64(n)
}

// LineBuffer carries an incomplete trailing line between reads so only
// newline-terminated records are ever handed to a parser.
type LineBuffer struct {
	partial []byte
}

// Push appends chunk to any carried partial line and returns the complete
// lines, each without its terminating newline. The remainder is held.
func (b *LineBuffer) Push(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}

	combined := append(b.partial, chunk...)
	last := bytes.LastIndexByte(combined, '\n')
	if last < 0 {
		b.partial = combined
		return nil
	}

	complete := combined[:last]
	b.partial = append([]byte(nil), combined[last+1:]...)

	parts := bytes.Split(complete, []byte{'\n'})
	lines := make([]string, 0, len(parts))
	for _, part := range parts {
		lines = append(lines, string(bytes.TrimSuffix(part, []byte{'\r'})))
	}
	return lines
}

// Pending returns the bytes held back waiting for a newline.
func (b *LineBuffer) Pending() []byte {
	return b.partial
}
