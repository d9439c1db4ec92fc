// Package stream turns a fragmented server-sent event byte stream into
// decoded messages.
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 4096

// DefaultMaxLineBytes bounds how much of a single unterminated line is buffered.
const DefaultMaxLineBytes = 1024 * 1024

// ErrLineTooLong is returned when a line grows past the configured maximum
// before its terminator arrives.
var ErrLineTooLong = errors.New("stream line exceeds maximum length")

// Reconstructor rebuilds complete lines from arbitrarily split chunks.
// A trailing partial line is carried over and prefixed to the next chunk.
type Reconstructor struct {
	buf     []byte
	scanned int // bytes of buf already known to contain no newline
	maxLine int
}

// NewReconstructor creates a Reconstructor. maxLine <= 0 disables the limit.
func NewReconstructor(maxLine int) *Reconstructor {
	return &Reconstructor{maxLine: maxLine}
}

// Feed appends a chunk and returns every line it completes, in order.
// Line terminators ("\n" or "\r\n") are stripped.
func (r *Reconstructor) Feed(chunk []byte) ([]string, error) {
	if len(chunk) == 0 {
		return nil, nil
	}
	r.buf = append(r.buf, chunk...)

	var lines []string
	start := 0
	for {
		idx := bytes.IndexByte(r.buf[start+r.scanned:], '\n')
		if idx == -1 {
			break
		}
		end := start + r.scanned + idx
		line := r.buf[start:end]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		if r.maxLine > 0 && len(line) > r.maxLine {
			r.Reset()
			return lines, fmt.Errorf("%w: %d bytes", ErrLineTooLong, len(line))
		}
		lines = append(lines, string(line))
		start = end + 1
		r.scanned = 0
	}

	// Keep only the unterminated tail.
	n := copy(r.buf, r.buf[start:])
	r.buf = r.buf[:n]
	r.scanned = n

	if r.maxLine > 0 && n > r.maxLine {
		r.Reset()
		return lines, fmt.Errorf("%w: %d bytes buffered", ErrLineTooLong, n)
	}
	return lines, nil
}

// Pending returns the number of buffered bytes that do not yet form a line.
func (r *Reconstructor) Pending() int {
	return len(r.buf)
}

// Reset discards any buffered partial line.
func (r *Reconstructor) Reset() {
	r.buf = r.buf[:0]
	r.scanned = 0
}

// ReadLines reads rd in chunks of chunkSize bytes and calls fn for every
// complete line. It stops early, returning nil, when fn returns false.
// A partial line left when rd reaches EOF is discarded.
func ReadLines(ctx context.Context, rd io.Reader, chunkSize, maxLine int, fn func(line string) bool) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	rc := NewReconstructor(maxLine)
	buf := make([]byte, chunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := rd.Read(buf)
		if n > 0 {
			lines, feedErr := rc.Feed(buf[:n])
			for _, line := range lines {
				if !fn(line) {
					return nil
				}
			}
			if feedErr != nil {
				return feedErr
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			// A cancelled request surfaces as a read error; report the cause.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("stream read failed: %w", err)
		}
	}
}
