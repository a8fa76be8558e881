package tailer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// PollResult is the outcome of a single Poll.
type PollResult struct {
	// Lines holds the complete lines appended since the previous poll,
	// without line terminators.
	Lines []string

	// Truncated is true when the file shrank below the stored offset and
	// reading restarted from the beginning.
	Truncated bool
}

// Poller reads newly appended lines from a file by tracking a byte offset.
// It is not safe for concurrent use; the owning goroutine calls Poll.
type Poller struct {
	path   string
	offset int64
}

// NewPoller creates a Poller for path with offset zero.
func NewPoller(path string) *Poller {
	return &Poller{path: path}
}

// Path returns the polled file path.
func (p *Poller) Path() string {
	return p.path
}

// Offset returns the byte offset up to which lines have been consumed.
func (p *Poller) Offset() int64 {
	return p.offset
}

// SeekEnd moves the offset to the current end of the file so existing
// content is never replayed. If the file cannot be stat'ed the offset is
// reset to zero and the error is returned.
func (p *Poller) SeekEnd() error {
	info, err := os.Stat(p.path)
	if err != nil {
		p.offset = 0
		return err
	}
	p.offset = info.Size()
	return nil
}

// Poll performs one read tick.
//
// If the file is smaller than the stored offset it was truncated or
// rotated, and reading restarts at offset zero. Only complete lines are
// returned; a trailing line without a newline is left for the next poll.
// Invalid UTF-8 is replaced with U+FFFD.
func (p *Poller) Poll() (PollResult, error) {
	var res PollResult

	info, err := os.Stat(p.path)
	if err != nil {
		return res, err
	}
	size := info.Size()

	if size < p.offset {
		p.offset = 0
		res.Truncated = true
	}
	if size <= p.offset {
		return res, nil
	}

	f, err := os.Open(p.path)
	if err != nil {
		return res, err
	}
	defer f.Close()

	if _, err := f.Seek(p.offset, io.SeekStart); err != nil {
		return res, fmt.Errorf("seeking to %d: %w", p.offset, err)
	}

	buf, err := io.ReadAll(io.LimitReader(f, size-p.offset))
	if err != nil {
		return res, fmt.Errorf("reading: %w", err)
	}

	end := bytes.LastIndexByte(buf, '\n')
	if end < 0 {
		return res, nil
	}
	chunk := buf[:end+1]

	decoder := unicode.UTF8.NewDecoder()
	if p.offset == 0 {
		decoder = unicode.UTF8BOM.NewDecoder()
	}
	text, _, err := transform.Bytes(decoder, chunk)
	if err != nil {
		return res, fmt.Errorf("decoding: %w", err)
	}

	p.offset += int64(len(chunk))
	res.Lines = splitLines(string(text))
	return res, nil
}

// splitLines splits s on newlines, strips CR and drops empty lines.
func splitLines(s string) []string {
	raw := strings.Split(s, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSuffix(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
