// Package sse decodes a Server-Sent Events byte stream into discrete JSON
// payloads, matching the wire format used by the Chat Completions streaming
// endpoint: lines grouped into records separated by a blank line, only
// lines prefixed "data: " carry payload, and a payload equal to the
// literal "[DONE]" terminates the stream normally.
package sse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// ErrMalformed is returned by Next when a "data:" line cannot be parsed as
// JSON. It is fatal for the current request per spec.md §4.1.
var ErrMalformed = errors.New("sse: malformed data line")

const dataPrefix = "data: "

// Decoder reads records from an underlying byte stream and yields the raw
// JSON payload of each one. Bytes that straddle read boundaries (including
// mid-line and mid-UTF-8-codepoint splits) are buffered internally by the
// wrapped bufio.Scanner; only complete lines are ever inspected.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder wraps r for SSE decoding. The caller owns closing r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	// Chat completion tool-call argument fragments can be large; allow
	// lines well beyond bufio's 64KB default.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			return i + 1, bytes.TrimSuffix(data[:i], []byte("\r")), nil
		}
		if atEOF {
			// Drop an unterminated final line.
			return len(data), nil, nil
		}
		return 0, nil, nil
	})
	return &Decoder{scanner: scanner}
}

// Next reads the stream until it has a complete record to yield. It
// returns the decoded JSON payload, or done=true once the [DONE] sentinel
// is observed or the stream ends without one (spec.md §4.1: "incomplete
// trailing bytes at end-of-stream without a terminator are discarded").
// Non-"data:" lines (comments, blank separators, event names) are skipped
// silently.
func (d *Decoder) Next() (payload json.RawMessage, done bool, err error) {
	for d.scanner.Scan() {
		line := d.scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		data := strings.TrimPrefix(line, dataPrefix)
		if data == "[DONE]" {
			return nil, true, nil
		}
		if !json.Valid([]byte(data)) {
			return nil, false, ErrMalformed
		}
		return json.RawMessage(data), false, nil
	}
	if err := d.scanner.Err(); err != nil {
		return nil, false, err
	}
	// Stream ended without a terminator: treat as a normal end.
	return nil, true, nil
}
