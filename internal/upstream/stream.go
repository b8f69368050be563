package upstream

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/asterhq/aster/internal/log"
)

// ErrStreamClosed is returned by Recv after Close.
var ErrStreamClosed = errors.New("upstream: stream closed")

// doneSentinel terminates an SSE completion stream.
const doneSentinel = "[DONE]"

// maxLineBytes bounds one SSE line. A single frame carries at most one delta,
// so frames are small; the large cap only guards against a misbehaving peer.
const maxLineBytes = 1 << 20

// Stream reads decoded frames off one streaming completion response.
// Not safe for concurrent use; one goroutine owns a Stream.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	logger  log.Logger
	closed  bool
}

// NewStream wraps an SSE response body. Exposed so callers can build streams
// from canned bodies in tests.
func NewStream(body io.ReadCloser, logger log.Logger) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Stream{
		body:    body,
		scanner: scanner,
		logger:  logger,
	}
}

// Recv returns the next decoded frame.
//
// io.EOF signals orderly termination (the [DONE] sentinel or a clean body
// close). Any other error means the connection dropped before a terminal
// signal; the caller decides how to treat the partial stream. Malformed lines
// are logged and skipped: one corrupt frame never aborts a healthy stream.
func (s *Stream) Recv() (*Chunk, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue // keep-alive or event separator
		}

		data, found := strings.CutPrefix(line, "data:")
		if !found {
			s.logger.Debug("skipping unexpected stream line", "line", truncate(line, 120))
			continue
		}
		data = strings.TrimSpace(data)

		if data == doneSentinel {
			return nil, io.EOF
		}

		var chunk Chunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			s.logger.Debug("skipping malformed stream frame",
				"error", err,
				"frame", truncate(data, 120))
			continue
		}
		return &chunk, nil
	}

	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	// Body ended without [DONE]; treat as orderly EOF and let the caller
	// decide whether the absence of a finish reason matters.
	return nil, io.EOF
}

// Close releases the underlying connection. Safe to call more than once.
// Closing mid-stream aborts the in-flight read promptly rather than draining
// the body.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
