package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// ErrClosed indicates the endpoint was closed locally.
var ErrClosed = errors.New("transport closed")

// Endpoint is one framed DAP payload stream.
type Endpoint interface {
	ReadPayload() ([]byte, error)
	WritePayload(payload []byte) error
	Close() error
}

// Stream frames DAP payloads with Content-Length headers over a reader/writer
// pair: stdio, subprocess pipes, or a TCP connection.
type Stream struct {
	readMu  sync.Mutex
	writeMu sync.Mutex
	rd      *bufio.Reader
	w       io.Writer
	closers []io.Closer
}

// NewStream wraps a reader/writer pair. Any of r, w that implement io.Closer
// are closed by Close.
func NewStream(r io.Reader, w io.Writer) *Stream {
	s := &Stream{
		rd: bufio.NewReader(r),
		w:  w,
	}
	if c, ok := r.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}
	if c, ok := w.(io.Closer); ok && any(w) != any(r) {
		s.closers = append(s.closers, c)
	}
	return s
}

// ReadPayload reads one Content-Length framed payload.
func (s *Stream) ReadPayload() ([]byte, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	headers := map[string]string{}
	for {
		line, err := s.rd.ReadString('\n')
		if err != nil {
			return nil, err
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}
		colon := strings.Index(trimmed, ":")
		if colon < 0 {
			return nil, fmt.Errorf("invalid DAP header line %q", trimmed)
		}
		key := strings.ToLower(strings.TrimSpace(trimmed[:colon]))
		value := strings.TrimSpace(trimmed[colon+1:])
		headers[key] = value
	}

	rawLength, ok := headers["content-length"]
	if !ok {
		return nil, errors.New("missing Content-Length header")
	}
	length, err := strconv.Atoi(rawLength)
	if err != nil || length < 0 {
		return nil, fmt.Errorf("invalid Content-Length %q", rawLength)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(s.rd, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WritePayload writes one Content-Length framed payload.
func (s *Stream) WritePayload(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := fmt.Fprintf(s.w, "Content-Length: %d\r\n\r\n", len(payload)); err != nil {
		return err
	}
	_, err := s.w.Write(payload)
	return err
}

// Close closes the underlying reader/writer where possible.
func (s *Stream) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
