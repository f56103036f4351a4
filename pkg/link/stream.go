// Package link provides the line-oriented connection between the agent and
// a host: a Stream over any io.ReadWriter and serial port backends to run it on.
package link

import (
	"bufio"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	// DefaultBufferLines is how many received lines a Stream holds before
	// its reader stops pulling from the port.
	DefaultBufferLines = 16
	// Terminator ends every written line.
	Terminator = "\r\n"
)

// Stream turns a byte stream into lines. A background goroutine plays the
// role of a UART receive buffer so LineAvailable never blocks.
type Stream struct {
	rw io.ReadWriter

	lines    chan string
	finished atomic.Bool
	err      error // set before lines is closed

	closing   chan struct{}
	closeOnce sync.Once

	wmu sync.Mutex
	buf []byte
}

// NewStream starts reading lines from rw. bufLines <= 0 uses DefaultBufferLines.
func NewStream(rw io.ReadWriter, bufLines int) *Stream {
	if bufLines <= 0 {
		bufLines = DefaultBufferLines
	}

	s := &Stream{
		rw:      rw,
		lines:   make(chan string, bufLines),
		closing: make(chan struct{}),
	}
	go s.readLines()
	return s
}

func (s *Stream) readLines() {
	defer close(s.lines)
	defer s.finished.Store(true)

	scanner := bufio.NewScanner(s.rw)
	for scanner.Scan() {
		select {
		case s.lines <- strings.TrimRight(scanner.Text(), "\r"):
		case <-s.closing:
			s.err = io.EOF
			return
		}
	}

	select {
	case <-s.closing:
		s.err = io.EOF
	default:
		s.err = scanner.Err()
		if s.err == nil {
			s.err = io.EOF
		}
	}
}

// LineAvailable reports whether ReadLine will return without blocking.
// After the underlying reader fails it stays true so ReadLine can report
// the error.
func (s *Stream) LineAvailable() bool {
	return len(s.lines) > 0 || s.finished.Load()
}

// ReadLine returns the next received line without its terminator. Once the
// reader is exhausted it returns the read error, io.EOF on a clean close.
func (s *Stream) ReadLine() (string, error) {
	line, ok := <-s.lines
	if !ok {
		return "", s.err
	}
	return line, nil
}

// WriteLine writes line followed by Terminator in a single write.
func (s *Stream) WriteLine(line string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.buf = append(s.buf[:0], line...)
	s.buf = append(s.buf, Terminator...)
	_, err := s.rw.Write(s.buf)
	return err
}

// Close stops the reader goroutine and closes the underlying port if it can
// be closed. Lines already buffered can still be read, after them ReadLine
// reports io.EOF.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() { close(s.closing) })
	if c, ok := s.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
