package link

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipePort joins the read end of one pipe with a buffer collecting writes.
type pipePort struct {
	r *io.PipeReader

	mu  sync.Mutex
	out bytes.Buffer
}

func (p *pipePort) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

func (p *pipePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}

func (p *pipePort) Close() error {
	return p.r.Close()
}

func (p *pipePort) written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.String()
}

func waitAvailable(t *testing.T, s *Stream) {
	t.Helper()
	require.Eventually(t, s.LineAvailable, time.Second, time.Millisecond)
}

func TestStream_ReadLines(t *testing.T) {
	r, w := io.Pipe()
	port := &pipePort{r: r}
	s := NewStream(port, 0)

	assert.False(t, s.LineAvailable())

	go func() {
		_, _ = w.Write([]byte("s1,50,1010\r\ni\n"))
	}()

	waitAvailable(t, s)
	line, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "s1,50,1010", line)

	waitAvailable(t, s)
	line, err = s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "i", line)

	assert.False(t, s.LineAvailable())
	require.NoError(t, w.Close())

	waitAvailable(t, s)
	_, err = s.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, s.LineAvailable(), "stays available to report the error")
}

func TestStream_ReadError(t *testing.T) {
	r, w := io.Pipe()
	s := NewStream(&pipePort{r: r}, 1)

	boom := errors.New("device unplugged")
	require.NoError(t, w.CloseWithError(boom))

	waitAvailable(t, s)
	_, err := s.ReadLine()
	assert.ErrorIs(t, err, boom)
}

func TestStream_BufferedLinesBeforeEOF(t *testing.T) {
	s := NewStream(&readWriter{Reader: strings.NewReader("a\nb\nc")}, 4)

	var lines []string
	for {
		waitAvailable(t, s)
		line, err := s.ReadLine()
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
		lines = append(lines, line)
	}
	assert.Equal(t, []string{"a", "b", "c"}, lines)
}

func TestStream_WriteLine(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	port := &pipePort{r: r}
	s := NewStream(port, 0)

	require.NoError(t, s.WriteLine("OK"))
	require.NoError(t, s.WriteLine("100,300"))
	require.NoError(t, s.WriteLine(""))
	assert.Equal(t, "OK\r\n100,300\r\n\r\n", port.written())
}

func TestStream_Close(t *testing.T) {
	r, _ := io.Pipe()
	s := NewStream(&pipePort{r: r}, 0)

	require.NoError(t, s.Close())
	waitAvailable(t, s)
	_, err := s.ReadLine()
	assert.ErrorIs(t, err, io.EOF)

	// Non-closers are fine too.
	plain := NewStream(&readWriter{Reader: strings.NewReader("")}, 0)
	assert.NoError(t, plain.Close())
}

func TestStream_CloseReleasesBlockedReader(t *testing.T) {
	s := NewStream(&readWriter{Reader: strings.NewReader("a\nb\nc\n")}, 1)

	// "a" fills the buffer, the reader is left waiting to hand over "b".
	waitAvailable(t, s)
	assert.False(t, s.finished.Load())

	require.NoError(t, s.Close())
	require.Eventually(t, s.finished.Load, time.Second, time.Millisecond)

	line, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "a", line)

	_, err = s.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, s.Close())
}

type readWriter struct {
	io.Reader
	bytes.Buffer
}

func (rw *readWriter) Read(b []byte) (int, error) {
	return rw.Reader.Read(b)
}

func (rw *readWriter) Write(b []byte) (int, error) {
	return rw.Buffer.Write(b)
}

func TestOpen_Invalid(t *testing.T) {
	_, err := Open("", 0, "")
	assert.Error(t, err)

	_, err = Open("/dev/null-port", 0, "usb-magic")
	assert.ErrorContains(t, err, "unknown serial driver")
}

func TestDrivers(t *testing.T) {
	assert.Equal(t, []string{DriverBugst, DriverTarm}, Drivers())
}
