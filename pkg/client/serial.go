package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/itohio/tesseractwave/pkg/link"
	"github.com/itohio/tesseractwave/pkg/wire"
)

const (
	// DefaultBufferSize is the default size for the samples channel buffer.
	DefaultBufferSize = 100
	// DefaultResponseTimeout bounds the wait for OK, ERR or an info reply.
	DefaultResponseTimeout = time.Second

	closeTimeout = time.Second
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrRejected         = errors.New("agent rejected command")
	ErrTimeout          = errors.New("timed out waiting for agent reply")
	ErrUnexpectedReply  = errors.New("unexpected agent reply")
)

// Opener opens the byte stream to the agent.
type Opener func() (io.ReadWriteCloser, error)

// Serial is a connection to an agent over a serial port or any other byte
// stream.
type Serial struct {
	open    Opener
	name    string
	timeout time.Duration

	conn      io.ReadWriteCloser
	samples   chan Reading
	replies   chan string
	readDone  chan struct{}
	mu        sync.RWMutex
	cmdMu     sync.Mutex // one outstanding command at a time
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// New creates a client for the agent on the given serial port. Zero values
// select link.DefaultBaudRate, the default driver and DefaultBufferSize.
func New(port string, baudRate int, driver string, bufSize int) *Serial {
	return NewWithOpener(port, func() (io.ReadWriteCloser, error) {
		return link.Open(port, baudRate, driver)
	}, bufSize)
}

// NewWithOpener creates a client that reaches the agent through open.
func NewWithOpener(name string, open Opener, bufSize int) *Serial {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		open:    open,
		name:    name,
		timeout: DefaultResponseTimeout,
		samples: make(chan Reading, bufSize),
		replies: make(chan string, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetResponseTimeout changes how long Configure and Info wait for a reply.
func (d *Serial) SetResponseTimeout(timeout time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timeout = timeout
}

// Connect opens the stream and starts reading lines.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrAlreadyConnected
	}
	if d.ctx.Err() != nil {
		return fmt.Errorf("client for %s was closed", d.name)
	}

	conn, err := d.open()
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", d.name, err)
	}

	d.conn = conn
	d.connected = true
	d.readDone = make(chan struct{})

	go d.readLines(conn)

	return nil
}

// Close closes the connection and the samples channel.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	var err error
	if d.conn != nil {
		err = d.conn.Close()
		d.conn = nil
	}

	select {
	case <-d.readDone:
	case <-time.After(closeTimeout):
		err = multierr.Append(err, fmt.Errorf("reader of %s did not stop", d.name))
	}

	d.connected = false
	close(d.samples)

	if err != nil {
		return fmt.Errorf("failed to close %s: %w", d.name, err)
	}
	return nil
}

// Samples returns the channel for reading samples.
func (d *Serial) Samples() <-chan Reading {
	return d.samples
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Configure sends a configuration command and waits for the agent to accept
// it. A rejection is reported as ErrRejected.
func (d *Serial) Configure(settings wire.Settings) error {
	reply, err := d.command(settings.Line())
	if err != nil {
		return err
	}

	switch reply {
	case wire.OK:
		return nil
	case wire.ERR:
		return fmt.Errorf("%w: %q", ErrRejected, settings.Line())
	default:
		return fmt.Errorf("%w to configure: %q", ErrUnexpectedReply, reply)
	}
}

// Info queries the agent for its board name, channels and rate.
func (d *Serial) Info() (wire.Info, error) {
	reply, err := d.command("i")
	if err != nil {
		return wire.Info{}, err
	}
	if !wire.IsInfo(reply) {
		return wire.Info{}, fmt.Errorf("%w to info: %q", ErrUnexpectedReply, reply)
	}
	return wire.ParseInfo(reply)
}

func (d *Serial) command(line string) (string, error) {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()

	d.mu.RLock()
	conn, timeout := d.conn, d.timeout
	connected := d.connected
	d.mu.RUnlock()

	if !connected {
		return "", ErrNotConnected
	}

	// Drop a reply nobody waited for.
	select {
	case <-d.replies:
	default:
	}

	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		return "", fmt.Errorf("failed to send command %q: %w", line, err)
	}

	select {
	case reply := <-d.replies:
		return reply, nil
	case <-time.After(timeout):
		return "", fmt.Errorf("%w: %q", ErrTimeout, line)
	case <-d.ctx.Done():
		return "", ErrNotConnected
	}
}

// readLines sorts agent lines into replies and samples.
func (d *Serial) readLines(conn io.Reader) {
	defer close(d.readDone)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readLines: %v", r)
		}
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == wire.Ready:
			log.Printf("Agent on %s is ready", d.name)
		case line == wire.OK, line == wire.ERR, wire.IsInfo(line):
			select {
			case d.replies <- line:
			default:
				log.Printf("Dropping unsolicited reply %q", line)
			}
		default:
			values, err := wire.ParseSample(line)
			if err != nil {
				log.Printf("Failed to parse line '%s': %v", line, err)
				continue
			}
			select {
			case d.samples <- Reading{Timestamp: time.Now(), Values: values}:
			default:
				log.Printf("Samples channel full, dropping sample")
			}
		}
	}

	if err := scanner.Err(); err != nil && d.ctx.Err() == nil {
		log.Printf("Error reading from %s: %v", d.name, err)
	}
}
