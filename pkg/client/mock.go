package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/itohio/tesseractwave/pkg/analog"
	"github.com/itohio/tesseractwave/pkg/channel"
	"github.com/itohio/tesseractwave/pkg/link"
	"github.com/itohio/tesseractwave/pkg/session"
)

// MockConfig describes the simulated agent.
type MockConfig struct {
	Board     string
	Labels    []string
	RateHz    int
	Simulated analog.SimulatedConfig
}

// Mock runs a complete agent session in process, fed by simulated analog
// inputs, and talks to it over an in-memory pipe.
type Mock struct {
	*Serial

	cfg MockConfig

	mu     sync.Mutex
	agent  net.Conn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMock creates a mocked device. A nil cfg simulates six channels A0-A5.
func NewMock(cfg *MockConfig) *Mock {
	if cfg == nil {
		cfg = &MockConfig{
			Board:  "mock",
			Labels: []string{"A0", "A1", "A2", "A3", "A4", "A5"},
			RateHz: session.DefaultSampleRateHz,
			Simulated: analog.SimulatedConfig{
				Resolution: 10,
				Period:     2 * time.Second,
				Noise:      0.01,
			},
		}
	}

	m := &Mock{cfg: *cfg}
	m.Serial = NewWithOpener("mock", m.start, DefaultBufferSize)
	return m
}

// start builds the agent session and returns the host end of the pipe.
func (m *Mock) start() (io.ReadWriteCloser, error) {
	ids := make([]channel.ID, len(m.cfg.Labels))
	for i := range ids {
		ids[i] = channel.ID(i)
	}
	set, err := channel.New(ids, m.cfg.Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to create mock channels: %w", err)
	}

	host, dev := net.Pipe()
	stream := link.NewStream(dev, 0)

	sess, err := session.New(session.Config{
		BoardName:    m.cfg.Board,
		SampleRateHz: m.cfg.RateHz,
	}, set, session.Hardware{
		Analog: analog.NewSimulated(m.cfg.Simulated),
		Link:   stream,
	})
	if err != nil {
		return nil, multierr.Combine(err, host.Close(), dev.Close())
	}

	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.agent = dev
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		// Begin blocks on the pipe until the host reader runs.
		if err := sess.Begin(); err != nil {
			return
		}
		_ = sess.Run(ctx)
	}()

	return host, nil
}

// Close stops the client, then the simulated agent.
func (m *Mock) Close() error {
	err := m.Serial.Close()

	m.mu.Lock()
	agent, cancel := m.agent, m.cancel
	m.agent, m.cancel = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return err
	}

	cancel()
	m.wg.Wait()
	return multierr.Append(err, agent.Close())
}
