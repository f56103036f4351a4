// Package client talks to an acquisition agent from the host side: it sends
// configure and info commands and delivers sample lines as readings.
package client

import (
	"time"

	"github.com/itohio/tesseractwave/pkg/wire"
)

// Reading is one sample line received from the agent. A running agent with
// no channels enabled still sends a line per pacing interval, delivered as a
// Reading with no values.
type Reading struct {
	Timestamp time.Time // host receive time
	Values    []int     // enabled channels in ascending channel order
}

// Device defines the interface for acquisition agents (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Samples() <-chan Reading
	Configure(settings wire.Settings) error
	Info() (wire.Info, error)
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
