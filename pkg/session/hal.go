package session

import (
	"time"

	"github.com/itohio/tesseractwave/pkg/channel"
)

// Analog reads the physical inputs behind channel IDs.
type Analog interface {
	// ConfigureInput prepares a channel for analog input. Called once per
	// channel from Begin.
	ConfigureInput(id channel.ID) error
	// ReadValue performs a one-shot conversion on the channel.
	ReadValue(id channel.ID) (int, error)
}

// Link is the line-oriented connection to the host.
type Link interface {
	// LineAvailable reports, without blocking, whether ReadLine has a
	// complete line to return.
	LineAvailable() bool
	// ReadLine returns the next line without its terminator.
	ReadLine() (string, error)
	// WriteLine writes line followed by a line terminator.
	WriteLine(line string) error
}

// Delayer suspends the loop for the pacing interval.
type Delayer interface {
	DelayMilliseconds(ms int)
}

// SleepDelayer paces with time.Sleep.
type SleepDelayer struct{}

// DelayMilliseconds implements Delayer.
func (SleepDelayer) DelayMilliseconds(ms int) {
	if ms <= 0 {
		return
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// Hardware groups the collaborators a session drives.
type Hardware struct {
	Analog Analog
	Link   Link
	Delay  Delayer
}

// Observer receives notifications about session activity. Implementations
// must be cheap; they run inline in the loop.
type Observer interface {
	CommandHandled(kind string)
	CommandRejected(err error)
	SampleEmitted(values int)
	ReadFailed(id channel.ID, err error)
	StateChanged(running bool, rateHz int, enabled int)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) CommandHandled(string) {}
func (NopObserver) CommandRejected(error) {}
func (NopObserver) SampleEmitted(int) {}
func (NopObserver) ReadFailed(channel.ID, error) {}
func (NopObserver) StateChanged(bool, int, int) {}

var _ Observer = NopObserver{}
