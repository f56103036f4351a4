package session

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/itohio/tesseractwave/pkg/channel"
)

type fakeAnalog struct {
	values     map[channel.ID]int
	failures   map[channel.ID]error
	configured []channel.ID
	configErr  error
	reads      []channel.ID
}

func newFakeAnalog() *fakeAnalog {
	return &fakeAnalog{
		values:   map[channel.ID]int{},
		failures: map[channel.ID]error{},
	}
}

func (a *fakeAnalog) ConfigureInput(id channel.ID) error {
	if a.configErr != nil {
		return a.configErr
	}
	a.configured = append(a.configured, id)
	return nil
}

func (a *fakeAnalog) ReadValue(id channel.ID) (int, error) {
	a.reads = append(a.reads, id)
	if err, ok := a.failures[id]; ok {
		return 0, err
	}
	return a.values[id], nil
}

type written struct {
	line string
	at   time.Time
}

type fakeLink struct {
	input    []string
	closed   bool
	readErr  error // returned once input is drained
	discards int   // lines dropped before input is delivered
	out      []written
	writeErr error
}

func (l *fakeLink) send(lines ...string) {
	l.input = append(l.input, lines...)
}

func (l *fakeLink) LineAvailable() bool {
	return len(l.input) > 0 || l.closed || l.readErr != nil || l.discards > 0
}

func (l *fakeLink) ReadLine() (string, error) {
	if l.discards > 0 {
		l.discards--
		return "", fmt.Errorf("line too long: %w", ErrLineDiscarded)
	}
	if len(l.input) == 0 {
		if l.readErr != nil {
			return "", l.readErr
		}
		if l.closed {
			return "", io.EOF
		}
		return "", errors.New("no line available")
	}
	line := l.input[0]
	l.input = l.input[1:]
	return line, nil
}

func (l *fakeLink) WriteLine(line string) error {
	if l.writeErr != nil {
		return l.writeErr
	}
	l.out = append(l.out, written{line: line, at: time.Now()})
	return nil
}

func (l *fakeLink) lines() []string {
	lines := make([]string, len(l.out))
	for i, w := range l.out {
		lines[i] = w.line
	}
	return lines
}

func (l *fakeLink) reset() {
	l.out = nil
}

type fakeDelay struct {
	delays []int
}

func (d *fakeDelay) DelayMilliseconds(ms int) {
	d.delays = append(d.delays, ms)
}

type recordingObserver struct {
	handled  []string
	rejected []error
	samples  []int
	failed   []channel.ID
	states   []string
}

func (o *recordingObserver) CommandHandled(kind string) {
	o.handled = append(o.handled, kind)
}

func (o *recordingObserver) CommandRejected(err error) {
	o.rejected = append(o.rejected, err)
}

func (o *recordingObserver) SampleEmitted(values int) {
	o.samples = append(o.samples, values)
}

func (o *recordingObserver) ReadFailed(id channel.ID, _ error) {
	o.failed = append(o.failed, id)
}

func (o *recordingObserver) StateChanged(running bool, _ int, _ int) {
	if running {
		o.states = append(o.states, "running")
	} else {
		o.states = append(o.states, "stopped")
	}
}
