// Package session implements the acquisition agent: the command protocol,
// the channel selection it drives and the paced sampling step.
//
// A Session is single-threaded. One goroutine calls LoopOnce (usually via
// Run); the only suspension point is the pacing delay inside SampleStep.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"go.uber.org/multierr"

	"github.com/itohio/tesseractwave/pkg/channel"
	"github.com/itohio/tesseractwave/pkg/wire"
)

const (
	// DefaultSampleRateHz is the sampling rate until the host configures one.
	DefaultSampleRateHz = 100
	// DefaultIdleInterval is how long Run yields when an iteration had
	// nothing to do.
	DefaultIdleInterval = time.Millisecond
)

var (
	// ErrLinkFailed wraps a ReadLine error. The link is assumed unusable
	// afterwards and Run returns it.
	ErrLinkFailed = errors.New("link read failed")
	// ErrLineDiscarded may be returned by a Link for a received line it had
	// to drop, e.g. one longer than its buffer. Unlike other read errors it
	// does not end Run.
	ErrLineDiscarded = errors.New("received line discarded")
)

// Config holds the session parameters fixed at construction.
type Config struct {
	BoardName    string
	SampleRateHz int // 0 means DefaultSampleRateHz
	IdleInterval time.Duration
	Logger       *log.Logger // nil discards log output
	Observer     Observer    // nil means NopObserver
}

// Session is the acquisition state: run flag, sample rate and the channel set
// it owns exclusively.
type Session struct {
	board   string
	running bool
	rateHz  int

	channels *channel.Set
	hw       Hardware

	idle time.Duration
	log  *log.Logger
	obs  Observer

	// reused between sample steps
	values []int
	line   []byte
}

// New creates a stopped session. The channel set must not be shared with
// another session.
func New(cfg Config, channels *channel.Set, hw Hardware) (*Session, error) {
	if channels == nil {
		return nil, errors.New("channel set is required")
	}
	if hw.Analog == nil {
		return nil, errors.New("analog collaborator is required")
	}
	if hw.Link == nil {
		return nil, errors.New("link collaborator is required")
	}
	if err := channel.CheckName(cfg.BoardName); err != nil {
		return nil, fmt.Errorf("board: %w", err)
	}
	if hw.Delay == nil {
		hw.Delay = SleepDelayer{}
	}
	if cfg.SampleRateHz < 0 {
		return nil, fmt.Errorf("%w: %d", wire.ErrInvalidRate, cfg.SampleRateHz)
	}
	if cfg.SampleRateHz == 0 {
		cfg.SampleRateHz = DefaultSampleRateHz
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = DefaultIdleInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}

	return &Session{
		board:    cfg.BoardName,
		rateHz:   cfg.SampleRateHz,
		channels: channels,
		hw:       hw,
		idle:     cfg.IdleInterval,
		log:      cfg.Logger,
		obs:      cfg.Observer,
		values:   make([]int, 0, channels.Len()),
		line:     make([]byte, 0, 8*channels.Len()),
	}, nil
}

// Board returns the board name reported in info replies.
func (s *Session) Board() string {
	return s.board
}

// Running reports whether sampling is on.
func (s *Session) Running() bool {
	return s.running
}

// SampleRateHz returns the configured sampling rate.
func (s *Session) SampleRateHz() int {
	return s.rateHz
}

// Channels returns the channel set owned by the session.
func (s *Session) Channels() *channel.Set {
	return s.channels
}

// PaceMilliseconds returns the delay applied after every sample line:
// 1000 / rate using integer division, so rates above 1000 Hz do not pace.
func (s *Session) PaceMilliseconds() int {
	return 1000 / s.rateHz
}

// Begin configures every channel as an input and announces readiness on
// the link. The link must already be up.
func (s *Session) Begin() error {
	for i, id := range s.channels.All() {
		if err := s.hw.Analog.ConfigureInput(id); err != nil {
			return fmt.Errorf("failed to configure channel %d (%s): %w", i, s.channels.Label(i), err)
		}
	}
	s.obs.StateChanged(s.running, s.rateHz, s.channels.EnabledCount())

	if err := s.hw.Link.WriteLine(wire.Ready); err != nil {
		return fmt.Errorf("failed to announce readiness: %w", err)
	}
	return nil
}

// HandleConfigure parses and applies a configuration command. The command is
// validated completely before any state changes; a rejected command leaves
// the session untouched, is answered with ERR and its parse error is
// returned. An accepted command is answered with OK.
func (s *Session) HandleConfigure(line string) error {
	settings, err := wire.ParseSettings(line, s.channels.Len())
	if err != nil {
		s.obs.CommandRejected(err)
		s.log.Printf("Rejected configuration command %q: %v", line, err)
		if werr := s.hw.Link.WriteLine(wire.ERR); werr != nil {
			return multierr.Append(err, fmt.Errorf("failed to write rejection: %w", werr))
		}
		return err
	}

	s.running = settings.Run
	s.rateHz = settings.RateHz
	s.channels.ApplySelection(settings.Mask)

	s.obs.CommandHandled(wire.Configure.String())
	s.obs.StateChanged(s.running, s.rateHz, s.channels.EnabledCount())

	if err := s.hw.Link.WriteLine(wire.OK); err != nil {
		return fmt.Errorf("failed to acknowledge configuration: %w", err)
	}
	return nil
}

// HandleInfo writes the board description. It does not change state.
func (s *Session) HandleInfo() error {
	d := s.channels.Describe()
	info := wire.FormatInfo(wire.Info{
		Board:   s.board,
		RateHz:  s.rateHz,
		Labels:  d.Labels,
		Enabled: d.Enabled,
	})

	s.obs.CommandHandled(wire.Query.String())

	if err := s.hw.Link.WriteLine(info); err != nil {
		return fmt.Errorf("failed to write info: %w", err)
	}
	return nil
}

// SampleStep reads every enabled channel in channel order, writes them as
// one line and then waits PaceMilliseconds. A failed read aborts the line;
// the error is returned as reported by the analog collaborator and the
// step still paces.
//
// The loop only calls SampleStep while running.
func (s *Session) SampleStep() error {
	err := s.emitSample()
	s.hw.Delay.DelayMilliseconds(s.PaceMilliseconds())
	return err
}

func (s *Session) emitSample() error {
	values := s.values[:0]
	for i, id := range s.channels.Enabled() {
		v, err := s.hw.Analog.ReadValue(id)
		if err != nil {
			s.obs.ReadFailed(id, err)
			return fmt.Errorf("failed to read channel %d (%s): %w", i, s.channels.Label(i), err)
		}
		values = append(values, v)
	}
	s.values = values

	s.line = wire.AppendSample(s.line[:0], values)
	if err := s.hw.Link.WriteLine(string(s.line)); err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	s.obs.SampleEmitted(len(values))
	return nil
}

// Dispatch routes one host line by its first character. Unknown commands
// are ignored without a response.
func (s *Session) Dispatch(line string) error {
	switch wire.Kind(line) {
	case wire.Configure:
		return s.HandleConfigure(line)
	case wire.Query:
		return s.HandleInfo()
	default:
		return nil
	}
}

// LoopOnce runs one iteration: a sample step when running, then at most one
// host command if a line is available. Within an iteration the sample line
// always precedes the command response.
func (s *Session) LoopOnce() error {
	_, err := s.loopOnce()
	return err
}

// loopOnce reports whether the iteration did any work.
func (s *Session) loopOnce() (bool, error) {
	var err error
	busy := s.running
	if s.running {
		err = s.SampleStep()
	}

	if !s.hw.Link.LineAvailable() {
		return busy, err
	}

	line, rerr := s.hw.Link.ReadLine()
	switch {
	case rerr == nil:
	case errors.Is(rerr, ErrLineDiscarded):
		return true, multierr.Append(err, fmt.Errorf("failed to read command: %w", rerr))
	default:
		return true, multierr.Append(err, fmt.Errorf("%w: %w", ErrLinkFailed, rerr))
	}
	return true, multierr.Append(err, s.Dispatch(line))
}

// Run drives LoopOnce until ctx is cancelled or the link stops delivering
// lines. EOF ends it with nil, any other link read error is returned. Other
// errors of individual iterations are logged and the loop continues.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		busy, err := s.loopOnce()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Printf("Link closed, stopping")
				return nil
			}
			if errors.Is(err, ErrLinkFailed) {
				return err
			}
			s.log.Printf("Loop iteration failed: %v", err)
		}

		if !busy {
			time.Sleep(s.idle)
		}
	}
}
