// Package analog provides analog-read collaborators for agents running on a
// host rather than on a microcontroller.
package analog

import (
	"errors"
	"fmt"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/tesseractwave/pkg/channel"
	"github.com/itohio/tesseractwave/pkg/session"
)

var (
	// ErrNotConfigured is returned when reading a channel that was never
	// configured as an input.
	ErrNotConfigured = errors.New("channel not configured as input")
	// ErrNoSuchInput is returned for channel IDs the converter does not have.
	ErrNoSuchInput = errors.New("no such analog input")
)

var _ session.Analog = (*Simulated)(nil)

// SimulatedConfig parameterises the simulated waveforms.
type SimulatedConfig struct {
	Resolution int           // bits, 10 when zero
	Period     time.Duration // sine period, 1s when zero
	Amplitude  float32       // fraction of full scale, 0.4 when zero
	Noise      float32       // fraction of full scale
}

// Simulated produces a sine per channel, shifted in phase by channel ID, so
// that every enabled channel is distinguishable on a plot.
type Simulated struct {
	cfg SimulatedConfig
	max float32

	start      time.Time
	now        func() time.Time
	configured map[channel.ID]bool
}

// NewSimulated creates a simulated analog source starting at the current time.
func NewSimulated(cfg SimulatedConfig) *Simulated {
	if cfg.Resolution <= 0 {
		cfg.Resolution = 10
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	if cfg.Amplitude == 0 {
		cfg.Amplitude = 0.4
	}

	return &Simulated{
		cfg:        cfg,
		max:        float32(int(1)<<cfg.Resolution - 1),
		start:      time.Now(),
		now:        time.Now,
		configured: make(map[channel.ID]bool),
	}
}

// Max returns the full-scale reading.
func (s *Simulated) Max() int {
	return int(s.max)
}

// ConfigureInput implements session.Analog.
func (s *Simulated) ConfigureInput(id channel.ID) error {
	s.configured[id] = true
	return nil
}

// ReadValue implements session.Analog.
func (s *Simulated) ReadValue(id channel.ID) (int, error) {
	if !s.configured[id] {
		return 0, fmt.Errorf("%w: %d", ErrNotConfigured, id)
	}
	return s.valueAt(id, s.now().Sub(s.start)), nil
}

func (s *Simulated) valueAt(id channel.ID, elapsed time.Duration) int {
	t := float32(elapsed.Seconds())
	phase := float32(id) * math32.Pi / 4
	omega := 2 * math32.Pi / float32(s.cfg.Period.Seconds())

	mid := s.max / 2
	v := mid + s.cfg.Amplitude*s.max*math32.Sin(omega*t+phase)

	if s.cfg.Noise > 0 {
		// Deterministic pseudo noise, same trick as a beat of two fast tones.
		n := (math32.Sin(t*1000) + math32.Cos(t*1300)) * 0.5
		v += n * s.cfg.Noise * s.max
	}

	v = math32.Round(v)
	if v < 0 {
		v = 0
	} else if v > s.max {
		v = s.max
	}
	return int(v)
}
