// Package meter keeps a sliding time window of samples and per-channel
// statistics over it.
package meter

import (
	"math"
	"sync"
	"time"

	"github.com/itohio/tesseractwave/pkg/config"
	"github.com/itohio/tesseractwave/pkg/sample"
)

var _ ChannelMeter = (*Meter)(nil)

// Stats summarises one channel over the window.
type Stats struct {
	Count int
	Last  float64
	Min   float64
	Max   float64
	Mean  float64
	RMS   float64
}

// UpdateFunc receives the window and the statistics of every trace in
// sample order.
type UpdateFunc func(samples []sample.Sample, stats []Stats)

// ChannelMeter processes samples, maintains the window and reports it.
type ChannelMeter interface {
	ProcessSamples(input <-chan sample.Sample)
	Samples() []sample.Sample // FIFO, ordered first to last
	Stats() []Stats
	RateHz() float64 // measured sample lines per second
	OnUpdate(UpdateFunc)
}

// Meter implements ChannelMeter. Samples are removed by timestamp once they
// fall out of the window. A change in the number of values per sample
// (a new channel selection) restarts the window.
type Meter struct {
	window time.Duration

	mu      sync.RWMutex
	samples []sample.Sample

	callbacks []UpdateFunc
	cbMu      sync.RWMutex

	// Set when the input channel closes, prevents further callbacks
	shutdown bool
}

// New creates a Meter with the viewer window from cfg.
func New(cfg *config.Config) *Meter {
	return NewWithWindow(time.Duration(cfg.Viewer.WindowSeconds * float64(time.Second)))
}

// NewWithWindow creates a Meter keeping samples for window.
func NewWithWindow(window time.Duration) *Meter {
	return &Meter{
		window:  window,
		samples: make([]sample.Sample, 0),
	}
}

// ProcessSamples consumes input until it closes. After that no more
// callbacks are sent until ResetShutdown.
func (m *Meter) ProcessSamples(input <-chan sample.Sample) {
	for s := range input {
		m.processSample(s)
	}

	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

func (m *Meter) processSample(s sample.Sample) {
	m.mu.Lock()

	if n := len(m.samples); n > 0 && len(m.samples[n-1].Volts) != len(s.Volts) {
		m.samples = m.samples[:0]
	}
	m.samples = append(m.samples, s)

	cutoff := s.Timestamp.Add(-m.window)
	drop := 0
	for drop < len(m.samples)-1 && !m.samples[drop].Timestamp.After(cutoff) {
		drop++
	}
	if drop > 0 {
		m.samples = append(m.samples[:0], m.samples[drop:]...)
	}

	shouldNotify := !m.shutdown
	m.mu.Unlock()

	if shouldNotify {
		m.notifyCallbacks()
	}
}

// Samples returns a copy of the current window.
func (m *Meter) Samples() []sample.Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]sample.Sample, len(m.samples))
	copy(result, m.samples)
	return result
}

// Stats returns the statistics of every trace over the window.
func (m *Meter) Stats() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return computeStats(m.samples)
}

// RateHz returns the sample line rate measured over the window.
func (m *Meter) RateHz() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.samples)
	if n < 2 {
		return 0
	}
	span := m.samples[n-1].Timestamp.Sub(m.samples[0].Timestamp).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(n-1) / span
}

// OnUpdate registers a callback invoked after every processed sample.
// The callback should copy data quickly and return as fast as possible.
func (m *Meter) OnUpdate(callback UpdateFunc) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ResetShutdown allows callbacks again. Call it before feeding a new input.
func (m *Meter) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
	m.samples = m.samples[:0]
}

// notifyCallbacks copies the window under the read lock and invokes the
// callbacks without holding any lock.
func (m *Meter) notifyCallbacks() {
	m.mu.RLock()
	samplesCopy := make([]sample.Sample, len(m.samples))
	copy(samplesCopy, m.samples)
	stats := computeStats(m.samples)
	m.mu.RUnlock()

	m.cbMu.RLock()
	callbacks := make([]UpdateFunc, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(samplesCopy, stats)
		}
	}
}

func computeStats(samples []sample.Sample) []Stats {
	if len(samples) == 0 {
		return nil
	}

	width := len(samples[len(samples)-1].Volts)
	stats := make([]Stats, width)
	sumSq := make([]float64, width)
	for i := range stats {
		stats[i].Min = math.Inf(1)
		stats[i].Max = math.Inf(-1)
	}

	for _, s := range samples {
		for i, v := range s.Volts {
			if i >= width {
				break
			}
			st := &stats[i]
			st.Count++
			st.Last = v
			st.Min = min(st.Min, v)
			st.Max = max(st.Max, v)
			st.Mean += v
			sumSq[i] += v * v
		}
	}

	for i := range stats {
		st := &stats[i]
		if st.Count == 0 {
			stats[i] = Stats{}
			continue
		}
		n := float64(st.Count)
		st.Mean /= n
		st.RMS = math.Sqrt(sumSq[i] / n)
	}
	return stats
}
