// Package scope provides an oscilloscope-style Fyne widget that plots one
// trace per enabled channel.
package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/tesseractwave/pkg/config"
	"github.com/itohio/tesseractwave/pkg/sample"
)

// palette colors traces by position in the sample line.
var palette = []color.RGBA{
	{R: 255, G: 165, B: 0, A: 255},   // orange
	{R: 100, G: 200, B: 255, A: 255}, // light blue
	{R: 120, G: 220, B: 120, A: 255}, // green
	{R: 255, G: 100, B: 140, A: 255}, // pink
	{R: 220, G: 220, B: 100, A: 255}, // yellow
	{R: 180, G: 130, B: 255, A: 255}, // violet
}

// TraceColor returns the color of the i-th trace.
func TraceColor(i int) color.RGBA {
	return palette[i%len(palette)]
}

// ScopeWidget is a custom Fyne widget that displays sampled channels.
type ScopeWidget struct {
	widget.BaseWidget

	window time.Duration

	// Data (protected by mu)
	mu      sync.RWMutex
	samples []sample.Sample
	labels  []string

	// Display buffer (reused for downsampling)
	displaySamples []sample.Sample

	// Auto-scaling
	yMin, yMax float64
	xMin, xMax time.Time

	maxDisplayPoints int
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	maxPoints := cfg.Viewer.MaxDisplayPoints
	if maxPoints <= 0 {
		maxPoints = 1000
	}

	s := &ScopeWidget{
		window:           time.Duration(cfg.Viewer.WindowSeconds * float64(time.Second)),
		displaySamples:   make([]sample.Sample, 0, maxPoints),
		maxDisplayPoints: maxPoints,
	}
	s.ExtendBaseWidget(s)
	s.updateAutoScale()
	s.Refresh()
	return s
}

// UpdateData replaces the plotted samples. labels name the traces in
// sample order. Call it from the UI goroutine, e.g. inside fyne.Do().
func (s *ScopeWidget) UpdateData(samples []sample.Sample, labels []string) {
	s.mu.Lock()

	s.displaySamples = sample.Downsample(s.displaySamples, samples, s.maxDisplayPoints)
	s.samples = samples
	s.labels = labels
	s.updateAutoScale()

	s.mu.Unlock()

	// Refresh the widget (must be outside lock to avoid potential deadlock)
	s.Refresh()
}

// updateAutoScale calculates the axis ranges from the displayed data.
func (s *ScopeWidget) updateAutoScale() {
	s.yMin, s.yMax = yRange(s.displaySamples)
	s.xMin, s.xMax = xRange(s.displaySamples, s.window, time.Now())
}

// yRange returns the value range over every trace with a 10% margin.
func yRange(samples []sample.Sample) (float64, float64) {
	first := true
	var lo, hi float64
	for _, smp := range samples {
		for _, v := range smp.Volts {
			if first {
				lo, hi = v, v
				first = false
				continue
			}
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	if first {
		return 0, 1
	}

	span := hi - lo
	if span == 0 {
		span = 1
	}
	margin := span * 0.1
	return lo - margin, hi + margin
}

// xRange returns the time range, never narrower than window.
func xRange(samples []sample.Sample, window time.Duration, now time.Time) (time.Time, time.Time) {
	if len(samples) == 0 {
		return now, now.Add(window)
	}

	lo := samples[0].Timestamp
	hi := samples[len(samples)-1].Timestamp
	if hi.Sub(lo) < window {
		hi = lo.Add(window)
	}
	if !hi.After(lo) {
		hi = lo.Add(time.Second)
	}
	return lo, hi
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}
