package main

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/itohio/tesseractwave/pkg/meter"
)

// throttle limits UI updates to one per interval.
type throttle struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (t *throttle) allow(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

// enabledLabels returns the labels of the selected channels, which is the
// order values appear in a sample line.
func enabledLabels(labels []string, mask []bool) []string {
	result := make([]string, 0, len(labels))
	for i, label := range labels {
		if i < len(mask) && mask[i] {
			result = append(result, label)
		}
	}
	return result
}

// formatStatus renders the per-channel statistics for the status bar.
func formatStatus(labels []string, stats []meter.Stats, rateHz float64) string {
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(rateHz, 'f', 1, 64))
	b.WriteString(" Hz")

	for i, st := range stats {
		label := "#" + strconv.Itoa(i)
		if i < len(labels) {
			label = labels[i]
		}
		b.WriteString("   ")
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(strconv.FormatFloat(st.Last, 'f', 3, 64))
		b.WriteString("V [")
		b.WriteString(strconv.FormatFloat(st.Min, 'f', 3, 64))
		b.WriteString(" .. ")
		b.WriteString(strconv.FormatFloat(st.Max, 'f', 3, 64))
		b.WriteString("] rms ")
		b.WriteString(strconv.FormatFloat(st.RMS, 'f', 3, 64))
	}
	return b.String()
}
