package sample

import (
	"log"
	"time"

	"github.com/itohio/tesseractwave/pkg/client"
)

// NewAveragingConverter creates a converter that averages every windowSize
// consecutive readings into one Sample. A window is cut short when the
// number of channels changes, and the remainder is flushed when the input
// closes.
func NewAveragingConverter(scale Scale, windowSize int, bufSize int) Converter {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan client.Reading) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			emit := func(s Sample) {
				select {
				case out <- s:
				case <-time.After(time.Second):
					log.Printf("Averaging converter output channel full")
				}
			}

			buffer := make([]client.Reading, 0, windowSize)
			for r := range in {
				if len(buffer) > 0 && len(buffer[0].Values) != len(r.Values) {
					emit(average(buffer, scale))
					buffer = buffer[:0]
				}

				buffer = append(buffer, r)
				if len(buffer) == windowSize {
					emit(average(buffer, scale))
					buffer = buffer[:0]
				}
			}

			if len(buffer) > 0 {
				emit(average(buffer, scale))
			}
		}()

		return out
	}
}

// average averages readings of equal width. The timestamp is the most recent one.
func average(readings []client.Reading, scale Scale) Sample {
	last := readings[len(readings)-1]
	sums := make([]float64, len(last.Values))
	for _, r := range readings {
		for i, v := range r.Values {
			sums[i] += scale.Volts(v)
		}
	}

	n := float64(len(readings))
	for i := range sums {
		sums[i] /= n
	}
	return Sample{Timestamp: last.Timestamp, Volts: sums}
}
