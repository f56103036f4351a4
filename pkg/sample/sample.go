// Package sample turns agent readings into voltages for display.
package sample

import (
	"log"
	"time"

	"github.com/itohio/tesseractwave/pkg/client"
)

// Sample is one reading converted to volts.
type Sample struct {
	Timestamp time.Time
	Volts     []float64 // enabled channels in ascending channel order
}

// Scale maps ADC counts to volts.
type Scale struct {
	VRef       float64 // full-scale voltage
	Resolution int     // ADC bits
}

// Volts converts a raw ADC count.
func (s Scale) Volts(count int) float64 {
	full := float64(int(1)<<s.Resolution - 1)
	if full <= 0 {
		return 0
	}
	return float64(count) / full * s.VRef
}

// Converter is a function type that converts a Reading channel to a Sample channel.
type Converter func(in <-chan client.Reading) <-chan Sample

// NewConverter creates a converter that scales every reading to volts.
func NewConverter(scale Scale, bufSize int) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan client.Reading) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for r := range in {
				select {
				case out <- convert(r, scale):
				case <-time.After(time.Second):
					log.Printf("Converter output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}

func convert(r client.Reading, scale Scale) Sample {
	volts := make([]float64, len(r.Values))
	for i, v := range r.Values {
		volts[i] = scale.Volts(v)
	}
	return Sample{Timestamp: r.Timestamp, Volts: volts}
}
