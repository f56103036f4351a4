// Package metrics exports session activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/itohio/tesseractwave/pkg/channel"
	"github.com/itohio/tesseractwave/pkg/session"
)

var _ session.Observer = (*Prom)(nil)

// Prom implements session.Observer with Prometheus collectors.
type Prom struct {
	commands   *prometheus.CounterVec
	rejected   prometheus.Counter
	lines      prometheus.Counter
	values     prometheus.Counter
	readErrors *prometheus.CounterVec

	running prometheus.Gauge
	rate    prometheus.Gauge
	enabled prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Prom, error) {
	p := &Prom{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tesseract_commands_total",
			Help: "Host commands handled, by kind.",
		}, []string{"kind"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tesseract_commands_rejected_total",
			Help: "Configuration commands rejected as malformed.",
		}),
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tesseract_sample_lines_total",
			Help: "Sample lines written to the link.",
		}),
		values: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tesseract_sample_values_total",
			Help: "Channel readings written to the link.",
		}),
		readErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tesseract_read_errors_total",
			Help: "Failed analog reads, by channel id.",
		}, []string{"channel"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tesseract_running",
			Help: "1 while sampling is on.",
		}),
		rate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tesseract_sample_rate_hz",
			Help: "Configured sampling rate.",
		}),
		enabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tesseract_enabled_channels",
			Help: "Number of channels selected for sampling.",
		}),
	}

	for _, c := range []prometheus.Collector{
		p.commands, p.rejected, p.lines, p.values, p.readErrors,
		p.running, p.rate, p.enabled,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// CommandHandled implements session.Observer.
func (p *Prom) CommandHandled(kind string) {
	p.commands.WithLabelValues(kind).Inc()
}

// CommandRejected implements session.Observer.
func (p *Prom) CommandRejected(err error) {
	p.rejected.Inc()
}

// SampleEmitted implements session.Observer.
func (p *Prom) SampleEmitted(values int) {
	p.lines.Inc()
	p.values.Add(float64(values))
}

// ReadFailed implements session.Observer.
// The session logs the error itself.
func (p *Prom) ReadFailed(id channel.ID, _ error) {
	p.readErrors.WithLabelValues(strconv.FormatUint(uint64(id), 10)).Inc()
}

// StateChanged implements session.Observer.
func (p *Prom) StateChanged(running bool, rateHz int, enabled int) {
	if running {
		p.running.Set(1)
	} else {
		p.running.Set(0)
	}
	p.rate.Set(float64(rateHz))
	p.enabled.Set(float64(enabled))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
