// Command agent runs an acquisition session on a host computer, reading
// analog inputs from an SPI converter or a simulator and talking to the
// viewer over a serial port.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/itohio/tesseractwave/pkg/analog"
	"github.com/itohio/tesseractwave/pkg/channel"
	"github.com/itohio/tesseractwave/pkg/config"
	"github.com/itohio/tesseractwave/pkg/link"
	"github.com/itohio/tesseractwave/pkg/metrics"
	"github.com/itohio/tesseractwave/pkg/session"
)

func main() {
	var (
		configFlag  = flag.String("config", "config.yaml", "Configuration file path")
		portFlag    = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyGS0)")
		sourceFlag  = flag.String("source", "", "ADC source override (simulated or mcp3008)")
		metricsFlag = flag.String("metrics", "", "Prometheus listen address override (e.g., :9100)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *sourceFlag != "" {
		cfg.ADC.Source = *sourceFlag
	}
	if *metricsFlag != "" {
		cfg.Metrics.Addr = *metricsFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Agent failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) (err error) {
	ids := make([]channel.ID, len(cfg.Channels))
	for i, id := range cfg.ChannelIDs() {
		ids[i] = channel.ID(id)
	}
	channels, err := channel.New(ids, cfg.ChannelLabels())
	if err != nil {
		return fmt.Errorf("failed to create channels: %w", err)
	}

	source, closeSource, err := openSource(cfg.ADC)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeSource()) }()

	port, err := link.Open(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Serial.Driver)
	if err != nil {
		return err
	}
	stream := link.NewStream(port, 0)
	defer func() { err = multierr.Append(err, stream.Close()) }()

	var observer session.Observer = session.NopObserver{}
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		prom, perr := metrics.New(reg)
		if perr != nil {
			return fmt.Errorf("failed to register metrics: %w", perr)
		}
		observer = prom

		srv := serveMetrics(cfg.Metrics.Addr, reg)
		defer func() { err = multierr.Append(err, shutdown(srv)) }()
	}

	sess, err := session.New(session.Config{
		BoardName:    cfg.Board,
		SampleRateHz: cfg.Sampling.RateHz,
		Logger:       log.Default(),
		Observer:     observer,
	}, channels, session.Hardware{
		Analog: source,
		Link:   stream,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if err := sess.Begin(); err != nil {
		return err
	}
	log.Printf("Agent %s ready on %s with %d channels from %s", cfg.Board, cfg.Serial.Port, channels.Len(), cfg.ADC.Source)

	return sess.Run(ctx)
}

// openSource returns the analog source selected in cfg and its closer.
func openSource(cfg config.ADCConfig) (session.Analog, func() error, error) {
	switch cfg.Source {
	case config.SourceMCP3008:
		adc, err := analog.OpenMCP3008(cfg.SPIPort)
		if err != nil {
			return nil, nil, err
		}
		return adc, adc.Close, nil
	case config.SourceSimulated:
		sim := analog.NewSimulated(analog.SimulatedConfig{
			Resolution: cfg.Resolution,
			Period:     2 * time.Second,
			Noise:      0.01,
		})
		return sim, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown adc source %q", cfg.Source)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("Serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("ERROR: metrics server: %v", err)
		}
	}()
	return srv
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
