package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/itohio/tesseractwave/pkg/channel"
)

// ADC sources the agent can read from.
const (
	SourceSimulated = "simulated"
	SourceMCP3008   = "mcp3008"
)

// Config represents the agent and viewer configuration.
type Config struct {
	Board    string          `yaml:"board"`
	Channels []ChannelConfig `yaml:"channels"`
	Serial   SerialConfig    `yaml:"serial"`
	ADC      ADCConfig       `yaml:"adc"`
	Sampling SamplingConfig  `yaml:"sampling"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Viewer   ViewerConfig    `yaml:"viewer"`
}

// ChannelConfig describes one analog input.
type ChannelConfig struct {
	ID    uint32 `yaml:"id"`    // pin or ADC input number
	Label string `yaml:"label"` // name reported in info replies
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
	Driver   string `yaml:"driver"` // "bugst" or "tarm"
}

// ADCConfig selects and parameterises the analog source.
type ADCConfig struct {
	Source     string  `yaml:"source"`     // "simulated" or "mcp3008"
	SPIPort    string  `yaml:"spi_port"`   // periph SPI port name, empty for the first one
	Resolution int     `yaml:"resolution"` // bits
	VRef       float64 `yaml:"vref"`       // reference voltage (V)
}

// SamplingConfig contains the session defaults.
type SamplingConfig struct {
	RateHz int `yaml:"rate_hz"`
}

// MetricsConfig contains the Prometheus endpoint configuration.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// ViewerConfig contains display parameters for the desktop viewer.
type ViewerConfig struct {
	WindowSeconds    float64 `yaml:"window_seconds"`
	AverageSamples   int     `yaml:"average_samples"` // 0 disables averaging
	MaxDisplayPoints int     `yaml:"max_display_points"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Board: "tesseract",
		Channels: []ChannelConfig{
			{ID: 0, Label: "A0"},
			{ID: 1, Label: "A1"},
			{ID: 2, Label: "A2"},
			{ID: 3, Label: "A3"},
			{ID: 4, Label: "A4"},
			{ID: 5, Label: "A5"},
		},
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
			Driver:   "bugst",
		},
		ADC: ADCConfig{
			Source:     SourceSimulated,
			Resolution: 10,
			VRef:       3.3,
		},
		Sampling: SamplingConfig{
			RateHz: 100,
		},
		Viewer: ViewerConfig{
			WindowSeconds:    10,
			AverageSamples:   0,
			MaxDisplayPoints: 1000,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults fills fields a partial file left empty.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Board == "" {
		c.Board = def.Board
	}
	if len(c.Channels) == 0 {
		c.Channels = def.Channels
	}
	for i := range c.Channels {
		if c.Channels[i].Label == "" {
			c.Channels[i].Label = fmt.Sprintf("A%d", i)
		}
	}

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.Driver == "" {
		c.Serial.Driver = def.Serial.Driver
	}

	if c.ADC.Source == "" {
		c.ADC.Source = def.ADC.Source
	}
	if c.ADC.Resolution == 0 {
		c.ADC.Resolution = def.ADC.Resolution
	}
	if c.ADC.VRef == 0 {
		c.ADC.VRef = def.ADC.VRef
	}

	if c.Sampling.RateHz == 0 {
		c.Sampling.RateHz = def.Sampling.RateHz
	}

	if c.Viewer.WindowSeconds == 0 {
		c.Viewer.WindowSeconds = def.Viewer.WindowSeconds
	}
	if c.Viewer.MaxDisplayPoints == 0 {
		c.Viewer.MaxDisplayPoints = def.Viewer.MaxDisplayPoints
	}
}

// Validate checks the values that would make the agent misbehave.
func (c *Config) Validate() error {
	var errs []error

	if err := channel.CheckName(c.Board); err != nil {
		errs = append(errs, fmt.Errorf("board: %w", err))
	}

	if len(c.Channels) == 0 {
		errs = append(errs, errors.New("at least one channel is required"))
	}
	seen := make(map[uint32]bool, len(c.Channels))
	for i, ch := range c.Channels {
		if seen[ch.ID] {
			errs = append(errs, fmt.Errorf("channel %d: duplicate id %d", i, ch.ID))
		}
		seen[ch.ID] = true
		if err := channel.CheckName(ch.Label); err != nil {
			errs = append(errs, fmt.Errorf("channel %d: %w", i, err))
		}
	}

	if c.Sampling.RateHz < 1 {
		errs = append(errs, fmt.Errorf("sampling rate must be positive, got %d", c.Sampling.RateHz))
	}

	switch c.Serial.Driver {
	case "bugst", "tarm":
	default:
		errs = append(errs, fmt.Errorf("unknown serial driver %q", c.Serial.Driver))
	}

	switch c.ADC.Source {
	case SourceSimulated:
	case SourceMCP3008:
		for i, ch := range c.Channels {
			if ch.ID > 7 {
				errs = append(errs, fmt.Errorf("channel %d: mcp3008 has inputs 0-7, got %d", i, ch.ID))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("unknown adc source %q", c.ADC.Source))
	}
	if c.ADC.Resolution < 1 || c.ADC.Resolution > 16 {
		errs = append(errs, fmt.Errorf("adc resolution must be 1-16 bits, got %d", c.ADC.Resolution))
	}

	return multierr.Combine(errs...)
}

// ChannelIDs returns the configured channel IDs in order.
func (c *Config) ChannelIDs() []uint32 {
	ids := make([]uint32, len(c.Channels))
	for i, ch := range c.Channels {
		ids[i] = ch.ID
	}
	return ids
}

// ChannelLabels returns the configured channel labels in order.
func (c *Config) ChannelLabels() []string {
	labels := make([]string, len(c.Channels))
	for i, ch := range c.Channels {
		labels[i] = ch.Label
	}
	return labels
}
