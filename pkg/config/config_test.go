package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(name, []byte(content), 0644))
	return name
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "tesseract", cfg.Board)
	assert.Len(t, cfg.Channels, 6)
	assert.Equal(t, "A0", cfg.Channels[0].Label)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, "bugst", cfg.Serial.Driver)
	assert.Equal(t, SourceSimulated, cfg.ADC.Source)
	assert.Equal(t, 10, cfg.ADC.Resolution)
	assert.Equal(t, 3.3, cfg.ADC.VRef)
	assert.Equal(t, 100, cfg.Sampling.RateHz)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.Equal(t, float64(10), cfg.Viewer.WindowSeconds)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ValidYAML(t *testing.T) {
	name := writeTemp(t, `
board: boardX
channels:
  - id: 26
    label: ch0
  - id: 27
    label: ch1
  - id: 28
    label: ch2
  - id: 29
    label: ch3
serial:
  port: /dev/ttyUSB0
  baud_rate: 57600
  driver: tarm
adc:
  source: simulated
  resolution: 12
  vref: 5
sampling:
  rate_hz: 50
metrics:
  addr: ":9100"
viewer:
  window_seconds: 5
  average_samples: 4
`)

	cfg, err := Load(name)
	require.NoError(t, err)

	assert.Equal(t, "boardX", cfg.Board)
	assert.Equal(t, []uint32{26, 27, 28, 29}, cfg.ChannelIDs())
	assert.Equal(t, []string{"ch0", "ch1", "ch2", "ch3"}, cfg.ChannelLabels())
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 57600, cfg.Serial.BaudRate)
	assert.Equal(t, "tarm", cfg.Serial.Driver)
	assert.Equal(t, 12, cfg.ADC.Resolution)
	assert.Equal(t, float64(5), cfg.ADC.VRef)
	assert.Equal(t, 50, cfg.Sampling.RateHz)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, float64(5), cfg.Viewer.WindowSeconds)
	assert.Equal(t, 4, cfg.Viewer.AverageSamples)
	assert.Equal(t, 1000, cfg.Viewer.MaxDisplayPoints) // default
}

func TestLoad_PartialYAML(t *testing.T) {
	name := writeTemp(t, `
serial:
  port: "COM7"
channels:
  - id: 3
  - id: 4
    label: probe
`)

	cfg, err := Load(name)
	require.NoError(t, err)

	assert.Equal(t, "COM7", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate) // default
	assert.Equal(t, "tesseract", cfg.Board)      // default
	assert.Equal(t, []string{"A0", "probe"}, cfg.ChannelLabels())
	assert.Equal(t, 100, cfg.Sampling.RateHz)
}

func TestLoad_InvalidYAML(t *testing.T) {
	name := writeTemp(t, "invalid: yaml: content: [")

	cfg, err := Load(name)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidValues(t *testing.T) {
	name := writeTemp(t, `
sampling:
  rate_hz: -3
serial:
  driver: usb-magic
`)

	cfg, err := Load(name)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "sampling rate must be positive")
	assert.ErrorContains(t, err, "unknown serial driver")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults",
			modify: func(c *Config) {},
		},
		{
			name:    "no channels",
			modify:  func(c *Config) { c.Channels = nil },
			wantErr: "at least one channel",
		},
		{
			name: "duplicate ids",
			modify: func(c *Config) {
				c.Channels = []ChannelConfig{{ID: 1, Label: "a"}, {ID: 1, Label: "b"}}
			},
			wantErr: "duplicate id 1",
		},
		{
			name:    "comma in board name",
			modify:  func(c *Config) { c.Board = "board,X" },
			wantErr: "board: name contains a comma",
		},
		{
			name: "comma in label",
			modify: func(c *Config) {
				c.Channels = []ChannelConfig{{ID: 0, Label: "ch0"}, {ID: 1, Label: "ch,1"}}
			},
			wantErr: "channel 1: name contains a comma",
		},
		{
			name: "line break in label",
			modify: func(c *Config) {
				c.Channels = []ChannelConfig{{ID: 0, Label: "ch0\r\n"}}
			},
			wantErr: "channel 0: name contains a comma or line break",
		},
		{
			name:    "zero rate",
			modify:  func(c *Config) { c.Sampling.RateHz = 0 },
			wantErr: "sampling rate",
		},
		{
			name:    "unknown source",
			modify:  func(c *Config) { c.ADC.Source = "ads1115" },
			wantErr: "unknown adc source",
		},
		{
			name: "mcp3008 input out of range",
			modify: func(c *Config) {
				c.ADC.Source = SourceMCP3008
				c.Channels = []ChannelConfig{{ID: 0, Label: "a"}, {ID: 8, Label: "b"}}
			},
			wantErr: "mcp3008 has inputs 0-7",
		},
		{
			name:    "resolution",
			modify:  func(c *Config) { c.ADC.Resolution = 24 },
			wantErr: "adc resolution",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Sampling.RateHz = 250
	cfg.Channels = cfg.Channels[:2]

	name := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(name))

	loaded, err := Load(name)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
