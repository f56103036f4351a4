package main

import (
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/tesseractwave/pkg/analog"
	"github.com/itohio/tesseractwave/pkg/client"
	"github.com/itohio/tesseractwave/pkg/config"
	"github.com/itohio/tesseractwave/pkg/meter"
	"github.com/itohio/tesseractwave/pkg/sample"
	"github.com/itohio/tesseractwave/pkg/scope"
	"github.com/itohio/tesseractwave/pkg/wire"
)

func main() {
	var (
		portFlag           = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag         = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag           = flag.Bool("mock", false, "Use a simulated agent instead of a serial port")
		averageSamplesFlag = flag.Int("average-samples", -1, "Number of samples to average (0 = disabled, overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *averageSamplesFlag >= 0 {
		cfg.Viewer.AverageSamples = *averageSamplesFlag
	}

	application := app.NewWithID("com.itohio.tesseractwave")

	window := application.NewWindow("TesseractWave")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		meter:      meter.New(cfg),
		window:     window,
		useMock:    *mockFlag,
		labels:     cfg.ChannelLabels(),
		settings: wire.Settings{
			RateHz: cfg.Sampling.RateHz,
			Mask:   make([]bool, len(cfg.Channels)),
		},
		throttle: throttle{interval: 16 * time.Millisecond}, // ~60 FPS
	}

	state.scopeWidget = scope.New(cfg)
	state.statusLabel = widget.NewLabel("Disconnected")
	state.meter.OnUpdate(state.onMeterUpdate)

	content := container.NewBorder(
		createToolbar(state),
		state.statusLabel,
		nil,
		nil,
		state.scopeWidget,
	)

	window.SetContent(content)
	window.SetOnClosed(func() {
		closeAcquisitionChain(state.chain)
	})
	window.ShowAndRun()
}

// acquisitionChain tracks the components of the acquisition chain for graceful shutdown.
type acquisitionChain struct {
	device        client.Device
	samplesStream <-chan sample.Sample
	meterDone     chan struct{} // Closed when meter goroutine exits
}

// appState holds the application state.
type appState struct {
	cfg        *config.Config
	configPath string

	device      client.Device
	meter       *meter.Meter
	scopeWidget *scope.ScopeWidget
	statusLabel *widget.Label
	window      fyne.Window
	useMock     bool
	chain       *acquisitionChain // nil if not connected

	connectBtn *widget.Button
	runBtn     *widget.Button
	rateSelect *widget.SelectEntry
	channelBox *fyne.Container

	// Agent state as last acknowledged (protected by mu)
	mu          sync.RWMutex
	board       string
	labels      []string
	settings    wire.Settings
	channelBtns []*widget.Button

	throttle throttle
}

// createToolbar creates the toolbar with Connect, Settings, Run and rate on
// the left and the channel toggles on the right.
func createToolbar(state *appState) fyne.CanvasObject {
	state.connectBtn = widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	state.runBtn = widget.NewButtonWithIcon("Run", theme.MediaPlayIcon(), func() {
		handleRunToggle(state)
	})
	state.runBtn.Disable()

	state.rateSelect = widget.NewSelectEntry([]string{"1", "10", "50", "100", "200", "500", "1000"})
	state.rateSelect.SetText(fmt.Sprint(state.cfg.Sampling.RateHz))
	state.rateSelect.OnSubmitted = func(text string) {
		handleRateChange(state, text)
	}
	state.rateSelect.Disable()

	state.channelBox = container.NewHBox()
	rebuildChannelButtons(state)

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(state.connectBtn, settingsBtn, state.runBtn, widget.NewLabel("Hz"), state.rateSelect),
		state.channelBox,
		nil,
	)
}

// closeAcquisitionChain gracefully closes the acquisition chain.
// Waits for the meter goroutine to drain the converters.
func closeAcquisitionChain(chain *acquisitionChain) {
	if chain == nil {
		return
	}

	// Closing the device closes its samples channel
	if chain.device != nil {
		if err := chain.device.Close(); err != nil {
			log.Printf("Error closing device: %v", err)
		}
	}

	if chain.meterDone != nil {
		<-chain.meterDone
	}
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		closeAcquisitionChain(state.chain)
		state.chain = nil
		state.device = nil

		state.mu.Lock()
		state.settings.Run = false
		state.mu.Unlock()

		state.runBtn.Disable()
		state.rateSelect.Disable()
		updateControls(state)
		setChannelButtonsEnabled(state, false)
		state.statusLabel.SetText("Disconnected")
		log.Printf("Disconnected from %s", deviceName(state))
		return
	}

	device := newDevice(state)
	if err := device.Connect(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", deviceName(state), err), state.window)
		return
	}

	info, err := device.Info()
	if err != nil {
		device.Close()
		dialog.ShowError(fmt.Errorf("agent on %s did not describe itself: %w", deviceName(state), err), state.window)
		return
	}

	state.device = device
	log.Printf("Connected to %s: board %s with %d channels at %d Hz", deviceName(state), info.Board, info.Channels(), info.RateHz)

	state.mu.Lock()
	state.board = info.Board
	state.labels = info.Labels
	state.settings = wire.Settings{
		RateHz: info.RateHz,
		Mask:   info.Enabled,
	}
	state.mu.Unlock()

	rebuildChannelButtons(state)
	state.rateSelect.SetText(fmt.Sprint(info.RateHz))
	state.runBtn.Enable()
	state.rateSelect.Enable()
	updateControls(state)

	state.meter.ResetShutdown()

	scale := sample.Scale{VRef: state.cfg.ADC.VRef, Resolution: state.cfg.ADC.Resolution}
	convert := sample.NewConverter(scale, 500)
	if n := state.cfg.Viewer.AverageSamples; n > 0 {
		convert = sample.NewAveragingConverter(scale, n, 500)
	}
	samplesStream := convert(device.Samples())

	meterDone := make(chan struct{})
	go func() {
		defer close(meterDone)
		state.meter.ProcessSamples(samplesStream)
	}()

	state.chain = &acquisitionChain{
		device:        device,
		samplesStream: samplesStream,
		meterDone:     meterDone,
	}
}

func newDevice(state *appState) client.Device {
	if state.useMock {
		return client.NewMock(&client.MockConfig{
			Board:  "mock",
			Labels: state.cfg.ChannelLabels(),
			RateHz: state.cfg.Sampling.RateHz,
			Simulated: analog.SimulatedConfig{
				Resolution: state.cfg.ADC.Resolution,
				Period:     2 * time.Second,
				Noise:      0.01,
			},
		})
	}
	return client.New(state.cfg.Serial.Port, state.cfg.Serial.BaudRate, state.cfg.Serial.Driver, client.DefaultBufferSize)
}

func deviceName(state *appState) string {
	if state.useMock {
		return "simulated agent"
	}
	return state.cfg.Serial.Port
}

// onMeterUpdate runs on the meter goroutine.
func (state *appState) onMeterUpdate(samples []sample.Sample, stats []meter.Stats) {
	if !state.throttle.allow(time.Now()) {
		return
	}

	state.mu.RLock()
	labels := enabledLabels(state.labels, state.settings.Mask)
	state.mu.RUnlock()

	status := formatStatus(labels, stats, state.meter.RateHz())

	fyne.Do(func() {
		state.scopeWidget.UpdateData(samples, labels)
		state.statusLabel.SetText(status)
	})
}
