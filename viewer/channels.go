package main

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/tesseractwave/pkg/wire"
)

// applySettings sends settings to the agent and keeps them only if it
// acknowledges.
func applySettings(state *appState, settings wire.Settings) error {
	if state.device == nil || !state.device.IsConnected() {
		return fmt.Errorf("not connected")
	}

	if err := state.device.Configure(settings); err != nil {
		return err
	}

	state.mu.Lock()
	state.settings = settings
	state.mu.Unlock()

	updateControls(state)
	return nil
}

// currentSettings returns a copy of the acknowledged settings.
func currentSettings(state *appState) wire.Settings {
	state.mu.RLock()
	defer state.mu.RUnlock()

	s := state.settings
	s.Mask = append([]bool(nil), s.Mask...)
	return s
}

// handleChannelToggle toggles one channel in the sampling selection.
func handleChannelToggle(state *appState, index int) {
	settings := currentSettings(state)
	if index >= len(settings.Mask) {
		return
	}
	settings.Mask[index] = !settings.Mask[index]

	if err := applySettings(state, settings); err != nil {
		dialog.ShowError(fmt.Errorf("failed to select channels: %w", err), state.window)
	}
}

// handleRunToggle starts or stops sampling.
func handleRunToggle(state *appState) {
	settings := currentSettings(state)
	settings.Run = !settings.Run

	if err := applySettings(state, settings); err != nil {
		dialog.ShowError(fmt.Errorf("failed to switch sampling: %w", err), state.window)
	}
}

// handleRateChange sets a new sampling rate from the rate entry.
func handleRateChange(state *appState, text string) {
	rate, err := strconv.Atoi(text)
	if err != nil || rate < 1 {
		dialog.ShowError(fmt.Errorf("invalid sampling rate %q", text), state.window)
		return
	}

	settings := currentSettings(state)
	settings.RateHz = rate
	if err := applySettings(state, settings); err != nil {
		dialog.ShowError(fmt.Errorf("failed to set sampling rate: %w", err), state.window)
		state.rateSelect.SetText(strconv.Itoa(currentSettings(state).RateHz))
	}
}

// rebuildChannelButtons creates one toggle per channel label.
func rebuildChannelButtons(state *appState) {
	state.mu.Lock()
	labels := append([]string(nil), state.labels...)
	state.channelBtns = state.channelBtns[:0]
	for i, label := range labels {
		btn := widget.NewButton(label, func() {
			handleChannelToggle(state, i)
		})
		state.channelBtns = append(state.channelBtns, btn)
	}
	btns := state.channelBtns
	state.mu.Unlock()

	state.channelBox.RemoveAll()
	for _, btn := range btns {
		state.channelBox.Add(btn)
	}
	setChannelButtonsEnabled(state, state.device != nil && state.device.IsConnected())
	updateControls(state)
}

func setChannelButtonsEnabled(state *appState, enabled bool) {
	state.mu.RLock()
	defer state.mu.RUnlock()

	for _, btn := range state.channelBtns {
		if enabled {
			btn.Enable()
		} else {
			btn.Disable()
		}
	}
}

// updateControls reflects the acknowledged settings on the toolbar.
func updateControls(state *appState) {
	state.mu.RLock()
	defer state.mu.RUnlock()

	for i, btn := range state.channelBtns {
		updateToggleButton(btn, i < len(state.settings.Mask) && state.settings.Mask[i])
	}

	if state.runBtn == nil {
		return
	}
	if state.settings.Run {
		state.runBtn.SetText("Stop")
		state.runBtn.SetIcon(theme.MediaStopIcon())
	} else {
		state.runBtn.SetText("Run")
		state.runBtn.SetIcon(theme.MediaPlayIcon())
	}
}

// updateToggleButton updates a single toggle button's visual state.
func updateToggleButton(btn *widget.Button, isOn bool) {
	if isOn {
		btn.Importance = widget.HighImportance
	} else {
		btn.Importance = widget.MediumImportance
	}
	btn.Refresh()
}
