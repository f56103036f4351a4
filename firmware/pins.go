//go:build tinygo

package main

import "machine"

const (
	// Board name reported in info replies
	BOARD_NAME = "xiao"

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 10   // Reported resolution in bits (0-1023)

	// Sampling rate until the host configures one
	DEFAULT_RATE_HZ = 100

	// Longest command line accepted, terminator excluded
	MAX_LINE = 64

	// Serial configuration
	// Worst case line: 6 channels of "1023," = 30 bytes at 1000 lines/sec.
	// UART 8N1 at 115200 moves 11,520 bytes/sec, enough for ~380 lines/sec
	// with every channel enabled.
	UART_BAUD_RATE = 115200
)

// Analog inputs in channel order. Channel IDs are the pin numbers.
var analogPins = []machine.Pin{
	machine.A0,
	machine.A1,
	machine.A2,
	machine.A3,
	machine.A4,
	machine.A5,
}

var channelLabels = []string{"A0", "A1", "A2", "A3", "A4", "A5"}
