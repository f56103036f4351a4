//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"context"
	"machine"

	"github.com/itohio/tesseractwave/pkg/channel"
	"github.com/itohio/tesseractwave/pkg/session"
)

var uart = machine.UART0

func main() {
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	ids := make([]channel.ID, len(analogPins))
	for i, pin := range analogPins {
		ids[i] = channel.ID(pin)
	}

	channels, err := channel.New(ids, channelLabels)
	if err != nil {
		halt(err)
	}

	// No logger: the UART carries the protocol.
	sess, err := session.New(session.Config{
		BoardName:    BOARD_NAME,
		SampleRateHz: DEFAULT_RATE_HZ,
	}, channels, session.Hardware{
		Analog: newADCInputs(),
		Link:   &uartLink{uart: uart},
	})
	if err != nil {
		halt(err)
	}

	if err := sess.Begin(); err != nil {
		halt(err)
	}

	if err := sess.Run(context.Background()); err != nil {
		halt(err)
	}
}

// halt reports a failure on the debug console and stops.
func halt(err error) {
	println("tesseractwave:", err.Error())
	select {}
}
