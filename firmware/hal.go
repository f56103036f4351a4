//go:build tinygo

package main

import (
	"errors"
	"fmt"
	"machine"

	"github.com/itohio/tesseractwave/pkg/channel"
	"github.com/itohio/tesseractwave/pkg/session"
)

var errLineTooLong = fmt.Errorf("command line too long: %w", session.ErrLineDiscarded)

// adcInputs reads the on-chip ADC. machine.ADC.Get scales every reading to
// 16 bits, so the value is shifted down to ADC_RESOLUTION.
type adcInputs struct {
	adcs map[channel.ID]machine.ADC
}

func newADCInputs() *adcInputs {
	machine.InitADC()
	return &adcInputs{adcs: make(map[channel.ID]machine.ADC, len(analogPins))}
}

func (a *adcInputs) ConfigureInput(id channel.ID) error {
	adc := machine.ADC{Pin: machine.Pin(id)}
	if err := adc.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}); err != nil {
		return err
	}
	a.adcs[id] = adc
	return nil
}

func (a *adcInputs) ReadValue(id channel.ID) (int, error) {
	adc, ok := a.adcs[id]
	if !ok {
		return 0, errors.New("input not configured")
	}
	return int(adc.Get() >> (16 - ADC_RESOLUTION)), nil
}

// uartLink assembles command lines from the UART receive buffer without
// blocking.
type uartLink struct {
	uart *machine.UART

	buf      [MAX_LINE]byte
	pos      int
	ready    bool
	overflow bool
}

func (l *uartLink) LineAvailable() bool {
	for !l.ready && l.uart.Buffered() > 0 {
		data, err := l.uart.ReadByte()
		if err != nil {
			break
		}

		switch {
		case data == '\n' || data == '\r':
			// Skip the second half of CRLF and blank lines.
			if l.pos > 0 || l.overflow {
				l.ready = true
			}
		case l.pos < len(l.buf):
			l.buf[l.pos] = data
			l.pos++
		default:
			l.overflow = true
		}
	}
	return l.ready
}

func (l *uartLink) ReadLine() (string, error) {
	for !l.LineAvailable() {
	}

	line := string(l.buf[:l.pos])
	overflow := l.overflow
	l.pos, l.ready, l.overflow = 0, false, false

	if overflow {
		return "", errLineTooLong
	}
	return line, nil
}

func (l *uartLink) WriteLine(line string) error {
	if _, err := l.uart.Write([]byte(line)); err != nil {
		return err
	}
	_, err := l.uart.Write([]byte("\r\n"))
	return err
}
