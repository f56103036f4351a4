package link

import (
	"fmt"
	"io"

	tarm "github.com/tarm/serial"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate matches the firmware UART configuration.
	DefaultBaudRate = 115200

	// DriverBugst opens ports with go.bug.st/serial.
	DriverBugst = "bugst"
	// DriverTarm opens ports with github.com/tarm/serial.
	DriverTarm = "tarm"
)

// Port is an open serial port.
type Port interface {
	io.ReadWriteCloser
}

// PortInfo describes a serial port found on the system.
type PortInfo struct {
	Name        string
	Description string
}

// Drivers lists the supported serial backends.
func Drivers() []string {
	return []string{DriverBugst, DriverTarm}
}

// Open opens a serial port with the given backend. An empty driver selects
// DriverBugst and a zero baud rate selects DefaultBaudRate.
func Open(name string, baudRate int, driver string) (Port, error) {
	if name == "" {
		return nil, fmt.Errorf("serial port name is required")
	}
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	switch driver {
	case "", DriverBugst:
		port, err := serial.Open(name, &serial.Mode{
			BaudRate: baudRate,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
		}
		return port, nil

	case DriverTarm:
		port, err := tarm.OpenPort(&tarm.Config{
			Name: name,
			Baud: baudRate,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
		}
		return port, nil

	default:
		return nil, fmt.Errorf("unknown serial driver %q", driver)
	}
}

// Ports returns the serial ports present on the system.
func Ports() ([]PortInfo, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]PortInfo, 0, len(names))
	for _, name := range names {
		result = append(result, PortInfo{
			Name:        name,
			Description: name,
		})
	}
	return result, nil
}
