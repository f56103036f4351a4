package analog

import (
	"fmt"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/itohio/tesseractwave/pkg/channel"
	"github.com/itohio/tesseractwave/pkg/session"
)

const (
	// MCP3008Inputs is the number of single-ended inputs of the chip.
	MCP3008Inputs = 8
	// MCP3008Max is the full-scale reading of the 10-bit converter.
	MCP3008Max = 0x3FF

	mcp3008Speed = 1 * physic.MegaHertz
)

var _ session.Analog = (*MCP3008)(nil)

// MCP3008 reads a Microchip MCP3008 10-bit ADC over SPI. Channel IDs are the
// chip's input numbers 0-7.
type MCP3008 struct {
	port spi.PortCloser // nil when built from an existing connection
	conn spi.Conn

	tx [3]byte
	rx [3]byte
}

// OpenMCP3008 initialises periph and opens the named SPI port. An empty
// name selects the first port available.
func OpenMCP3008(portName string) (*MCP3008, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise periph host: %w", err)
	}

	p, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %q: %w", portName, err)
	}

	// Maximum speed per the MCP3008 datasheet at 2.7V.
	if err := p.LimitSpeed(mcp3008Speed); err != nil {
		return nil, multierr.Combine(fmt.Errorf("failed to limit SPI speed: %w", err), p.Close())
	}

	c, err := p.Connect(mcp3008Speed, spi.Mode0, 8)
	if err != nil {
		return nil, multierr.Combine(fmt.Errorf("failed to connect to MCP3008: %w", err), p.Close())
	}

	m := NewMCP3008(c)
	m.port = p
	return m, nil
}

// NewMCP3008 uses an already connected SPI device.
func NewMCP3008(conn spi.Conn) *MCP3008 {
	return &MCP3008{conn: conn}
}

// ConfigureInput implements session.Analog. The inputs need no setup; only
// the channel number is checked.
func (m *MCP3008) ConfigureInput(id channel.ID) error {
	if id >= MCP3008Inputs {
		return fmt.Errorf("%w: mcp3008 input %d", ErrNoSuchInput, id)
	}
	return nil
}

// ReadValue implements session.Analog with a single-ended conversion.
func (m *MCP3008) ReadValue(id channel.ID) (int, error) {
	if id >= MCP3008Inputs {
		return 0, fmt.Errorf("%w: mcp3008 input %d", ErrNoSuchInput, id)
	}

	// Start bit, then single-ended mode with the channel select, then
	// clocks for the remaining bits.
	m.tx[0] = 1
	m.tx[1] = byte((8 + id) << 4)
	m.tx[2] = 0
	if err := m.conn.Tx(m.tx[:], m.rx[:]); err != nil {
		return 0, fmt.Errorf("mcp3008 transfer: %w", err)
	}

	// Only the last 10 bits are data.
	return (int(m.rx[1])<<8 | int(m.rx[2])) & MCP3008Max, nil
}

// Close releases the SPI port if this reader opened it.
func (m *MCP3008) Close() error {
	if m.port == nil {
		return nil
	}
	err := m.port.Close()
	m.port = nil
	return err
}
