package hardware

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"github.com/tigerbot-team/sonarbot/pkg/irq"
)

var ErrTransmitterBusy = errors.New("serial transmitter busy")

// UART turns a byte stream into receive and transmit-complete interrupts.
//
// The transmit side holds at most two bytes, like a data register feeding a
// shift register; TransmitByte fails rather than blocks when both are full.
type UART struct {
	port io.ReadWriteCloser
	tx   chan byte
}

// OpenUART opens a serial port at the given baud rate, 8N1.
func OpenUART(name string, baud int) (*UART, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "opening serial port %s", name)
	}
	log.Info().Str("port", name).Int("baud", baud).Msg("Opened serial port")
	return NewUART(port), nil
}

// NewUART wraps an already open stream, e.g. a pseudo-terminal.
func NewUART(port io.ReadWriteCloser) *UART {
	return &UART{
		port: port,
		tx:   make(chan byte, 2),
	}
}

func (u *UART) TransmitByte(b byte) error {
	select {
	case u.tx <- b:
		return nil
	default:
		return ErrTransmitterBusy
	}
}

func (u *UART) Start(ctx context.Context, irqs *irq.Controller) {
	go u.receive(ctx, irqs)
	go u.transmit(ctx, irqs)
}

func (u *UART) receive(ctx context.Context, irqs *irq.Controller) {
	buf := make([]byte, 64)
	for {
		n, err := u.port.Read(buf)
		for _, b := range buf[:n] {
			irqs.Raise(irq.Receive, b)
		}
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("Serial receive failed")
			}
			return
		}
	}
}

func (u *UART) transmit(ctx context.Context, irqs *irq.Controller) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-u.tx:
			if _, err := u.port.Write([]byte{b}); err != nil {
				log.Debug().Err(err).Msg("Serial transmit failed")
			}
			// Completion is signalled even on failure so the status line
			// never stalls.
			irqs.Raise(irq.TransmitComplete, 0)
		}
	}
}

func (u *UART) Close() error {
	return u.port.Close()
}
