package hardware

import (
	"context"
	"fmt"

	"periph.io/x/periph/conn/gpio"

	"github.com/tigerbot-team/sonarbot/pkg/irq"
)

// Direction is the drive state of the H-bridge.
type Direction uint8

const (
	Stopped Direction = iota
	Forward
	Backward
	Clockwise
	CounterClockwise
)

func (d Direction) String() string {
	switch d {
	case Stopped:
		return "stopped"
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Clockwise:
		return "clockwise"
	case CounterClockwise:
		return "counter-clockwise"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(d))
	}
}

// Bits returns the levels of the four H-bridge inputs, IN1 in bit 0.
func (d Direction) Bits() uint8 {
	switch d {
	case Forward:
		return 0b1100
	case Backward:
		return 0b0011
	case Clockwise:
		return 0b0101
	case CounterClockwise:
		return 0b1010
	default:
		return 0
	}
}

type Wheel int

const (
	Left Wheel = iota
	Right

	NumWheels
)

func (w Wheel) String() string {
	switch w {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("wheel(%d)", int(w))
	}
}

type Pins interface {
	SetTrigger(l gpio.Level) error
	SetLED(l gpio.Level) error
}

type Motors interface {
	SetDirection(d Direction) error
	// SetDuty sets the PWM duty cycle of one wheel, in percent.
	SetDuty(w Wheel, percent int) error
}

type Serial interface {
	// TransmitByte loads one byte into the transmitter. Completion is
	// signalled with an irq.TransmitComplete request.
	TransmitByte(b byte) error
}

type Interface interface {
	Pins
	Motors
	Serial

	// Start begins raising echo, receive and transmit-complete interrupts.
	Start(ctx context.Context, c *irq.Controller) error
	Close() error
}
