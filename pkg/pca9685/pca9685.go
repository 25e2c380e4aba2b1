package pca9685

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x40

	RegMode1 = 0x00
	RegMode2 = 0x01

	// Each PWM output has two 16-bit (low byte first) registers.
	// First register is the on time, second is the off time.
	RegLEDBase = 0x06

	RegPreScale = 0xfe // Pre-scaler for PWM frequency.

	OscillatorHz = 25000000
	PWMMax       = 4095

	// Bit 4 of the high on/off byte forces the output fully on/off.
	fullBit = 0x10

	// MotorPrescale is the smallest prescale the chip accepts, giving a
	// ~1.5 kHz carrier.
	MotorPrescale = 3
)

// FrequencyHz returns the PWM carrier frequency for a prescale value.
func FrequencyHz(prescale byte) int {
	return OscillatorHz / (4096 * (int(prescale) + 1))
}

type Interface interface {
	Configure(prescale byte) error
	// SetDuty sets the duty cycle of one output, in percent.
	SetDuty(channel int, percent int) error
	Close() error
}

type registers interface {
	WriteReg(reg byte, buf []byte) error
	Close() error
}

type PCA9685 struct {
	dev registers
}

func New(deviceFile string) (Interface, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, DefaultAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "opening PCA9685 on %s", deviceFile)
	}
	return &PCA9685{
		dev: dev,
	}, nil
}

func (p *PCA9685) Configure(prescale byte) (err error) {
	if prescale < MotorPrescale {
		return fmt.Errorf("prescale %d below chip minimum %d", prescale, MotorPrescale)
	}
	// Put device to sleep; the prescaler can only be written while asleep.
	err = p.dev.WriteReg(RegMode1, []byte{0x11})
	if err != nil {
		return
	}
	err = p.dev.WriteReg(RegPreScale, []byte{prescale})
	if err != nil {
		return
	}
	// Trigger a reset
	err = p.dev.WriteReg(RegMode1, []byte{0x01})
	if err != nil {
		return
	}
	// Required delay after reset.
	time.Sleep(1 * time.Millisecond)
	// Enable, with register auto-increment.
	err = p.dev.WriteReg(RegMode1, []byte{0xa1})
	return
}

func (p *PCA9685) SetDuty(channel int, percent int) error {
	if channel < 0 || channel > 15 {
		return fmt.Errorf("PWM channel out of range: %d", channel)
	}
	return p.dev.WriteReg(byte(RegLEDBase+channel*4), dutyRegisters(percent))
}

// dutyRegisters encodes ON_L, ON_H, OFF_L, OFF_H for a duty cycle.
func dutyRegisters(percent int) []byte {
	switch {
	case percent <= 0:
		return []byte{0, 0, 0, fullBit}
	case percent >= 100:
		return []byte{0, fullBit, 0, 0}
	}
	off := uint16(PWMMax * percent / 100)
	return []byte{0, 0, byte(off & 0xff), byte(off >> 8)}
}

func (p *PCA9685) Close() error {
	return p.dev.Close()
}

func Dummy() Interface {
	return &dummyPWM{}
}

type dummyPWM struct {
}

func (*dummyPWM) Configure(prescale byte) error {
	return nil
}

func (*dummyPWM) SetDuty(channel int, percent int) error {
	return nil
}

func (*dummyPWM) Close() error {
	return nil
}
