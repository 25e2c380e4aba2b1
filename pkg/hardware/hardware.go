package hardware

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"periph.io/x/periph/conn/gpio"

	"github.com/tigerbot-team/sonarbot/pkg/config"
	"github.com/tigerbot-team/sonarbot/pkg/irq"
)

// Hardware is the real robot: GPIO pins through periph, motor PWM over I2C
// and the operator link on a serial port.
type Hardware struct {
	gpio *GPIO
	pwm  *PWMController
	uart *UART

	cancel context.CancelFunc
	done   sync.WaitGroup
}

func New(cfg config.HardwareConfig) (*Hardware, error) {
	g, err := NewGPIO(cfg.TriggerPin, cfg.EchoPin, cfg.LEDPin, cfg.DirectionPins)
	if err != nil {
		return nil, err
	}
	u, err := OpenUART(cfg.SerialPort, cfg.BaudRate)
	if err != nil {
		_ = g.Close()
		return nil, err
	}
	return &Hardware{
		gpio: g,
		pwm:  NewPWMController(cfg.I2CDevice, cfg.PWMChannels),
		uart: u,
	}, nil
}

var _ Interface = (*Hardware)(nil)

// Start waits for the PWM chip to be initialised, then begins raising
// interrupts.
func (h *Hardware) Start(ctx context.Context, irqs *irq.Controller) error {
	ctx, h.cancel = context.WithCancel(ctx)

	var initDone sync.WaitGroup
	initDone.Add(1)
	h.done.Add(2)
	go func() {
		defer h.done.Done()
		h.pwm.Loop(ctx, &initDone)
	}()
	initDone.Wait()

	go func() {
		defer h.done.Done()
		h.gpio.WatchEcho(ctx, irqs)
	}()
	h.uart.Start(ctx, irqs)
	return nil
}

func (h *Hardware) SetTrigger(l gpio.Level) error {
	return h.gpio.SetTrigger(l)
}

func (h *Hardware) SetLED(l gpio.Level) error {
	return h.gpio.SetLED(l)
}

func (h *Hardware) SetDirection(d Direction) error {
	return h.gpio.SetDirection(d)
}

func (h *Hardware) SetDuty(w Wheel, percent int) error {
	return h.pwm.SetDuty(w, percent)
}

func (h *Hardware) TransmitByte(b byte) error {
	return h.uart.TransmitByte(b)
}

func (h *Hardware) Close() error {
	log.Info().Msg("HW: Shutting down")
	if h.cancel != nil {
		h.cancel()
	}
	uartErr := h.uart.Close()
	gpioErr := h.gpio.Close()
	h.done.Wait()
	if uartErr != nil {
		return uartErr
	}
	return gpioErr
}
