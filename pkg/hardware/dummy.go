package hardware

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"periph.io/x/periph/conn/gpio"

	"github.com/tigerbot-team/sonarbot/pkg/irq"
)

// Dummy records every output instead of driving real pins. Transmitted bytes
// complete immediately once Start has been called.
type Dummy struct {
	Verbose bool

	lock          sync.Mutex
	irqs          *irq.Controller
	trigger       gpio.Level
	triggerPulses int
	led           gpio.Level
	direction     Direction
	directions    []Direction
	duty          [NumWheels]int
	transmitted   []byte
}

func NewDummy() *Dummy {
	return &Dummy{}
}

var _ Interface = (*Dummy)(nil)

func (d *Dummy) Start(ctx context.Context, c *irq.Controller) error {
	d.lock.Lock()
	d.irqs = c
	d.lock.Unlock()
	if d.Verbose {
		log.Debug().Msg("DHW: Start")
	}
	return nil
}

func (d *Dummy) SetTrigger(l gpio.Level) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if l == gpio.High && d.trigger == gpio.Low {
		d.triggerPulses++
	}
	d.trigger = l
	return nil
}

func (d *Dummy) SetLED(l gpio.Level) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.led = l
	return nil
}

func (d *Dummy) SetDirection(dir Direction) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.Verbose {
		log.Debug().Stringer("direction", dir).Msg("DHW: SetDirection")
	}
	d.direction = dir
	d.directions = append(d.directions, dir)
	return nil
}

func (d *Dummy) SetDuty(w Wheel, percent int) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.Verbose {
		log.Debug().Stringer("wheel", w).Int("percent", percent).Msg("DHW: SetDuty")
	}
	d.duty[w] = percent
	return nil
}

func (d *Dummy) TransmitByte(b byte) error {
	d.lock.Lock()
	d.transmitted = append(d.transmitted, b)
	c := d.irqs
	d.lock.Unlock()
	if c != nil {
		c.Raise(irq.TransmitComplete, 0)
	}
	return nil
}

func (d *Dummy) Close() error {
	if d.Verbose {
		log.Debug().Msg("DHW: Close")
	}
	return nil
}

func (d *Dummy) Trigger() gpio.Level {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.trigger
}

func (d *Dummy) TriggerPulses() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.triggerPulses
}

func (d *Dummy) LED() gpio.Level {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.led
}

func (d *Dummy) Direction() Direction {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.direction
}

// Directions returns every direction written, oldest first.
func (d *Dummy) Directions() []Direction {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]Direction(nil), d.directions...)
}

func (d *Dummy) Duty(w Wheel) int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.duty[w]
}

// Transmitted returns every byte written to the serial transmitter.
func (d *Dummy) Transmitted() []byte {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]byte(nil), d.transmitted...)
}

// ResetTransmitted forgets the bytes sent so far.
func (d *Dummy) ResetTransmitted() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.transmitted = nil
}
