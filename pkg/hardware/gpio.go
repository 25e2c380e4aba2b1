package hardware

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"

	"github.com/tigerbot-team/sonarbot/pkg/irq"
)

const echoPollTimeout = 100 * time.Millisecond

// GPIO drives the sensor trigger, the LED and the four H-bridge inputs, and
// watches the echo input.
type GPIO struct {
	Trigger   gpio.PinIO
	LED       gpio.PinIO
	Echo      gpio.PinIO
	Direction [4]gpio.PinIO
}

func pinByName(role, name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no GPIO %s pin named: %s", role, name)
	}
	return p, nil
}

// NewGPIO looks up and configures the named pins. Pin names are those
// understood by gpioreg.ByName; on a Raspberry Pi, the BCM number.
func NewGPIO(trigger, echo, led string, direction []string) (*GPIO, error) {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "initialising periph")
	}
	if len(direction) != 4 {
		return nil, fmt.Errorf("need 4 direction pins, got %d", len(direction))
	}

	var g GPIO
	var err error
	if g.Trigger, err = pinByName("trigger", trigger); err != nil {
		return nil, err
	}
	if g.Echo, err = pinByName("echo", echo); err != nil {
		return nil, err
	}
	if g.LED, err = pinByName("LED", led); err != nil {
		return nil, err
	}
	for i, name := range direction {
		if g.Direction[i], err = pinByName(fmt.Sprintf("IN%d", i+1), name); err != nil {
			return nil, err
		}
	}

	for _, p := range append([]gpio.PinIO{g.Trigger, g.LED}, g.Direction[:]...) {
		if err := p.Out(gpio.Low); err != nil {
			return nil, errors.Wrapf(err, "configuring %s as output", p)
		}
	}
	if err := g.Echo.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return nil, errors.Wrapf(err, "configuring echo pin %s", g.Echo)
	}
	return &g, nil
}

func (g *GPIO) SetTrigger(l gpio.Level) error {
	return g.Trigger.Out(l)
}

func (g *GPIO) SetLED(l gpio.Level) error {
	return g.LED.Out(l)
}

func (g *GPIO) SetDirection(d Direction) error {
	bits := d.Bits()
	for i, p := range g.Direction {
		if err := p.Out(gpio.Level(bits&(1<<uint(i)) != 0)); err != nil {
			return err
		}
	}
	return nil
}

// WatchEcho raises an irq.Echo request, carrying the new level, for every
// edge on the echo input until ctx is done.
func (g *GPIO) WatchEcho(ctx context.Context, irqs *irq.Controller) {
	log.Info().Str("pin", g.Echo.String()).Msg("Watching echo pin")
	for ctx.Err() == nil {
		if !g.Echo.WaitForEdge(echoPollTimeout) {
			continue
		}
		var level byte
		if g.Echo.Read() == gpio.High {
			level = 1
		}
		irqs.Raise(irq.Echo, level)
	}
}

func (g *GPIO) Close() error {
	if err := g.Echo.Halt(); err != nil {
		return err
	}
	for _, p := range append([]gpio.PinIO{g.Trigger, g.LED}, g.Direction[:]...) {
		_ = p.Out(gpio.Low)
	}
	return nil
}
