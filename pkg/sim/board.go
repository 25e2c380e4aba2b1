package sim

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/kr/pty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"periph.io/x/periph/conn/gpio"

	"github.com/tigerbot-team/sonarbot/pkg/hardware"
	"github.com/tigerbot-team/sonarbot/pkg/irq"
	"github.com/tigerbot-team/sonarbot/pkg/scheduler"
)

// echoDelayTicks is the gap between the trigger and the start of the echo.
const echoDelayTicks = 10

// Board implements hardware.Interface against a World. It is its own tick
// source: echo edges are raised in step with the timer interrupts so that
// the measured pulse width is exact.
type Board struct {
	World      *World
	TickPeriod time.Duration

	uart *hardware.UART
	tty  *os.File

	lock      sync.Mutex
	irqs      *irq.Controller
	ticks     uint64
	moved     uint64
	echoRise  uint64
	echoFall  uint64
	trigger   gpio.Level
	led       gpio.Level
	direction hardware.Direction
	duty      [hardware.NumWheels]int
}

// NewBoard builds a board whose serial side is port.
func NewBoard(world *World, port io.ReadWriteCloser) *Board {
	return &Board{
		World:      world,
		TickPeriod: scheduler.TickPeriod,
		uart:       hardware.NewUART(port),
	}
}

// NewPTYBoard builds a board whose serial side is a pseudo-terminal. The
// returned name is the terminal an operator console should open.
func NewPTYBoard(world *World) (*Board, string, error) {
	master, tty, err := pty.Open()
	if err != nil {
		return nil, "", errors.Wrap(err, "opening pseudo-terminal")
	}
	b := NewBoard(world, master)
	// Holding the slave open keeps reads on the master from failing while
	// no console is attached.
	b.tty = tty
	log.Info().Str("tty", tty.Name()).Msg("Simulated serial port ready")
	return b, tty.Name(), nil
}

var _ hardware.Interface = (*Board)(nil)

func (b *Board) Start(ctx context.Context, irqs *irq.Controller) error {
	b.lock.Lock()
	b.irqs = irqs
	b.lock.Unlock()

	b.uart.Start(ctx, irqs)
	go b.loop(ctx)
	return nil
}

func (b *Board) loop(ctx context.Context) {
	log.Info().Dur("tick", b.TickPeriod).Msg("Simulated board running")
	ticker := time.NewTicker(b.TickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.step()
		}
	}
}

// step advances the board by one tick.
func (b *Board) step() {
	b.lock.Lock()
	b.ticks++
	now := b.ticks
	irqs := b.irqs
	var edge *byte
	switch now {
	case b.echoRise:
		high := byte(1)
		edge = &high
	case b.echoFall:
		low := byte(0)
		edge = &low
		b.echoRise, b.echoFall = 0, 0
	}
	b.lock.Unlock()

	if irqs == nil {
		return
	}
	if edge != nil {
		irqs.Raise(irq.Echo, *edge)
	}
	irqs.Raise(irq.Timer, 0)
}

func (b *Board) SetTrigger(l gpio.Level) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if l == gpio.High && b.trigger == gpio.Low && b.echoRise == 0 {
		b.advanceLocked()
		width := uint64(EchoTicks(uint32(b.World.DistanceCm())))
		b.echoRise = b.ticks + echoDelayTicks
		b.echoFall = b.echoRise + width
	}
	b.trigger = l
	return nil
}

// advanceLocked moves the world forward to the current tick.
func (b *Board) advanceLocked() {
	elapsed := time.Duration(b.ticks-b.moved) * b.TickPeriod
	b.moved = b.ticks
	b.World.Advance(b.direction, (b.duty[hardware.Left]+b.duty[hardware.Right])/2, elapsed)
}

func (b *Board) SetLED(l gpio.Level) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.led = l
	return nil
}

func (b *Board) LED() gpio.Level {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.led
}

func (b *Board) SetDirection(d hardware.Direction) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.advanceLocked()
	b.direction = d
	return nil
}

func (b *Board) Direction() hardware.Direction {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.direction
}

func (b *Board) SetDuty(w hardware.Wheel, percent int) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.advanceLocked()
	b.duty[w] = percent
	return nil
}

func (b *Board) TransmitByte(c byte) error {
	return b.uart.TransmitByte(c)
}

func (b *Board) Close() error {
	err := b.uart.Close()
	if b.tty != nil {
		_ = b.tty.Close()
	}
	return err
}
