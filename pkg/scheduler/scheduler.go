// Package scheduler runs the periodic tick: three fixed timing domains
// (status resend, sensor trigger, LED blink) driven from one timer interrupt.
package scheduler

import (
	"sync/atomic"
	"time"

	"periph.io/x/periph/conn/gpio"

	"github.com/tigerbot-team/sonarbot/pkg/hardware"
	"github.com/tigerbot-team/sonarbot/pkg/sonar"
)

const (
	TickPeriod = 50 * time.Microsecond

	ResendPeriod  uint32 = 20000 // 1 s
	TriggerPeriod uint32 = 4000  // 200 ms
)

// PulseCounter is advanced once per tick while an echo is measured.
type PulseCounter interface {
	Tick()
}

// Ranging provides the latest distance and the LED period derived from it.
type Ranging interface {
	Distance() uint32
	BlinkPeriod() uint32
}

// Kicker restarts the status message.
type Kicker interface {
	Kick()
}

type Counters struct {
	Resend, Trigger, LED uint32
}

// Scheduler owns the three tick counters and the LED level; nothing else
// writes them, except ResetResend from a masked main-loop section.
type Scheduler struct {
	pins    hardware.Pins
	pulse   PulseCounter
	ranging Ranging
	status  Kicker

	resend  atomic.Uint32
	trigger atomic.Uint32
	led     atomic.Uint32
	ledOn   atomic.Bool

	faults atomic.Uint32
}

func New(pins hardware.Pins, pulse PulseCounter, ranging Ranging, status Kicker) *Scheduler {
	return &Scheduler{
		pins:    pins,
		pulse:   pulse,
		ranging: ranging,
		status:  status,
	}
}

// Tick is the timer interrupt handler. It must never block.
func (s *Scheduler) Tick() {
	s.pulse.Tick()

	// The trigger is only ever high for the one tick after it was raised.
	s.check(s.pins.SetTrigger(gpio.Low))

	if s.resend.Add(1) >= ResendPeriod {
		s.status.Kick()
		s.resend.Store(0)
	}

	if s.trigger.Add(1) >= TriggerPeriod {
		s.check(s.pins.SetTrigger(gpio.High))
		s.trigger.Store(0)
	}

	if s.led.Add(1) >= s.ranging.BlinkPeriod() {
		if s.ranging.Distance() <= sonar.ObstacleThreshold {
			s.ledOn.Store(true)
		} else {
			s.ledOn.Store(!s.ledOn.Load())
		}
		s.check(s.pins.SetLED(gpio.Level(s.ledOn.Load())))
		s.led.Store(0)
	}
}

// ResetResend restarts the one-second resend cadence. Call with interrupts
// masked.
func (s *Scheduler) ResetResend() {
	s.resend.Store(0)
}

// Counters reads the three counters. The set is consistent only with
// interrupts masked.
func (s *Scheduler) Counters() Counters {
	return Counters{
		Resend:  s.resend.Load(),
		Trigger: s.trigger.Load(),
		LED:     s.led.Load(),
	}
}

func (s *Scheduler) LED() bool {
	return s.ledOn.Load()
}

// Faults returns the number of failed pin writes.
func (s *Scheduler) Faults() uint32 {
	return s.faults.Load()
}

func (s *Scheduler) check(err error) {
	if err != nil {
		s.faults.Add(1)
	}
}
