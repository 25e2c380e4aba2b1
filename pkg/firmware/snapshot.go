package firmware

import (
	"github.com/tigerbot-team/sonarbot/pkg/hardware"
	"github.com/tigerbot-team/sonarbot/pkg/irq"
	"github.com/tigerbot-team/sonarbot/pkg/scheduler"
	"github.com/tigerbot-team/sonarbot/pkg/sonar"
	"github.com/tigerbot-team/sonarbot/pkg/status"
)

// Snapshot is a point-in-time view of the engine for observers. Each field is
// read atomically. Counters, Echo and PulseTicks are read together with
// interrupts masked; the set as a whole is not.
type Snapshot struct {
	DistanceCm  uint32
	BlinkPeriod uint32
	Direction   hardware.Direction
	Speed       int
	Duty        [hardware.NumWheels]int
	Message     string
	Sending     bool
	LED         bool
	LastCommand byte

	Counters   scheduler.Counters
	Echo       sonar.State
	PulseTicks uint32

	Faults            uint32
	DroppedCommands   uint32
	DroppedInterrupts uint32
	DroppedEvents     uint32
	Ticks             uint32
}

func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		DistanceCm:        e.Estimator.Distance(),
		BlinkPeriod:       e.Estimator.BlinkPeriod(),
		Direction:         e.Motion.Direction(),
		Speed:             e.Motion.Speed(),
		LED:               e.Scheduler.LED(),
		LastCommand:       e.Motion.LastCommand(),
		Faults:            e.Faults(),
		DroppedCommands:   e.Mailbox.Dropped(),
		DroppedInterrupts: e.irqs.Dropped(),
		DroppedEvents:     e.eventsDropped.Load(),
		Ticks:             e.irqs.Served(irq.Timer),
	}
	if m := e.Status.Active(); m != nil {
		s.Message = m.Text
	}
	e.irqs.Critical(func() {
		s.Counters = e.Scheduler.Counters()
		s.Echo = e.Capture.State()
		s.PulseTicks = e.Capture.PulseTicks()
	})
	s.Sending = e.Status.State() == status.Sending
	for w := hardware.Wheel(0); w < hardware.NumWheels; w++ {
		s.Duty[w] = e.Motion.Duty(w)
	}
	return s
}
