// Package firmware wires the interrupt handlers and runs the main loop.
package firmware

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/periph/conn/gpio"

	"github.com/tigerbot-team/sonarbot/pkg/config"
	"github.com/tigerbot-team/sonarbot/pkg/hardware"
	"github.com/tigerbot-team/sonarbot/pkg/irq"
	"github.com/tigerbot-team/sonarbot/pkg/mailbox"
	"github.com/tigerbot-team/sonarbot/pkg/motion"
	"github.com/tigerbot-team/sonarbot/pkg/scheduler"
	"github.com/tigerbot-team/sonarbot/pkg/sonar"
	"github.com/tigerbot-team/sonarbot/pkg/status"
	"github.com/tigerbot-team/sonarbot/pkg/tunable"
)

const EventQueueDepth = 16

type Engine struct {
	irqs *irq.Controller
	hw   hardware.Interface

	Capture   *sonar.Capture
	Estimator *sonar.Estimator
	Mailbox   *mailbox.Mailbox
	Status    *status.Transmitter
	Scheduler *scheduler.Scheduler
	Motion    *motion.Controller
	Tunables  tunable.Tunables

	report      atomic.Pointer[status.Message]
	biasChanged atomic.Bool

	events        chan Event
	eventsDropped atomic.Uint32
}

func New(hw hardware.Interface, irqs *irq.Controller, cfg config.MotionConfig) *Engine {
	e := &Engine{
		irqs:    irqs,
		hw:      hw,
		Capture: &sonar.Capture{},
		Mailbox: &mailbox.Mailbox{},
		events:  make(chan Event, EventQueueDepth),
	}
	e.report.Store(status.NewReport(sonar.Report(0)))
	e.Estimator = sonar.NewEstimator(e.Capture)
	e.Status = status.NewTransmitter(hw, status.Stopped)
	e.Scheduler = scheduler.New(hw, e.Capture, e.Estimator, e.Status)
	e.Status.OnRestart = e.Scheduler.ResetResend

	bias := motion.NewBias(&e.Tunables, cfg.BiasLeft, cfg.BiasRight)
	e.Motion = motion.New(hw, maskedSelector{e}, e, bias)
	if cfg.TurnHoldMs > 0 {
		e.Motion.TurnHold = time.Duration(cfg.TurnHoldMs) * time.Millisecond
	}

	irqs.Handle(irq.Timer, func(byte) {
		e.Scheduler.Tick()
	})
	irqs.Handle(irq.Echo, func(level byte) {
		e.Capture.OnEdge(gpio.Level(level != 0))
	})
	irqs.Handle(irq.Receive, func(code byte) {
		e.Mailbox.Submit(code)
	})
	irqs.Handle(irq.TransmitComplete, func(byte) {
		e.Status.OnSent()
	})
	return e
}

// maskedSelector selects status messages with interrupts masked, so that the
// cursor, the resend counter and the first byte change together.
type maskedSelector struct {
	e *Engine
}

func (s maskedSelector) Select(m *status.Message) {
	s.e.irqs.Critical(func() {
		s.e.Status.Select(m)
	})
}

// LatestReport returns the distance report built from the last measurement.
func (e *Engine) LatestReport() *status.Message {
	return e.report.Load()
}

// Start puts the outputs in their power-on state and starts the peripherals.
func (e *Engine) Start(ctx context.Context) error {
	e.Motion.Reset()
	return e.hw.Start(ctx, e.irqs)
}

// BiasChanged asks the main loop to rewrite the wheel duties after a bias
// tunable has been adjusted. Safe from any goroutine.
func (e *Engine) BiasChanged() {
	e.biasChanged.Store(true)
}

// Step runs one pass of the main loop.
func (e *Engine) Step() {
	if e.biasChanged.CompareAndSwap(true, false) {
		e.Motion.ReapplySpeed()
	}

	if r, ok := e.Estimator.Estimate(); ok {
		report := status.NewReport(r.Report)
		e.report.Store(report)
		e.irqs.Critical(func() {
			e.Status.Refresh(report)
		})
		e.emit(Event{Kind: DistanceMeasured, DistanceCm: r.DistanceCm})
	}

	if d := e.Estimator.Distance(); e.Motion.ShouldOverride(d) {
		e.irqs.Critical(func() {
			e.Mailbox.Override(motion.CmdObstacle)
		})
		e.emit(Event{Kind: ObstacleStop, DistanceCm: d})
	}

	if code, ok := e.Mailbox.Take(); ok {
		if e.Motion.Execute(code) {
			e.emit(Event{Kind: CommandExecuted, Code: code, DistanceCm: e.Estimator.Distance()})
		}
	}
}

// Run loops until ctx is cancelled, sleeping between interrupts. The motors
// are stopped on the way out.
func (e *Engine) Run(ctx context.Context) error {
	log.Info().Msg("Main loop running")
	for ctx.Err() == nil {
		e.Step()
		e.irqs.Wait(ctx)
	}
	log.Info().Msg("Main loop stopping")
	e.Motion.Stop()
	return ctx.Err()
}

// Inject raises a receive interrupt as if code had arrived on the serial
// line.
func (e *Engine) Inject(code byte) bool {
	return e.irqs.Raise(irq.Receive, code)
}

// Events delivers notifications for observers. Events are dropped, and
// counted, when nobody keeps up.
func (e *Engine) Events() <-chan Event {
	return e.events
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.eventsDropped.Add(1)
	}
}

// Faults returns the number of peripheral writes that failed.
func (e *Engine) Faults() uint32 {
	return e.Scheduler.Faults() + e.Status.Faults() + e.Motion.Faults()
}
