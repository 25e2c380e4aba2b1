// Package motion turns single-byte serial commands into motor outputs and a
// status message.
package motion

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tigerbot-team/sonarbot/pkg/hardware"
	"github.com/tigerbot-team/sonarbot/pkg/sonar"
	"github.com/tigerbot-team/sonarbot/pkg/status"
	"github.com/tigerbot-team/sonarbot/pkg/tunable"
)

type Code = byte

const (
	CmdForward          Code = 'w'
	CmdBackward         Code = 's'
	CmdCounterClockwise Code = 'a'
	CmdClockwise        Code = 'd'
	CmdStop             Code = 'q'
	CmdReport           Code = 'e'
	CmdSpeed70          Code = '7'
	CmdSpeed80          Code = '8'
	CmdSpeed100         Code = '0'
	CmdObstacle         Code = 'X'
)

const (
	DefaultTurnHold = 50 * time.Millisecond
	DefaultSpeed    = 70
)

// Selector makes a message the active status line.
type Selector interface {
	Select(m *status.Message)
}

// ReportSource returns the most recent distance report.
type ReportSource interface {
	LatestReport() *status.Message
}

// Bias holds the per-wheel duty offsets, in percentage points.
type Bias [hardware.NumWheels]*tunable.Tunable

func NewBias(t *tunable.Tunables, left, right int) Bias {
	return Bias{
		hardware.Left:  t.Create("bias-left", left, 0, 100),
		hardware.Right: t.Create("bias-right", right, 0, 100),
	}
}

// Controller is the only writer of the motor outputs. Execute and
// ShouldOverride run on the main loop; the getters may be called from
// anywhere.
type Controller struct {
	motors  hardware.Motors
	status  Selector
	reports ReportSource
	bias    Bias

	// Delay blocks for the turn hold. Defaults to time.Sleep.
	Delay    func(time.Duration)
	TurnHold time.Duration

	direction atomic.Uint32
	speed     atomic.Uint32
	last      atomic.Uint32

	faults atomic.Uint32
}

func New(motors hardware.Motors, sel Selector, reports ReportSource, bias Bias) *Controller {
	c := &Controller{
		motors:   motors,
		status:   sel,
		reports:  reports,
		bias:     bias,
		Delay:    time.Sleep,
		TurnHold: DefaultTurnHold,
	}
	c.last.Store(uint32(CmdStop))
	return c
}

// Reset drives the outputs to their power-on state: stopped, 70% duty.
func (c *Controller) Reset() {
	c.drive(hardware.Stopped)
	c.setSpeed(DefaultSpeed)
}

// Stop halts the wheels without selecting a message.
func (c *Controller) Stop() {
	c.drive(hardware.Stopped)
}

// Execute applies one command. It returns false, changing nothing but the
// last command, for codes it does not know.
func (c *Controller) Execute(code Code) bool {
	c.last.Store(uint32(code))

	var msg *status.Message
	switch code {
	case CmdForward:
		c.drive(hardware.Forward)
		msg = status.Forward
	case CmdBackward:
		c.drive(hardware.Backward)
		msg = status.Backward
	case CmdCounterClockwise:
		c.turn(hardware.CounterClockwise)
		msg = status.CounterClockwise
	case CmdClockwise:
		c.turn(hardware.Clockwise)
		msg = status.Clockwise
	case CmdStop:
		c.drive(hardware.Stopped)
		msg = status.Stopped
	case CmdReport:
		msg = c.reports.LatestReport()
	case CmdSpeed70:
		c.setSpeed(70)
		msg = status.Speed70
	case CmdSpeed80:
		c.setSpeed(80)
		msg = status.Speed80
	case CmdSpeed100:
		c.setSpeed(100)
		msg = status.Speed100
	case CmdObstacle:
		c.drive(hardware.Stopped)
		msg = status.Obstacle
	default:
		return false
	}
	c.status.Select(msg)
	return true
}

// ShouldOverride reports whether the obstacle stop must be synthesised: the
// robot is driving forward within the threshold and has not already been
// stopped for it.
func (c *Controller) ShouldOverride(distanceCm uint32) bool {
	return c.Direction() == hardware.Forward &&
		distanceCm <= sonar.ObstacleThreshold &&
		c.LastCommand() != CmdObstacle
}

func (c *Controller) turn(d hardware.Direction) {
	c.drive(d)
	c.Delay(c.TurnHold)
	c.drive(hardware.Stopped)
}

func (c *Controller) drive(d hardware.Direction) {
	c.direction.Store(uint32(d))
	c.check(c.motors.SetDirection(d))
}

func (c *Controller) setSpeed(percent int) {
	c.speed.Store(uint32(percent))
	for w := hardware.Wheel(0); w < hardware.NumWheels; w++ {
		c.check(c.motors.SetDuty(w, c.Duty(w)))
	}
}

// Duty returns the duty actually applied to a wheel: the selected speed minus
// that wheel's bias, within 0..100.
func (c *Controller) Duty(w hardware.Wheel) int {
	duty := int(c.speed.Load())
	if b := c.bias[w]; b != nil {
		duty -= b.Get()
	}
	if duty < 0 {
		return 0
	}
	if duty > 100 {
		return 100
	}
	return duty
}

// ReapplySpeed rewrites the wheel duties, e.g. after a bias change.
func (c *Controller) ReapplySpeed() {
	c.setSpeed(c.Speed())
}

func (c *Controller) Direction() hardware.Direction {
	return hardware.Direction(c.direction.Load())
}

// Speed returns the selected speed in percent, before bias.
func (c *Controller) Speed() int {
	return int(c.speed.Load())
}

func (c *Controller) LastCommand() Code {
	return Code(c.last.Load())
}

func (c *Controller) Faults() uint32 {
	return c.faults.Load()
}

func (c *Controller) check(err error) {
	if err != nil {
		c.faults.Add(1)
	}
}

// Describe names a command code for logs and the debug console.
func Describe(code Code) string {
	switch code {
	case CmdForward:
		return "forward"
	case CmdBackward:
		return "backward"
	case CmdCounterClockwise:
		return "rotate counter-clockwise"
	case CmdClockwise:
		return "rotate clockwise"
	case CmdStop:
		return "stop"
	case CmdReport:
		return "report distance"
	case CmdSpeed70:
		return "speed 70%"
	case CmdSpeed80:
		return "speed 80%"
	case CmdSpeed100:
		return "speed 100%"
	case CmdObstacle:
		return "obstacle stop"
	default:
		return fmt.Sprintf("unknown(%q)", code)
	}
}
