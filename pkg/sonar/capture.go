// Package sonar measures the echo pulse of an ultrasonic range finder in
// ticks and turns it into a distance.
package sonar

import (
	"fmt"
	"sync/atomic"

	"periph.io/x/periph/conn/gpio"
)

type State uint32

const (
	Idle State = iota
	Measuring
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Measuring:
		return "measuring"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(s))
	}
}

type Edge uint8

const (
	Rising Edge = iota
	Falling
)

// EdgeOf returns the edge that led to the given pin level.
func EdgeOf(l gpio.Level) Edge {
	if l == gpio.High {
		return Rising
	}
	return Falling
}

// Every edge is taken at face value: a rising edge always restarts the
// measurement and a falling edge always completes it.
var transitions = [3][2]State{
	Idle:      {Rising: Measuring, Falling: Complete},
	Measuring: {Rising: Measuring, Falling: Complete},
	Complete:  {Rising: Measuring, Falling: Complete},
}

// Capture is the echo pulse-width state machine.
//
// Ownership: state and pulse are written only from interrupt context (OnEdge,
// Tick). ready is set from interrupt context and cleared only by Consume in
// the main loop.
type Capture struct {
	state atomic.Uint32
	pulse atomic.Uint32
	ready atomic.Bool
}

// OnEdge handles a transition of the echo input. Interrupt context.
func (c *Capture) OnEdge(level gpio.Level) {
	edge := EdgeOf(level)
	next := transitions[c.State()][edge]
	switch edge {
	case Rising:
		c.pulse.Store(0)
	case Falling:
		c.ready.Store(true)
	}
	c.state.Store(uint32(next))
}

// Tick counts one tick of pulse width. The count is frozen while a completed
// measurement waits to be consumed. Interrupt context.
func (c *Capture) Tick() {
	if !c.ready.Load() {
		c.pulse.Add(1)
	}
}

// Consume clears the ready flag and returns the measured width, if a
// measurement has completed. Main loop only.
func (c *Capture) Consume() (ticks uint32, ok bool) {
	if !c.ready.CompareAndSwap(true, false) {
		return 0, false
	}
	return c.pulse.Load(), true
}

func (c *Capture) State() State {
	return State(c.state.Load())
}

func (c *Capture) Ready() bool {
	return c.ready.Load()
}

// PulseTicks returns the current pulse counter. Consistent with State only
// with interrupts masked.
func (c *Capture) PulseTicks() uint32 {
	return c.pulse.Load()
}
