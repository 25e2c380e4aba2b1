package status

import (
	"fmt"
	"sync/atomic"

	"github.com/tigerbot-team/sonarbot/pkg/hardware"
)

type State uint32

const (
	Idle State = iota
	Sending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(s))
	}
}

type Event uint8

const (
	// Kick comes from the resend timer.
	Kick Event = iota
	// Sent is the transmit-complete interrupt.
	Sent
	// Select installs a new message from the main loop.
	Select
)

type action func(t *Transmitter) State

var transitions = [2][3]action{
	Idle: {
		Kick:   (*Transmitter).sendFirst,
		Sent:   (*Transmitter).stay,
		Select: (*Transmitter).sendFirst,
	},
	Sending: {
		Kick:   (*Transmitter).sendFirst,
		Sent:   (*Transmitter).sendNext,
		Select: (*Transmitter).sendFirst,
	},
}

// Transmitter is the status message state machine.
//
// cursor, state and pending change only in interrupt context (Kick, OnSent)
// or with interrupts masked (Select, Refresh). The message pointer is atomic
// so that observers can read it from anywhere. A message on the wire is never
// swapped mid-copy: a fresh report waits in pending until the next copy
// starts.
type Transmitter struct {
	tx hardware.Serial
	// OnRestart runs whenever a new message is selected; the engine uses it
	// to restart the resend cadence.
	OnRestart func()

	msg     atomic.Pointer[Message]
	pending *Message
	state   atomic.Uint32
	cursor  int

	faults atomic.Uint32
}

func NewTransmitter(tx hardware.Serial, initial *Message) *Transmitter {
	t := &Transmitter{tx: tx}
	t.msg.Store(initial)
	return t
}

func (t *Transmitter) fire(e Event) {
	next := transitions[t.State()][e](t)
	t.state.Store(uint32(next))
}

// Kick starts a fresh copy of the active message. A copy still in progress
// is abandoned, so a lost byte or completion never silences the line for
// more than one resend period. Interrupt context.
func (t *Transmitter) Kick() {
	t.fire(Kick)
}

// OnSent handles transmit-complete. Interrupt context.
func (t *Transmitter) OnSent() {
	t.fire(Sent)
}

// Select makes m the active message and sends its first byte straight away.
// Main loop, with interrupts masked.
func (t *Transmitter) Select(m *Message) {
	t.pending = nil
	t.msg.Store(m)
	t.fire(Select)
	if t.OnRestart != nil {
		t.OnRestart()
	}
}

// Refresh replaces the active distance report with a newer one, keeping the
// cadence. While a copy is on the wire the new report is held back until
// that copy ends. It does nothing unless a report is active. Main loop, with
// interrupts masked.
func (t *Transmitter) Refresh(m *Message) bool {
	if t.Active().Kind != DistanceReport || m.Kind != DistanceReport {
		return false
	}
	if t.State() == Sending {
		t.pending = m
	} else {
		t.msg.Store(m)
	}
	return true
}

func (t *Transmitter) install() {
	if t.pending != nil {
		t.msg.Store(t.pending)
		t.pending = nil
	}
}

func (t *Transmitter) sendFirst() State {
	t.install()
	t.cursor = 0
	text := t.Active().Text
	if len(text) == 0 {
		return Idle
	}
	return t.send(text[0])
}

func (t *Transmitter) sendNext() State {
	text := t.Active().Text
	next := t.cursor + 1
	if next >= len(text) {
		t.cursor = 0
		t.install()
		return Idle
	}
	t.cursor = next
	return t.send(text[next])
}

func (t *Transmitter) stay() State {
	return t.State()
}

// send hands b to the port. A refused byte drops the rest of the copy; the
// next Kick starts over.
func (t *Transmitter) send(b byte) State {
	if err := t.tx.TransmitByte(b); err != nil {
		t.faults.Add(1)
		t.cursor = 0
		t.install()
		return Idle
	}
	return Sending
}

func (t *Transmitter) Active() *Message {
	return t.msg.Load()
}

func (t *Transmitter) State() State {
	return State(t.state.Load())
}

// Faults returns the number of bytes the serial port refused.
func (t *Transmitter) Faults() uint32 {
	return t.faults.Load()
}
