// Package mailbox hands single command bytes from the receive interrupt to
// the main loop.
package mailbox

import "sync/atomic"

// Mailbox is a capacity-1 slot. A command arriving while another is pending
// is dropped.
//
// Ownership: code is written only while present is false (by Submit) or with
// interrupts masked (by Override). present is set by the writer and cleared
// only by Take.
type Mailbox struct {
	code    atomic.Uint32
	present atomic.Bool

	dropped atomic.Uint32
}

// Submit stores code unless a command is already pending. Interrupt context;
// never blocks.
func (m *Mailbox) Submit(code byte) bool {
	if m.present.Load() {
		m.dropped.Add(1)
		return false
	}
	m.code.Store(uint32(code))
	m.present.Store(true)
	return true
}

// Take returns and clears the pending command. Main loop only.
func (m *Mailbox) Take() (byte, bool) {
	if !m.present.Load() {
		return 0, false
	}
	code := byte(m.code.Load())
	m.present.Store(false)
	return code, true
}

// Override replaces whatever is pending with code. Main loop only, and only
// with interrupts masked, since it writes code while present may be false.
func (m *Mailbox) Override(code byte) {
	m.code.Store(uint32(code))
	m.present.Store(true)
}

func (m *Mailbox) Pending() bool {
	return m.present.Load()
}

// Dropped returns the number of commands lost because the slot was full.
func (m *Mailbox) Dropped() uint32 {
	return m.dropped.Load()
}
