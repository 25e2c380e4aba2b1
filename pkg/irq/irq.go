// Package irq models a single-core interrupt controller on top of the Go
// runtime.
//
// Peripheral drivers run in their own goroutines and Raise requests; one
// dispatcher goroutine runs the registered handlers one at a time, so
// handlers never preempt each other. The main loop may preempt nothing: it
// only masks interrupts briefly with Critical.
package irq

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

type Vector uint8

const (
	Timer Vector = iota
	Echo
	Receive
	TransmitComplete

	numVectors
)

func (v Vector) String() string {
	switch v {
	case Timer:
		return "timer"
	case Echo:
		return "echo"
	case Receive:
		return "receive"
	case TransmitComplete:
		return "transmit-complete"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}
}

// Handler is an interrupt service routine. Data carries the byte latched by
// the peripheral (received byte, echo pin level); it is zero for vectors that
// have none.
type Handler func(data byte)

type request struct {
	vector Vector
	data   byte
}

// QueueDepth is the number of interrupt requests that may be pending before
// further requests are dropped.
const QueueDepth = 64

type Controller struct {
	mask     sync.Mutex
	handlers [numVectors]Handler

	pending chan request
	wake    chan struct{}

	dropped atomic.Uint32
	served  [numVectors]atomic.Uint32
}

func New() *Controller {
	return &Controller{
		pending: make(chan request, QueueDepth),
		wake:    make(chan struct{}, 1),
	}
}

// Handle registers the handler for a vector. It must be called before Run.
func (c *Controller) Handle(v Vector, h Handler) {
	c.handlers[v] = h
}

// Raise requests an interrupt. It never blocks; if too many requests are
// pending the request is lost and counted.
func (c *Controller) Raise(v Vector, data byte) bool {
	select {
	case c.pending <- request{vector: v, data: data}:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// Dispatch runs the handler for v synchronously with interrupts masked.
func (c *Controller) Dispatch(v Vector, data byte) {
	c.mask.Lock()
	h := c.handlers[v]
	if h != nil {
		h(data)
	}
	c.mask.Unlock()
	c.served[v].Add(1)
	c.signal()
}

// Critical runs fn with interrupts masked. Keep fn short: every pending
// interrupt waits for it.
func (c *Controller) Critical(fn func()) {
	c.mask.Lock()
	defer c.mask.Unlock()
	fn()
}

// Run dispatches pending interrupts until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-c.pending:
			c.Dispatch(r.vector, r.data)
		}
	}
}

// Wait blocks until an interrupt has been serviced or ctx is done, the way a
// CPU sleeps until the next interrupt.
func (c *Controller) Wait(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-c.wake:
	}
}

func (c *Controller) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Dropped returns the number of interrupt requests lost to a full queue.
func (c *Controller) Dropped() uint32 {
	return c.dropped.Load()
}

// Served returns how many times the handler for v has run.
func (c *Controller) Served(v Vector) uint32 {
	return c.served[v].Load()
}
