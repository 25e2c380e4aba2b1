package hardware

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tigerbot-team/sonarbot/pkg/irq"
)

// pipePort joins a reader the test writes into and a buffer the UART writes
// to.
type pipePort struct {
	r *io.PipeReader

	lock sync.Mutex
	out  bytes.Buffer
}

func (p *pipePort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *pipePort) Write(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.out.Write(b)
}

func (p *pipePort) Close() error { return p.r.Close() }

func (p *pipePort) written() string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.out.String()
}

func TestUARTRaisesReceiveAndTransmitComplete(t *testing.T) {
	r, w := io.Pipe()
	port := &pipePort{r: r}
	u := NewUART(port)

	irqs := irq.New()
	received := make(chan byte, 4)
	completed := make(chan struct{}, 4)
	irqs.Handle(irq.Receive, func(b byte) { received <- b })
	irqs.Handle(irq.TransmitComplete, func(byte) { completed <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go irqs.Run(ctx)
	u.Start(ctx, irqs)
	defer u.Close()

	go w.Write([]byte("w7"))
	for _, want := range []byte("w7") {
		select {
		case got := <-received:
			if got != want {
				t.Fatalf("received %q, expected %q", got, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for receive interrupt")
		}
	}

	if err := u.TransmitByte('P'); err != nil {
		t.Fatal(err)
	}
	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for transmit complete")
	}
	if port.written() != "P" {
		t.Fatalf("wrote %q", port.written())
	}
}

func TestUARTTransmitterHoldsTwoBytes(t *testing.T) {
	r, _ := io.Pipe()
	u := NewUART(&pipePort{r: r})
	// Not started: nothing drains the transmitter.
	if u.TransmitByte('a') != nil || u.TransmitByte('b') != nil {
		t.Fatal("transmitter refused a byte with room left")
	}
	if u.TransmitByte('c') != ErrTransmitterBusy {
		t.Fatal("expected busy transmitter")
	}
}
