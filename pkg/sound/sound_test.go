package sound

import "testing"

func TestPlayDropsWhileBusy(t *testing.T) {
	// No loop goroutine: nothing takes requests off the queue.
	p := &Player{requests: make(chan string, 1)}
	if !p.Play("obstacle.wav") {
		t.Fatal("first request dropped")
	}
	if p.Play("obstacle.wav") {
		t.Fatal("second request accepted while one is waiting")
	}
	if p.Dropped() != 1 {
		t.Fatalf("dropped = %d, expected 1", p.Dropped())
	}
}

func TestPlayAfterCloseDoesNotPanic(t *testing.T) {
	p := &Player{requests: make(chan string, 1)}
	p.Close()
	if p.Play("obstacle.wav") {
		t.Fatal("request accepted after Close")
	}
}
