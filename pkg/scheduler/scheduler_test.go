package scheduler

import (
	"testing"

	"periph.io/x/periph/conn/gpio"

	"github.com/tigerbot-team/sonarbot/pkg/hardware"
)

type fakeRanging struct {
	distance, blink uint32
}

func (f *fakeRanging) Distance() uint32    { return f.distance }
func (f *fakeRanging) BlinkPeriod() uint32 { return f.blink }

type countingPulse struct{ ticks int }

func (c *countingPulse) Tick() { c.ticks++ }

type countingKicker struct{ kicks int }

func (c *countingKicker) Kick() { c.kicks++ }

func newTestScheduler(distance, blink uint32) (*Scheduler, *hardware.Dummy, *countingPulse, *countingKicker, *fakeRanging) {
	hw := hardware.NewDummy()
	p := &countingPulse{}
	k := &countingKicker{}
	r := &fakeRanging{distance: distance, blink: blink}
	return New(hw, p, r, k), hw, p, k, r
}

func run(s *Scheduler, n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

func TestPulseCountedEveryTick(t *testing.T) {
	s, _, p, _, _ := newTestScheduler(100, 1000)
	run(s, 37)
	if p.ticks != 37 {
		t.Fatalf("pulse ticks = %d, expected 37", p.ticks)
	}
}

func TestResendKicksOncePerSecond(t *testing.T) {
	s, _, _, k, _ := newTestScheduler(100, 1000)
	run(s, int(ResendPeriod)-1)
	if k.kicks != 0 {
		t.Fatalf("kicked after %d ticks", ResendPeriod-1)
	}
	run(s, 1)
	if k.kicks != 1 {
		t.Fatalf("kicks = %d at one second, expected 1", k.kicks)
	}
	run(s, int(ResendPeriod))
	if k.kicks != 2 {
		t.Fatalf("kicks = %d at two seconds, expected 2", k.kicks)
	}
}

func TestResetResendRestartsCadence(t *testing.T) {
	s, _, _, k, _ := newTestScheduler(100, 1000)
	run(s, int(ResendPeriod)-10)
	s.ResetResend()
	run(s, 10)
	if k.kicks != 0 {
		t.Fatal("kick fired on the old cadence after ResetResend")
	}
	run(s, int(ResendPeriod)-10)
	if k.kicks != 1 {
		t.Fatalf("kicks = %d, expected 1 a full period after reset", k.kicks)
	}
}

func TestTriggerIsOneTickWideEvery200ms(t *testing.T) {
	s, hw, _, _, _ := newTestScheduler(100, 100000)

	run(s, int(TriggerPeriod)-1)
	if hw.Trigger() != gpio.Low || hw.TriggerPulses() != 0 {
		t.Fatal("trigger raised early")
	}
	run(s, 1)
	if hw.Trigger() != gpio.High {
		t.Fatal("trigger not raised at 200 ms")
	}
	run(s, 1)
	if hw.Trigger() != gpio.Low {
		t.Fatal("trigger still high a tick later")
	}
	run(s, int(TriggerPeriod)*2)
	if hw.TriggerPulses() != 3 {
		t.Fatalf("trigger pulses = %d, expected 3", hw.TriggerPulses())
	}
}

func TestLEDTogglesAtBlinkPeriod(t *testing.T) {
	s, hw, _, _, _ := newTestScheduler(100, 10)

	run(s, 9)
	if hw.LED() != gpio.Low {
		t.Fatal("LED changed before the blink period")
	}
	run(s, 1)
	if hw.LED() != gpio.High {
		t.Fatal("LED not toggled on at the blink period")
	}
	run(s, 10)
	if hw.LED() != gpio.Low {
		t.Fatal("LED not toggled off a period later")
	}
}

func TestLEDForcedOnAtObstacleThreshold(t *testing.T) {
	s, hw, _, _, r := newTestScheduler(25, 5)
	for i := 0; i < 4; i++ {
		run(s, 5)
		if hw.LED() != gpio.High {
			t.Fatalf("LED off at 25 cm after %d periods", i+1)
		}
	}

	r.distance = 26
	run(s, 5)
	if hw.LED() != gpio.Low {
		t.Fatal("LED not toggling again at 26 cm")
	}
}

func TestCounters(t *testing.T) {
	s, _, _, _, _ := newTestScheduler(100, 1000)
	run(s, 150)
	c := s.Counters()
	if c.Resend != 150 || c.Trigger != 150 || c.LED != 150 {
		t.Fatalf("counters = %+v, expected 150 each", c)
	}
}
