package sonar

import (
	"testing"

	"periph.io/x/periph/conn/gpio"
)

func TestDistanceMatchesIntegerFormula(t *testing.T) {
	for _, d := range []uint32{0, 1, 23, 24, 29, 58, 100, 466, 1000, 4000, 23000, 1 << 20} {
		want := uint32((343 * uint64(d) * 50) / 20000)
		if got := Distance(d); got != want {
			t.Errorf("Distance(%d) = %d, expected %d", d, got, want)
		}
	}
}

func TestDistanceKnownValues(t *testing.T) {
	// 58 ticks = 2.9 ms round trip = 49.7 cm, truncated.
	if got := Distance(58); got != 49 {
		t.Fatalf("Distance(58) = %d, expected 49", got)
	}
	if got := Distance(30); got != 25 {
		t.Fatalf("Distance(30) = %d, expected 25", got)
	}
}

func TestBlinkPeriod(t *testing.T) {
	cases := []struct {
		distance, period uint32
	}{
		{25, 666},
		{45, 2000},
		{75, 4000},
		{315, 20000},
		{16, 66},
		{15, MinBlinkPeriod},
		{14, MinBlinkPeriod},
		{0, MinBlinkPeriod},
	}
	for _, c := range cases {
		if got := BlinkPeriod(c.distance); got != c.period {
			t.Errorf("BlinkPeriod(%d) = %d, expected %d", c.distance, got, c.period)
		}
	}
}

func TestReport(t *testing.T) {
	cases := map[uint32]string{
		0:    "000cm\n",
		7:    "007cm\n",
		42:   "042cm\n",
		315:  "315cm\n",
		999:  "999cm\n",
		1200: "999cm\n",
	}
	for d, want := range cases {
		if got := Report(d); got != want {
			t.Errorf("Report(%d) = %q, expected %q", d, got, want)
		}
	}
}

func TestCaptureMeasuresPulse(t *testing.T) {
	var c Capture
	c.OnEdge(gpio.High)
	if c.State() != Measuring {
		t.Fatalf("state after rising edge = %v, expected measuring", c.State())
	}
	for i := 0; i < 58; i++ {
		c.Tick()
	}
	c.OnEdge(gpio.Low)
	if c.State() != Complete || !c.Ready() {
		t.Fatalf("state after falling edge = %v ready=%v", c.State(), c.Ready())
	}

	// Width stays frozen until consumed.
	for i := 0; i < 10; i++ {
		c.Tick()
	}
	ticks, ok := c.Consume()
	if !ok || ticks != 58 {
		t.Fatalf("Consume() = %d, %v, expected 58, true", ticks, ok)
	}
	if _, ok := c.Consume(); ok {
		t.Fatal("second Consume() reported a fresh measurement")
	}
}

func TestCaptureRisingEdgeRestarts(t *testing.T) {
	var c Capture
	c.OnEdge(gpio.High)
	for i := 0; i < 100; i++ {
		c.Tick()
	}
	c.OnEdge(gpio.High)
	for i := 0; i < 10; i++ {
		c.Tick()
	}
	c.OnEdge(gpio.Low)
	if ticks, _ := c.Consume(); ticks != 10 {
		t.Fatalf("width after restart = %d, expected 10", ticks)
	}
}

func TestCaptureSpuriousFallingEdgeCompletes(t *testing.T) {
	var c Capture
	c.Tick()
	c.Tick()
	c.OnEdge(gpio.Low)
	ticks, ok := c.Consume()
	if !ok || ticks != 2 {
		t.Fatalf("Consume() = %d, %v, expected 2, true", ticks, ok)
	}
}

func TestEstimatorUpdatesDistanceAndBlink(t *testing.T) {
	c := &Capture{}
	e := NewEstimator(c)
	if e.BlinkPeriod() != MinBlinkPeriod {
		t.Fatalf("initial blink period = %d", e.BlinkPeriod())
	}
	if _, ok := e.Estimate(); ok {
		t.Fatal("Estimate() without a capture reported a reading")
	}

	c.OnEdge(gpio.High)
	for i := 0; i < 466; i++ {
		c.Tick()
	}
	c.OnEdge(gpio.Low)

	r, ok := e.Estimate()
	if !ok {
		t.Fatal("Estimate() found no reading")
	}
	if r.DistanceCm != 399 || e.Distance() != 399 {
		t.Fatalf("distance = %d/%d, expected 399", r.DistanceCm, e.Distance())
	}
	if r.BlinkPeriod != BlinkPeriod(399) || e.BlinkPeriod() != BlinkPeriod(399) {
		t.Fatalf("blink period = %d/%d", r.BlinkPeriod, e.BlinkPeriod())
	}
	if r.Report != "399cm\n" {
		t.Fatalf("report = %q", r.Report)
	}
	if c.Ready() {
		t.Fatal("ready flag still set after Estimate()")
	}
}
