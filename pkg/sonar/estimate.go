package sonar

import (
	"fmt"
	"sync/atomic"
)

const (
	SpeedOfSound = 343 // m/s
	TickMicros   = 50

	// ObstacleThreshold is the distance, inclusive, at which the LED stays lit
	// and forward motion is stopped.
	ObstacleThreshold = 25 // cm

	// Distances below this would make the blink period negative.
	blinkOffsetCm = 15

	// MinBlinkPeriod is the blink period used when the linear formula gives
	// less, including every distance under 15 cm.
	MinBlinkPeriod = 1 // ticks

	MaxReportCm = 999
)

// Distance converts an echo width in ticks to centimetres. The divisor folds
// the round trip and the unit conversions together.
func Distance(pulseTicks uint32) uint32 {
	return uint32(uint64(SpeedOfSound) * uint64(pulseTicks) * TickMicros / 20000)
}

// BlinkPeriod maps a distance to an LED toggle period in ticks: about 30 Hz
// at 25 cm down to 1 Hz at 315 cm.
func BlinkPeriod(distanceCm uint32) uint32 {
	if distanceCm < blinkOffsetCm {
		return MinBlinkPeriod
	}
	p := (distanceCm - blinkOffsetCm) * 200 / 3
	if p < MinBlinkPeriod {
		return MinBlinkPeriod
	}
	return p
}

// Report formats the distance status line, e.g. "042cm\n".
func Report(distanceCm uint32) string {
	if distanceCm > MaxReportCm {
		distanceCm = MaxReportCm
	}
	return fmt.Sprintf("%03dcm\n", distanceCm)
}

type Reading struct {
	PulseTicks  uint32
	DistanceCm  uint32
	BlinkPeriod uint32
	Report      string
}

// Estimator owns the derived distance and blink period. Both are written only
// by Estimate in the main loop; the tick interrupt reads them.
type Estimator struct {
	Capture *Capture

	distance atomic.Uint32
	blink    atomic.Uint32
}

func NewEstimator(c *Capture) *Estimator {
	e := &Estimator{Capture: c}
	e.blink.Store(MinBlinkPeriod)
	return e
}

// Estimate consumes a completed capture, if any, and updates the distance
// and blink period. Main loop only.
func (e *Estimator) Estimate() (Reading, bool) {
	ticks, ok := e.Capture.Consume()
	if !ok {
		return Reading{}, false
	}
	d := Distance(ticks)
	r := Reading{
		PulseTicks:  ticks,
		DistanceCm:  d,
		BlinkPeriod: BlinkPeriod(d),
		Report:      Report(d),
	}
	e.distance.Store(r.DistanceCm)
	e.blink.Store(r.BlinkPeriod)
	return r, true
}

func (e *Estimator) Distance() uint32 {
	return e.distance.Load()
}

func (e *Estimator) BlinkPeriod() uint32 {
	return e.blink.Load()
}
