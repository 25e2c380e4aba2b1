// Package sim is a simulated robot: an obstacle that comes closer while the
// wheels drive forward, an echo that answers the trigger, and a
// pseudo-terminal standing in for the serial link.
package sim

import (
	"sync"
	"time"

	"github.com/tigerbot-team/sonarbot/pkg/config"
	"github.com/tigerbot-team/sonarbot/pkg/hardware"
)

// MinDistanceCm is the closest the sensor can see.
const MinDistanceCm = 2

type World struct {
	lock sync.Mutex

	distanceCm    float64
	maxCm         float64
	approachCmSec float64
}

func NewWorld(cfg config.SimConfig) *World {
	return &World{
		distanceCm:    float64(cfg.InitialDistanceCm),
		maxCm:         float64(cfg.MaxDistanceCm),
		approachCmSec: float64(cfg.ApproachCmPerSec),
	}
}

// Advance moves the robot for dt at the given direction and average duty.
// Turning on the spot leaves the obstacle where it is.
func (w *World) Advance(dir hardware.Direction, dutyPercent int, dt time.Duration) {
	step := w.approachCmSec * dt.Seconds() * float64(dutyPercent) / 100

	w.lock.Lock()
	defer w.lock.Unlock()
	switch dir {
	case hardware.Forward:
		w.distanceCm -= step
	case hardware.Backward:
		w.distanceCm += step
	}
	if w.distanceCm < MinDistanceCm {
		w.distanceCm = MinDistanceCm
	}
	if w.distanceCm > w.maxCm {
		w.distanceCm = w.maxCm
	}
}

func (w *World) DistanceCm() float64 {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.distanceCm
}

// SetDistanceCm places the obstacle, e.g. from the debug console.
func (w *World) SetDistanceCm(d float64) {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.distanceCm = d
}

// EchoTicks returns the echo pulse width, in ticks, that the firmware
// converts back to distanceCm.
func EchoTicks(distanceCm uint32) uint32 {
	// Rounded up so that the truncating conversion lands on distanceCm.
	return (distanceCm*400 + 342) / 343
}
